package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caddyserver/certmagic"
)

// AcmeStorage adapts a directory under the config root to
// certmagic.Storage, so the ACME scheduler's issuer (§4.8) can persist
// its own account keys and order state through the same atomic-write
// discipline as the rest of the config root, without the control loop
// ever touching that directory's contents directly.
type AcmeStorage struct {
	root string
	mu   sync.Mutex
	// locks tracks in-process advisory locks; certmagic only needs
	// locking to be effective within a single process here, since
	// exactly one process owns the config root.
	locks map[string]chan struct{}
}

// NewAcmeStorage returns a certmagic.Storage rooted at
// <configRoot>/acme.
func NewAcmeStorage(configRoot string) (*AcmeStorage, error) {
	root := filepath.Join(configRoot, "acme")
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("storage: creating acme storage root: %w", err)
	}
	return &AcmeStorage{root: root, locks: make(map[string]chan struct{})}, nil
}

func (a *AcmeStorage) path(key string) string {
	return filepath.Join(a.root, filepath.FromSlash(key))
}

func (a *AcmeStorage) Store(ctx context.Context, key string, value []byte) error {
	path := a.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return writeAtomic(path, value, 0o600)
}

func (a *AcmeStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.path(key))
	if os.IsNotExist(err) {
		return nil, certmagic.ErrNotExist(err)
	}
	return data, err
}

func (a *AcmeStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(a.path(key))
	if os.IsNotExist(err) {
		return certmagic.ErrNotExist(err)
	}
	return err
}

func (a *AcmeStorage) Exists(ctx context.Context, key string) bool {
	_, err := os.Stat(a.path(key))
	return err == nil
}

func (a *AcmeStorage) List(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	base := a.path(prefix)
	info, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, certmagic.ErrNotExist(err)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var keys []string
	walk := func(dir, relPrefix string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			rel := strings.TrimPrefix(filepath.ToSlash(filepath.Join(relPrefix, e.Name())), "/")
			keys = append(keys, rel)
		}
		return nil
	}
	if !recursive {
		if err := walk(base, prefix); err != nil {
			return nil, err
		}
		sort.Strings(keys)
		return keys, nil
	}

	err = filepath.Walk(base, func(p string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *AcmeStorage) Stat(ctx context.Context, key string) (certmagic.KeyInfo, error) {
	info, err := os.Stat(a.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return certmagic.KeyInfo{}, certmagic.ErrNotExist(err)
		}
		return certmagic.KeyInfo{}, err
	}
	return certmagic.KeyInfo{
		Key:        key,
		Modified:   info.ModTime(),
		Size:       info.Size(),
		IsTerminal: !info.IsDir(),
	}, nil
}

// Lock and Unlock implement a simple in-process advisory lock, which
// is all a single-instance proxy needs: certmagic serializes
// concurrent issuance attempts for the same name within this process.
func (a *AcmeStorage) Lock(ctx context.Context, key string) error {
	for {
		a.mu.Lock()
		ch, busy := a.locks[key]
		if !busy {
			a.locks[key] = make(chan struct{})
			a.mu.Unlock()
			return nil
		}
		a.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			// re-check periodically in case the holder forgot to
			// close its channel due to a bug; bounded by ctx anyway.
		}
	}
}

func (a *AcmeStorage) Unlock(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch, ok := a.locks[key]
	if !ok {
		return nil
	}
	delete(a.locks, key)
	close(ch)
	return nil
}
