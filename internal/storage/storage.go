// Package storage implements the persistent layout from §6: a config
// root directory holding config.toml, ports.toml, sites.toml,
// acme.toml, accounts.toml, and certs/<id>.pem. Every write is atomic
// (temp file + rename); the whole tree is read once at boot. To the
// rest of the system this is an opaque key/value store of typed
// entries, per §1's scope note.
package storage

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/picoHz/taxy-sub001/internal/accounts"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

// Store reads and writes the on-disk config root.
type Store struct {
	root string
}

// Open ensures root (and its certs/ subdirectory) exist and returns a
// Store bound to it.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "certs"), 0o700); err != nil {
		return nil, fmt.Errorf("storage: creating config root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.root, name) }

// writeAtomic writes data to name via a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// half-written document in place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func encodeTOML(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- config.toml ---

// LoadConfig reads config.toml, returning config.Default() if it
// does not exist yet (§3: AppConfig is "always present").
func (s *Store) LoadConfig() (config.AppConfig, error) {
	path := s.path("config.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	var cfg config.AppConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return config.AppConfig{}, fmt.Errorf("storage: decoding config.toml: %w", err)
	}
	return cfg, nil
}

// SaveConfig atomically writes cfg to config.toml.
func (s *Store) SaveConfig(cfg config.AppConfig) error {
	data, err := encodeTOML(cfg)
	if err != nil {
		return fmt.Errorf("storage: encoding config.toml: %w", err)
	}
	return writeAtomic(s.path("config.toml"), data, 0o600)
}

// --- ports.toml ---

type portDocument struct {
	Ports []portmap.PortEntry `toml:"port"`
}

// LoadPorts reads ports.toml, returning an empty slice if absent.
func (s *Store) LoadPorts() ([]portmap.PortEntry, error) {
	path := s.path("ports.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var doc portDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("storage: decoding ports.toml: %w", err)
	}
	return doc.Ports, nil
}

// SavePorts atomically writes entries to ports.toml.
func (s *Store) SavePorts(entries []portmap.PortEntry) error {
	data, err := encodeTOML(portDocument{Ports: entries})
	if err != nil {
		return fmt.Errorf("storage: encoding ports.toml: %w", err)
	}
	return writeAtomic(s.path("ports.toml"), data, 0o600)
}

// --- sites.toml ---

type siteDocument struct {
	Sites []sitemap.SiteEntry `toml:"site"`
}

// LoadSites reads sites.toml, returning an empty slice if absent.
func (s *Store) LoadSites() ([]sitemap.SiteEntry, error) {
	path := s.path("sites.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var doc siteDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("storage: decoding sites.toml: %w", err)
	}
	return doc.Sites, nil
}

// SaveSites atomically writes entries to sites.toml.
func (s *Store) SaveSites(entries []sitemap.SiteEntry) error {
	data, err := encodeTOML(siteDocument{Sites: entries})
	if err != nil {
		return fmt.Errorf("storage: encoding sites.toml: %w", err)
	}
	return writeAtomic(s.path("sites.toml"), data, 0o600)
}

// --- acme.toml ---

type acmeDocument struct {
	Entries []keyring.AcmeEntry `toml:"acme"`
}

// LoadAcme reads acme.toml, returning an empty slice if absent.
func (s *Store) LoadAcme() ([]keyring.AcmeEntry, error) {
	path := s.path("acme.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var doc acmeDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("storage: decoding acme.toml: %w", err)
	}
	return doc.Entries, nil
}

// SaveAcme atomically writes entries to acme.toml.
func (s *Store) SaveAcme(entries []keyring.AcmeEntry) error {
	data, err := encodeTOML(acmeDocument{Entries: entries})
	if err != nil {
		return fmt.Errorf("storage: encoding acme.toml: %w", err)
	}
	return writeAtomic(s.path("acme.toml"), data, 0o600)
}

// --- accounts.toml ---

type accountDocument struct {
	Accounts []accounts.Entry `toml:"account"`
}

// LoadAccounts reads accounts.toml, returning an empty slice if absent.
func (s *Store) LoadAccounts() ([]accounts.Entry, error) {
	path := s.path("accounts.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var doc accountDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("storage: decoding accounts.toml: %w", err)
	}
	return doc.Accounts, nil
}

// SaveAccounts atomically writes entries to accounts.toml.
func (s *Store) SaveAccounts(entries []accounts.Entry) error {
	data, err := encodeTOML(accountDocument{Accounts: entries})
	if err != nil {
		return fmt.Errorf("storage: encoding accounts.toml: %w", err)
	}
	return writeAtomic(s.path("accounts.toml"), data, 0o600)
}

// --- certs/<id>.pem ---

// SaveCert writes the chain and key, concatenated, to certs/<id>.pem.
func (s *Store) SaveCert(id ident.ID, chainPEM, keyPEM []byte) error {
	combined := append(append([]byte{}, chainPEM...), keyPEM...)
	return writeAtomic(s.path(filepath.Join("certs", string(id)+".pem")), combined, 0o600)
}

// DeleteCert removes certs/<id>.pem. No-op if already absent.
func (s *Store) DeleteCert(id ident.ID) error {
	err := os.Remove(s.path(filepath.Join("certs", string(id)+".pem")))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// LoadCerts reads every PEM file under certs/. A file that fails to
// parse is logged via onCorrupt and skipped rather than aborting boot
// (§7: "corruption of the cert directory ... logs and skips that
// cert but continues boot").
func (s *Store) LoadCerts(source config.Source, onCorrupt func(path string, err error)) ([]*keyring.Cert, error) {
	dir := s.path("certs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: reading certs directory: %w", err)
	}

	var out []*keyring.Cert
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pem" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			if onCorrupt != nil {
				onCorrupt(path, err)
			}
			continue
		}
		chainPEM, keyPEM, err := splitChainAndKey(data)
		if err != nil {
			if onCorrupt != nil {
				onCorrupt(path, err)
			}
			continue
		}
		cert, err := keyring.ParseCert(chainPEM, keyPEM, source)
		if err != nil {
			if onCorrupt != nil {
				onCorrupt(path, err)
			}
			continue
		}
		out = append(out, cert)
	}
	return out, nil
}

// splitChainAndKey separates the concatenated PEM blocks written by
// SaveCert back into the certificate chain and the private key, using
// the standard PEM block type to distinguish them.
func splitChainAndKey(data []byte) (chainPEM, keyPEM []byte, err error) {
	rest := data
	for len(bytes.TrimSpace(rest)) > 0 {
		block, next := splitOnePEMBlock(rest)
		if block == nil {
			break
		}
		if bytes.Contains(block, []byte("PRIVATE KEY")) {
			keyPEM = append(keyPEM, block...)
		} else {
			chainPEM = append(chainPEM, block...)
		}
		rest = next
	}
	if len(chainPEM) == 0 || len(keyPEM) == 0 {
		return nil, nil, fmt.Errorf("storage: cert file missing chain or key PEM block")
	}
	return chainPEM, keyPEM, nil
}

func splitOnePEMBlock(data []byte) (block, rest []byte) {
	start := bytes.Index(data, []byte("-----BEGIN "))
	if start < 0 {
		return nil, nil
	}
	end := bytes.Index(data[start:], []byte("-----END"))
	if end < 0 {
		return nil, nil
	}
	end += start
	lineEnd := bytes.IndexByte(data[end:], '\n')
	if lineEnd < 0 {
		lineEnd = len(data) - end
	} else {
		lineEnd++
	}
	end += lineEnd
	return data[start:end], data[end:]
}

// Tls builds a crypto/tls.Certificate from a keyring.Cert, for
// handing to data-plane workers. It lives here (rather than in
// keyring) because it is a storage/wire-format concern, not a keyring
// indexing concern.
func Tls(cert *keyring.Cert) (tls.Certificate, error) {
	return tls.X509KeyPair(cert.ChainPEM, cert.KeyPEM)
}
