// Package accounts stores admin usernames and Argon2id password
// hashes, backing POST /api/login and POST /api/accounts. It is
// deliberately small: one map, one KDF call per verify, no sessions
// beyond a token map (bearer tokens are opaque random strings minted
// by Login and held in memory for the process lifetime).
package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/config"
)

// Entry is one stored account, as persisted to accounts.toml.
type Entry struct {
	Username     string    `toml:"username"`
	PasswordHash string    `toml:"password_hash"` // "<salt-hex>$<hash-hex>"
	CreatedAt    time.Time `toml:"created_at"`
}

// Store holds accounts keyed by username, plus live bearer tokens.
// Tokens are intentionally not persisted: a restart invalidates every
// session, which is an acceptable and conventional tradeoff for an
// admin-only control plane.
type Store struct {
	params  config.Argon2Params
	entries map[string]Entry
	tokens  map[string]string // token -> username
}

// New returns a Store seeded with entries loaded from persistence.
func New(params config.Argon2Params, entries []Entry) *Store {
	s := &Store{
		params:  params,
		entries: make(map[string]Entry, len(entries)),
		tokens:  make(map[string]string),
	}
	for _, e := range entries {
		s.entries[e.Username] = e
	}
	return s
}

// List returns every stored entry, for persistence round-trips.
func (s *Store) List() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Add hashes password and stores a new account. It does not check for
// duplicates against an authorization boundary — the caller (an
// already-authenticated admin) is trusted to decide whether
// overwriting an existing username is intended.
func (s *Store) Add(username, password string, now time.Time) error {
	hash, err := hashPassword(s.params, password)
	if err != nil {
		return apierr.Wrap(apierr.Internal, err)
	}
	s.entries[username] = Entry{Username: username, PasswordHash: hash, CreatedAt: now}
	return nil
}

// Login verifies username/password and, on success, mints and
// remembers a fresh bearer token. AuthFailed never reveals whether
// the username exists (§7).
func (s *Store) Login(username, password string) (token string, err error) {
	entry, ok := s.entries[username]
	if !ok {
		// still run a hash to keep timing close to the success path
		_, _ = hashPassword(s.params, password)
		return "", apierr.New(apierr.AuthFailed, "invalid credentials")
	}
	if !verifyPassword(s.params, entry.PasswordHash, password) {
		return "", apierr.New(apierr.AuthFailed, "invalid credentials")
	}
	tok, err := randomToken()
	if err != nil {
		return "", apierr.Wrap(apierr.Internal, err)
	}
	s.tokens[tok] = username
	return tok, nil
}

// Authenticate reports whether token is a currently-valid bearer
// token and, if so, which username it belongs to.
func (s *Store) Authenticate(token string) (username string, ok bool) {
	username, ok = s.tokens[token]
	return
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("accounts: generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashPassword(params config.Argon2Params, password string) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("accounts: generating salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(params config.Argon2Params, stored, password string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
