package keyring

import "github.com/picoHz/taxy-sub001/internal/ident"

// ChallengeType is the ACME validation method used for an AcmeEntry.
type ChallengeType string

const (
	ChallengeHTTP01    ChallengeType = "http-01"
	ChallengeTLSALPN01 ChallengeType = "tls-alpn-01"
	ChallengeDNS01     ChallengeType = "dns-01"
)

// EabCredentials carries an optional External Account Binding, used
// by some ACME directories (e.g. ZeroSSL) to tie an account to a
// pre-existing customer identity.
type EabCredentials struct {
	KeyID  string `json:"key_id" toml:"key_id"`
	HmacB64 string `json:"hmac_b64" toml:"hmac_b64"`
}

// AcmeEntry describes one ACME account plus the domains it is
// authorized to request certificates for. Exactly one active entry
// exists per (DirectoryURL, Contacts) pair (§3).
type AcmeEntry struct {
	ID            ident.ID       `json:"id" toml:"id"`
	DirectoryURL  string         `json:"directory_url" toml:"directory_url"`
	Contacts      []string       `json:"contacts" toml:"contacts"`
	KeyID         string         `json:"key_id" toml:"key_id"` // account key identifier
	Eab           *EabCredentials `json:"eab,omitempty" toml:"eab,omitempty"`
	Identifiers   []string       `json:"identifiers" toml:"identifiers"` // domains
	ChallengeType ChallengeType  `json:"challenge_type" toml:"challenge_type"`
	LastError     string         `json:"last_error,omitempty" toml:"-"`
}

// AccountKey returns the (directory, contacts-joined) pair that must
// be unique across AcmeEntries.
func (e AcmeEntry) accountKey() string {
	key := e.DirectoryURL + "|"
	for _, c := range e.Contacts {
		key += c + ","
	}
	return key
}
