package keyring

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/ident"
)

// CertInfo is the redacted, public projection of a Cert: it never
// carries private-key material, satisfying the "no PK leak" property
// (§8).
type CertInfo struct {
	ID         ident.ID      `json:"id"`
	Subjects   []SubjectName `json:"subjects"`
	NotBefore  time.Time     `json:"not_before"`
	NotAfter   time.Time     `json:"not_after"`
	Issuer     string        `json:"issuer"`
	Source     config.Source `json:"source"`
	AcmeEntry  ident.ID      `json:"acme_entry,omitempty"`
	FailedScan bool          `json:"-"` // never set: a cert file that fails to parse at boot is skipped by storage.LoadCerts
}

// Cert is a server certificate held by the keyring: its chain, its
// private key, and the redacted CertInfo served on read paths. The id
// is derived from the chain so that re-adding identical material is a
// pure no-op (§8 Idempotence).
type Cert struct {
	Info CertInfo

	// ChainPEM is the full certificate chain (leaf first), PEM
	// encoded. KeyPEM is the private key, PEM encoded. Neither is
	// ever copied into CertInfo or serialized alongside it.
	ChainPEM []byte
	KeyPEM   []byte
}

// ParseCert builds a Cert (and its id) from PEM-encoded chain and key
// bytes, matching the "id ≡ stable hash of chain" invariant in §3.
func ParseCert(chainPEM, keyPEM []byte, source config.Source) (*Cert, error) {
	tlsCert, err := tls.X509KeyPair(chainPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate chain/key: %w", err)
	}
	if len(tlsCert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}
	leaf, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parsing leaf certificate: %w", err)
	}

	subjects := make([]SubjectName, 0, len(leaf.DNSNames))
	for _, name := range leaf.DNSNames {
		subjects = append(subjects, SubjectName(name))
	}
	if len(subjects) == 0 && leaf.Subject.CommonName != "" {
		subjects = append(subjects, SubjectName(leaf.Subject.CommonName))
	}

	sum := sha256.Sum256(tlsCert.Certificate[0])
	id := ident.ID(hex.EncodeToString(sum[:])[:ident.Length])

	return &Cert{
		Info: CertInfo{
			ID:        id,
			Subjects:  subjects,
			NotBefore: leaf.NotBefore,
			NotAfter:  leaf.NotAfter,
			Issuer:    leaf.Issuer.CommonName,
			Source:    source,
		},
		ChainPEM: chainPEM,
		KeyPEM:   keyPEM,
	}, nil
}

// Handle is a reference-counted, copy-on-write view of a Cert handed
// to data-plane workers for the lifetime of a TLS session. Deleting a
// Cert from the keyring drops only the keyring's own reference; a
// session already holding a Handle keeps the chain/key alive.
//
// Handle wraps an immutable snapshot (the pointer itself is never
// mutated after construction), so sharing it across goroutines
// without synchronization is safe.
type Handle struct {
	cert *Cert
}

// NewHandle snapshots cert for sharing with a data-plane worker.
func NewHandle(cert *Cert) Handle {
	snapshot := *cert
	return Handle{cert: &snapshot}
}

// Cert returns the immutable snapshot held by this handle.
func (h Handle) Cert() *Cert { return h.cert }
