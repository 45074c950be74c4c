// Package keyring is the in-memory indexed collection of server
// certificates and ACME account entries. It is owned exclusively by
// the server state / control loop (§3 Ownership); all other
// components observe it only through CertInfo snapshots or Handles.
package keyring

import (
	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/ident"
)

// Keyring holds certificates and ACME entries keyed by id, plus a
// derived subject-name index rebuilt on every mutation.
type Keyring struct {
	certs     map[ident.ID]*Cert
	certOrder []ident.ID // preserves insertion order for list()

	acme      map[ident.ID]*AcmeEntry
	acmeOrder []ident.ID

	index subjectIndex // derived view, invalidated on every mutation
}

// New returns an empty Keyring.
func New() *Keyring {
	return &Keyring{
		certs: make(map[ident.ID]*Cert),
		acme:  make(map[ident.ID]*AcmeEntry),
	}
}

// Add inserts or replaces cert by id. Re-adding a cert whose id is
// already present with byte-identical chain material is a no-op
// (§8 Idempotence) and reports changed=false so the caller can skip
// the event/storage write; any other insert or replacement reports
// changed=true.
func (k *Keyring) Add(cert *Cert) (changed bool) {
	if existing, ok := k.certs[cert.Info.ID]; ok {
		if sameCertBytes(existing, cert) {
			return false
		}
	} else {
		k.certOrder = append(k.certOrder, cert.Info.ID)
	}
	k.certs[cert.Info.ID] = cert
	k.index = subjectIndex{} // invalidate
	return true
}

func sameCertBytes(a, b *Cert) bool {
	return string(a.ChainPEM) == string(b.ChainPEM) && string(a.KeyPEM) == string(b.KeyPEM)
}

// Delete removes the cert by id. A no-op if absent, reporting
// changed=false.
func (k *Keyring) Delete(id ident.ID) (changed bool) {
	if _, ok := k.certs[id]; !ok {
		return false
	}
	delete(k.certs, id)
	for i, existing := range k.certOrder {
		if existing == id {
			k.certOrder = append(k.certOrder[:i], k.certOrder[i+1:]...)
			break
		}
	}
	k.index = subjectIndex{}
	return true
}

// Get returns the full Cert (including key material) by id, for
// internal use by the reconciler when building a cert snapshot for a
// data-plane worker. Never expose this to an admin-facing response.
func (k *Keyring) Get(id ident.ID) (*Cert, bool) {
	c, ok := k.certs[id]
	return c, ok
}

// List returns CertInfo for every cert, in insertion order.
func (k *Keyring) List() []CertInfo {
	out := make([]CertInfo, 0, len(k.certOrder))
	for _, id := range k.certOrder {
		out = append(out, k.certs[id].Info)
	}
	return out
}

// FindBySubject implements the §4.2 longest-match-with-wildcard-left
// lookup: it returns the cert whose subject set contains the
// best-matching pattern for host, or ok=false if none match. Ties are
// broken first by later NotBefore, then by lexicographically-greater
// id.
func (k *Keyring) FindBySubject(host string) (*Cert, bool) {
	k.ensureIndex()
	candidates := k.index.lookup(host)
	if len(candidates) == 0 {
		return nil, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return k.certs[best.id], true
}

func better(a, b matchCandidate) bool {
	if a.specificity != b.specificity {
		return a.specificity > b.specificity
	}
	certA, certB := a.notBefore, b.notBefore
	if !certA.Equal(certB) {
		return certA.After(certB)
	}
	return a.id > b.id
}

// AddAcme inserts or replaces an ACME entry by id. It rejects a new
// entry whose (DirectoryURL, Contacts) pair collides with a different
// existing entry, enforcing the "exactly one active entry per
// (directory, account) pair" invariant (§3).
func (k *Keyring) AddAcme(entry *AcmeEntry) error {
	key := entry.accountKey()
	for id, existing := range k.acme {
		if id != entry.ID && existing.accountKey() == key {
			return apierr.AlreadyExistsf("acme entry for this directory/account already exists: %s", id)
		}
	}
	if _, ok := k.acme[entry.ID]; !ok {
		k.acmeOrder = append(k.acmeOrder, entry.ID)
	}
	k.acme[entry.ID] = entry
	return nil
}

// DeleteAcme removes an ACME entry. No-op if absent.
func (k *Keyring) DeleteAcme(id ident.ID) (changed bool) {
	if _, ok := k.acme[id]; !ok {
		return false
	}
	delete(k.acme, id)
	for i, existing := range k.acmeOrder {
		if existing == id {
			k.acmeOrder = append(k.acmeOrder[:i], k.acmeOrder[i+1:]...)
			break
		}
	}
	return true
}

// ListAcme returns every AcmeEntry in insertion order.
func (k *Keyring) ListAcme() []AcmeEntry {
	out := make([]AcmeEntry, 0, len(k.acmeOrder))
	for _, id := range k.acmeOrder {
		out = append(out, *k.acme[id])
	}
	return out
}

// GetAcme returns a single entry by id.
func (k *Keyring) GetAcme(id ident.ID) (*AcmeEntry, bool) {
	e, ok := k.acme[id]
	return e, ok
}

// ensureIndex rebuilds the derived subject-name index if it was
// invalidated by a mutation since the last lookup.
func (k *Keyring) ensureIndex() {
	if k.index.built {
		return
	}
	k.index = buildSubjectIndex(k.certOrder, k.certs)
}
