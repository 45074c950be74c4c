// Package acmesched runs the periodic ACME renewal scan described in
// §4.8: on a fixed period it compares every registered AcmeEntry's
// certificate expiry against a renewal window and, for any candidate,
// drives an Issuer to obtain a replacement and submits it back to the
// control loop as an ordinary AddServerCert command.
package acmesched

import (
	"context"
	"fmt"

	"github.com/caddyserver/certmagic"

	"github.com/picoHz/taxy-sub001/internal/keyring"
)

// Issuer obtains a fresh certificate chain and key for domain under
// the ACME account/settings described by entry. It exists as an
// interface so the scheduler can be tested against a fake without
// ever speaking the ACME protocol.
type Issuer interface {
	Issue(ctx context.Context, entry keyring.AcmeEntry, domain string) (chainPEM, keyPEM []byte, err error)
}

// CertmagicIssuer backs Issuer with certmagic's ACME client, storing
// the account and certificate material in the caller-supplied
// certmagic.Storage (normally storage.AcmeStorage, rooted under the
// config directory's acme/ subtree).
type CertmagicIssuer struct {
	storage certmagic.Storage
}

// NewCertmagicIssuer returns an Issuer backed by certmagic, rooted at
// storage.
func NewCertmagicIssuer(storage certmagic.Storage) *CertmagicIssuer {
	return &CertmagicIssuer{storage: storage}
}

// Issue configures a one-off certmagic.Config scoped to entry's
// directory, contacts, and EAB credentials, then asks it to obtain a
// certificate for domain via the declared challenge type. The issued
// chain and key are read back out of storage as PEM, matching the
// format AddServerCert expects.
func (i *CertmagicIssuer) Issue(ctx context.Context, entry keyring.AcmeEntry, domain string) (chainPEM, keyPEM []byte, err error) {
	cache := certmagic.NewCache(certmagic.CacheOptions{
		GetConfigForCert: func(certmagic.Certificate) (*certmagic.Config, error) {
			return certmagic.NewDefault(), nil
		},
	})

	acmeIssuer := certmagic.NewACMEIssuer(nil, certmagic.ACMEIssuer{
		CA:          entry.DirectoryURL,
		Email:       primaryContact(entry),
		Agreed:      true,
		DisableHTTPChallenge:    entry.ChallengeType != keyring.ChallengeHTTP01,
		DisableTLSALPNChallenge: entry.ChallengeType != keyring.ChallengeTLSALPN01,
	})
	if entry.Eab != nil {
		acmeIssuer.ExternalAccount = &certmagic.EAB{
			KeyID:  entry.Eab.KeyID,
			MACKey: entry.Eab.HmacB64,
		}
	}

	cfg := certmagic.New(cache, certmagic.Config{
		Storage: i.storage,
		Issuers: []certmagic.Issuer{acmeIssuer},
	})

	if err := cfg.ObtainCertSync(ctx, domain); err != nil {
		return nil, nil, fmt.Errorf("acmesched: obtaining cert for %s: %w", domain, err)
	}

	cert, err := i.storage.Load(ctx, certmagic.StorageKeys.SiteCert(cfg.Issuers[0].IssuerKey(), domain))
	if err != nil {
		return nil, nil, fmt.Errorf("acmesched: reading issued chain for %s: %w", domain, err)
	}
	key, err := i.storage.Load(ctx, certmagic.StorageKeys.SitePrivateKey(cfg.Issuers[0].IssuerKey(), domain))
	if err != nil {
		return nil, nil, fmt.Errorf("acmesched: reading issued key for %s: %w", domain, err)
	}
	return cert, key, nil
}

func primaryContact(entry keyring.AcmeEntry) string {
	if len(entry.Contacts) == 0 {
		return ""
	}
	return entry.Contacts[0]
}
