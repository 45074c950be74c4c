package state

import (
	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
)

// ApplyGetServerCertList returns the redacted CertInfo for every cert.
func (s *State) ApplyGetServerCertList() ([]keyring.CertInfo, error) {
	return s.kr.List(), nil
}

// ApplyAddServerCert parses chainPEM/keyPEM, derives the cert's stable
// id from the chain, and adds it to the keyring. Re-adding
// byte-identical material is a no-op: no storage write, no event, no
// reconcile, per the keyring's own idempotence guarantee. A genuinely
// new or changed cert is written to certs/<id>.pem before the keyring
// mutation is allowed to stand.
func (s *State) ApplyAddServerCert(chainPEM, keyPEM []byte, source config.Source) (keyring.CertInfo, error) {
	cert, err := keyring.ParseCert(chainPEM, keyPEM, source)
	if err != nil {
		return keyring.CertInfo{}, apierr.Wrap(apierr.TlsError, err)
	}

	if !s.kr.Add(cert) {
		return cert.Info, nil // idempotent re-add, bytes unchanged
	}
	if err := s.store.SaveCert(cert.Info.ID, cert.ChainPEM, cert.KeyPEM); err != nil {
		s.kr.Delete(cert.Info.ID)
		return keyring.CertInfo{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.ServerCertsUpdated{Items: s.kr.List()})
	s.scheduleReconcile()
	return cert.Info, nil
}

// ApplyDeleteServerCert removes a cert from the keyring and from disk.
func (s *State) ApplyDeleteServerCert(id ident.ID) (struct{}, error) {
	cert, existed := s.kr.Get(id)
	if !existed {
		return struct{}{}, apierr.NotFoundf("certificate %s not found", id)
	}
	s.kr.Delete(id)
	if err := s.store.DeleteCert(id); err != nil {
		s.kr.Add(cert)
		return struct{}{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.ServerCertsUpdated{Items: s.kr.List()})
	s.scheduleReconcile()
	return struct{}{}, nil
}
