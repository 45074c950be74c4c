package state

import (
	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
)

// ApplyGetAcmeList returns every registered ACME account/domain entry.
func (s *State) ApplyGetAcmeList() ([]keyring.AcmeEntry, error) {
	return s.kr.ListAcme(), nil
}

// ApplyAddAcme registers a new ACME entry, assigning a fresh id when
// entry.ID is empty. The keyring itself enforces the one-entry-per
// (directory, account) invariant.
func (s *State) ApplyAddAcme(entry keyring.AcmeEntry) (keyring.AcmeEntry, error) {
	if entry.ID == "" {
		id, err := s.ids.Generate(ident.KindAcme)
		if err != nil {
			return keyring.AcmeEntry{}, apierr.Wrap(apierr.Internal, err)
		}
		entry.ID = id
	}

	if err := s.kr.AddAcme(&entry); err != nil {
		return keyring.AcmeEntry{}, err
	}
	if err := s.store.SaveAcme(s.kr.ListAcme()); err != nil {
		s.kr.DeleteAcme(entry.ID)
		return keyring.AcmeEntry{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.AcmeUpdated{Items: s.kr.ListAcme()})
	return entry, nil
}

// ApplyDeleteAcme removes an ACME entry.
func (s *State) ApplyDeleteAcme(id ident.ID) (struct{}, error) {
	previous, existed := s.kr.GetAcme(id)
	if !existed {
		return struct{}{}, apierr.NotFoundf("acme entry %s not found", id)
	}
	s.kr.DeleteAcme(id)
	if err := s.store.SaveAcme(s.kr.ListAcme()); err != nil {
		_ = s.kr.AddAcme(previous)
		return struct{}{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.AcmeUpdated{Items: s.kr.ListAcme()})
	return struct{}{}, nil
}
