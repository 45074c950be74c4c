package state

import (
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/portmap"
)

// ApplyGetPortList returns every declared port in table order.
func (s *State) ApplyGetPortList() ([]portmap.PortEntry, error) {
	return s.ports.List(), nil
}

// ApplyGetPort returns a single declared port by id.
func (s *State) ApplyGetPort(id ident.ID) (portmap.PortEntry, error) {
	entry, ok := s.ports.Get(id)
	if !ok {
		return portmap.PortEntry{}, apierr.NotFoundf("port %s not found", id)
	}
	return entry, nil
}

// ApplyGetPortStatus returns the live status of a single port.
func (s *State) ApplyGetPortStatus(id ident.ID) (portmap.Status, error) {
	status, ok := s.ports.Status(id)
	if !ok {
		return portmap.Status{}, apierr.NotFoundf("port %s not found", id)
	}
	return status, nil
}

// ApplyAddPort assigns a fresh id, persists the new port table, then
// publishes PortTableUpdated and schedules a reconcile. If persistence
// fails the table insertion is rolled back so in-memory state never
// diverges from disk.
func (s *State) ApplyAddPort(entry portmap.PortEntry) (portmap.PortEntry, error) {
	if err := entry.Validate(); err != nil {
		return portmap.PortEntry{}, err
	}
	id, err := s.ids.Generate(ident.KindPort)
	if err != nil {
		return portmap.PortEntry{}, apierr.Wrap(apierr.Internal, err)
	}
	entry.ID = id

	now := time.Now()
	if err := s.ports.Add(entry, now); err != nil {
		return portmap.PortEntry{}, err
	}
	if err := s.store.SavePorts(s.ports.List()); err != nil {
		s.ports.Delete(id)
		s.ids.Release(ident.KindPort, id)
		return portmap.PortEntry{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.PortTableUpdated{Entries: s.ports.List()})
	s.scheduleReconcile()
	return entry, nil
}

// ApplyUpdatePort replaces an existing port's declaration.
func (s *State) ApplyUpdatePort(id ident.ID, entry portmap.PortEntry) (portmap.PortEntry, error) {
	if err := entry.Validate(); err != nil {
		return portmap.PortEntry{}, err
	}
	previous, existed := s.ports.Get(id)
	if err := s.ports.Update(id, entry); err != nil {
		return portmap.PortEntry{}, err
	}
	if err := s.store.SavePorts(s.ports.List()); err != nil {
		if existed {
			_ = s.ports.Update(id, previous)
		}
		return portmap.PortEntry{}, apierr.Wrap(apierr.IoError, err)
	}

	entry.ID = id
	s.bus.Publish(event.PortTableUpdated{Entries: s.ports.List()})
	s.scheduleReconcile()
	return entry, nil
}

// ApplyDeletePort removes a port and its status.
func (s *State) ApplyDeletePort(id ident.ID) (struct{}, error) {
	previous, existed := s.ports.Get(id)
	if !existed {
		return struct{}{}, apierr.NotFoundf("port %s not found", id)
	}
	s.ports.Delete(id)
	if err := s.store.SavePorts(s.ports.List()); err != nil {
		_ = s.ports.Add(previous, time.Now())
		return struct{}{}, apierr.Wrap(apierr.IoError, err)
	}

	s.bus.Publish(event.PortTableUpdated{Entries: s.ports.List()})
	s.scheduleReconcile()
	return struct{}{}, nil
}
