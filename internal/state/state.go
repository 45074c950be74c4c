// Package state is the heart of the control plane: one goroutine owns
// every mutable structure (tables, keyring, accounts, config) and
// serializes all access through a command queue, exactly as the
// single-threaded core in §4.6 requires. Nothing outside this package
// ever touches a State value directly; everyone else goes through the
// generic Call helper, which is how admin handlers, the ACME
// scheduler, and tests all reach the core without needing a mutex.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/accounts"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/dataplane"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/metrics"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/reconcile"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
	"github.com/picoHz/taxy-sub001/internal/storage"
)

// State holds every piece of mutable server state. Its fields are
// unexported on purpose: the only way to read or mutate them is
// through an ApplyXxx method invoked from inside the control loop via
// a Command.
type State struct {
	ids      *ident.Registry
	cfg      config.AppConfig
	kr       *keyring.Keyring
	ports    *portmap.Table
	sites    *sitemap.Table
	accounts *accounts.Store
	bus      *event.Bus
	store    *storage.Store
	worker   dataplane.Worker
	log      *zap.Logger

	snapshot         reconcile.Snapshot
	debounce         *time.Timer
	reconcilePending bool
}

// New assembles a State from its already-loaded components. Callers
// (the CLI's run command, or a test) are responsible for loading
// persisted entries into ids/kr/ports/sites/accounts before calling
// New; State itself never reads from disk.
func New(
	cfg config.AppConfig,
	ids *ident.Registry,
	kr *keyring.Keyring,
	ports *portmap.Table,
	sites *sitemap.Table,
	acct *accounts.Store,
	bus *event.Bus,
	store *storage.Store,
	worker dataplane.Worker,
	log *zap.Logger,
) *State {
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	return &State{
		ids:      ids,
		cfg:      cfg,
		kr:       kr,
		ports:    ports,
		sites:    sites,
		accounts: acct,
		bus:      bus,
		store:    store,
		worker:   worker,
		log:      log,
		debounce: debounce,
	}
}

// Run is the control loop itself: it services the command queue, the
// worker's status-update channel, and the reconcile debounce timer
// until ctx is cancelled, at which point it publishes a terminal
// Shutdown event and returns.
func (s *State) Run(ctx context.Context, commands <-chan Command) {
	// Prime the reconciler with whatever was loaded at boot so any
	// already-declared ports get dispatched once on startup.
	s.scheduleReconcile()

	for {
		select {
		case cmd := <-commands:
			cmd.apply(s)

		case upd := <-s.worker.Updates():
			s.handleStatusUpdate(upd)

		case <-s.debounce.C:
			s.runReconcile()

		case <-ctx.Done():
			s.log.Info("control loop shutting down")
			s.bus.Shutdown()
			return
		}
	}
}

// scheduleReconcile (re)arms the debounce timer so that a burst of
// mutations within the window collapses into a single Plan call,
// per §4.7.
func (s *State) scheduleReconcile() {
	if !s.debounce.Stop() {
		select {
		case <-s.debounce.C:
		default:
		}
	}
	delay := s.cfg.ReconcileDebounce
	if delay <= 0 {
		delay = time.Millisecond
	}
	s.debounce.Reset(delay)
	s.reconcilePending = true
}

func (s *State) runReconcile() {
	s.reconcilePending = false
	actions, next := reconcile.Plan(s.snapshot, s.ports.List(), s.siteByID(), s.kr)
	s.snapshot = next
	for _, action := range actions {
		s.worker.Dispatch(action)
	}
	if len(actions) > 0 {
		s.log.Debug("reconcile dispatched actions", zap.Int("count", len(actions)))
	}
}

func (s *State) siteByID() map[ident.ID]sitemap.SiteEntry {
	list := s.sites.List()
	out := make(map[ident.ID]sitemap.SiteEntry, len(list))
	for _, site := range list {
		out[site.ID] = site
	}
	return out
}

func (s *State) handleStatusUpdate(u dataplane.StatusUpdate) {
	previous, changed := s.ports.SetStatus(u.ID, u.Status)
	if !changed {
		return // port was deleted while the update was in flight
	}
	metrics.RecordPortTransition(previous.State, u.Status.State)
	s.bus.Publish(event.PortStatusUpdated{ID: u.ID, Status: u.Status})
}
