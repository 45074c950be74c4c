// Package dataplane defines the boundary between the control plane
// and the socket-accepting, TLS-terminating, byte-pumping workers
// that actually serve traffic. Per §1, the data plane itself (accept
// loops, ALPN negotiation, HTTP forwarding) is out of scope for this
// repository; this package only carries the Worker interface the
// control loop dispatches to, plus a minimal simulated
// implementation used by the CLI's default wiring and by tests.
package dataplane

import (
	"time"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/reconcile"
	"github.com/picoHz/taxy-sub001/internal/storage"
)

// StatusUpdate is what a Worker reports back to the control loop
// after acting on a dispatched Action (§4.6).
type StatusUpdate struct {
	ID     ident.ID
	Status portmap.Status
}

// Worker is the data-plane boundary: given a reconcile.Action, it
// starts, stops, or reloads the corresponding listener and reports
// status transitions on the channel returned by Updates. Dispatch
// must not block the caller for any meaningful duration — a real
// implementation hands the action to its own internal goroutine pool.
type Worker interface {
	Dispatch(action reconcile.Action)
	Updates() <-chan StatusUpdate
}

// SimWorker is a minimal stand-in for the real accept-loop/TLS
// implementation: on start or reload it immediately reports Starting
// then Listening, except for a TLS port, which gets Error(NoCert) when
// some server-name pattern is unresolved and no cert resolved at all,
// or Error(TlsFailed) when a resolved cert's chain and key do not
// form a usable certificate. It does no actual socket I/O. It exists so the control loop, reconciler, and
// CLI wiring can be exercised end-to-end without a real network
// stack; a production deployment replaces it with a worker pool that
// actually binds sockets.
type SimWorker struct {
	updates chan StatusUpdate
	now     func() time.Time
}

// NewSimWorker returns a SimWorker. now defaults to time.Now if nil.
func NewSimWorker(now func() time.Time) *SimWorker {
	if now == nil {
		now = time.Now
	}
	return &SimWorker{updates: make(chan StatusUpdate, 64), now: now}
}

func (w *SimWorker) Updates() <-chan StatusUpdate { return w.updates }

func (w *SimWorker) Dispatch(action reconcile.Action) {
	go w.handle(action)
}

func (w *SimWorker) handle(action reconcile.Action) {
	switch action.Kind {
	case reconcile.ActionStop:
		w.report(action.Port.ID, portmap.Status{State: portmap.StateUnused, LastChange: w.now()})
	case reconcile.ActionStart, reconcile.ActionReload:
		if action.Port.Protocol.RequiresTLS() {
			if len(action.MissingPatterns) > 0 && len(action.Certs) == 0 {
				w.report(action.Port.ID, portmap.Status{
					State:      portmap.StateError,
					ErrorKind:  portmap.ErrorKindNoCert,
					LastChange: w.now(),
				})
				return
			}
			if err := checkTLS(action.Certs); err != nil {
				w.report(action.Port.ID, portmap.Status{
					State:      portmap.StateError,
					ErrorKind:  portmap.ErrorKindTlsFailed,
					LastChange: w.now(),
				})
				return
			}
		}
		w.report(action.Port.ID, portmap.Status{State: portmap.StateStarting, LastChange: w.now()})
		w.report(action.Port.ID, portmap.Status{State: portmap.StateListening, LastChange: w.now()})
	}
}

// checkTLS builds a crypto/tls.Certificate for every resolved cert to
// catch a chain/key mismatch before reporting Listening; the real
// worker this simulates would need the same parsed form to actually
// terminate TLS.
func checkTLS(certs map[string]*keyring.Cert) error {
	for _, cert := range certs {
		if _, err := storage.Tls(cert); err != nil {
			return err
		}
	}
	return nil
}

func (w *SimWorker) report(id ident.ID, status portmap.Status) {
	select {
	case w.updates <- StatusUpdate{ID: id, Status: status}:
	default:
		// the control loop's status channel reader is expected to
		// keep up; dropping here would desync port state, so in a
		// production worker this send would itself be unbounded or
		// backed by a larger buffer. The simulator's buffer (64) is
		// sized generously for tests and demos.
	}
}
