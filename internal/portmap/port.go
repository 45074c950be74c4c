// Package portmap is the ordered, id-keyed collection of listener
// declarations (PortEntry) and their live PortStatus, per §4.3 and the
// port state machine in §4.6.
package portmap

import (
	"net"
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/ident"
)

// Protocol is the wire protocol a port terminates or passes through.
type Protocol string

const (
	ProtocolTCP   Protocol = "tcp"
	ProtocolTLS   Protocol = "tls"
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// RequiresTLS reports whether the protocol requires a TlsTermination
// on its PortEntry.
func (p Protocol) RequiresTLS() bool {
	return p == ProtocolTLS || p == ProtocolHTTPS
}

// TlsTermination configures TLS termination for a port: the set of
// server-name patterns it is prepared to present a certificate for.
type TlsTermination struct {
	ServerNames []string `json:"server_names" toml:"server_names"`
}

// PortEntry is a user-declared listener: one or more bind addresses,
// a protocol, optional TLS termination, and an optional upstream site
// binding (by id, never by pointer, per the Design Notes on cyclic
// references).
type PortEntry struct {
	ID       ident.ID        `json:"id" toml:"id"`
	Bind     []string        `json:"bind" toml:"bind"`
	Protocol Protocol        `json:"protocol" toml:"protocol"`
	Tls      *TlsTermination `json:"tls,omitempty" toml:"tls,omitempty"`
	SiteID   ident.ID        `json:"site_id,omitempty" toml:"site_id,omitempty"`
}

// Validate checks the structural invariants from §3: at least one
// bind address, each a parseable host:port, and a TlsTermination with
// at least one server name whenever the protocol requires TLS.
func (e PortEntry) Validate() error {
	if len(e.Bind) == 0 {
		return apierr.InvalidField("bind", "at least one bind address is required")
	}
	for _, b := range e.Bind {
		if _, _, err := net.SplitHostPort(b); err != nil {
			return apierr.InvalidField("bind", "malformed bind address: "+b)
		}
	}
	if e.Protocol.RequiresTLS() {
		if e.Tls == nil || len(e.Tls.ServerNames) == 0 {
			return apierr.InvalidField("tls", "tls termination with at least one server name is required for protocol "+string(e.Protocol))
		}
	}
	return nil
}

// State is one state of the port lifecycle state machine in §4.6.
type State string

const (
	StateUnused    State = "unused"
	StateStarting  State = "starting"
	StateListening State = "listening"
	StateStopping  State = "stopping"
	StateError     State = "error"
)

// ErrorKind further classifies a StateError status.
type ErrorKind string

const (
	ErrorKindBindFailed ErrorKind = "bind_failed"
	ErrorKindTlsFailed  ErrorKind = "tls_failed"
	ErrorKindNoCert     ErrorKind = "no_cert"
)

// Status is the live, worker-owned status of a port. Only data-plane
// workers (via a status-update command) may mutate this; the core
// never writes it directly except to initialize it to Unused on add.
type Status struct {
	State      State     `json:"state"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	LastChange time.Time `json:"last_change"`
}

// NewStatus returns the initial Unused status for a freshly-added port.
func NewStatus(now time.Time) Status {
	return Status{State: StateUnused, LastChange: now}
}
