// Package event implements the server event bus: a single broadcaster
// with many bounded, lossy-per-slow-subscriber queues (§4.4).
package event

import (
	"encoding/json"

	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

// Kind names one of the event kinds emitted by the core.
type Kind string

const (
	KindAppConfigUpdated  Kind = "app_config_updated"
	KindPortTableUpdated  Kind = "port_table_updated"
	KindPortStatusUpdated Kind = "port_status_updated"
	KindServerCertsUpdated Kind = "server_certs_updated"
	KindSitesUpdated      Kind = "sites_updated"
	KindAcmeUpdated       Kind = "acme_updated"
	KindShutdown          Kind = "shutdown"
	// KindLagged never originates from the core; it is synthesized
	// by the bus for a single subscriber that fell behind, so that
	// receiver can detect loss (§4.4, §8 scenario 4).
	KindLagged Kind = "lagged"
)

// Event is the sum type of everything the bus can deliver. Concrete
// payload types below implement it; Kind identifies which one a
// consumer received after a type switch.
type Event interface {
	Kind() Kind
}

type AppConfigUpdated struct {
	Config config.AppConfig `json:"config"`
	Source config.Source    `json:"source"`
}

func (AppConfigUpdated) Kind() Kind { return KindAppConfigUpdated }

type PortTableUpdated struct {
	Entries []portmap.PortEntry `json:"entries"`
}

func (PortTableUpdated) Kind() Kind { return KindPortTableUpdated }

type PortStatusUpdated struct {
	ID     ident.ID       `json:"id"`
	Status portmap.Status `json:"status"`
}

func (PortStatusUpdated) Kind() Kind { return KindPortStatusUpdated }

type ServerCertsUpdated struct {
	Items []keyring.CertInfo `json:"items"`
}

func (ServerCertsUpdated) Kind() Kind { return KindServerCertsUpdated }

type SitesUpdated struct {
	Items []sitemap.SiteEntry `json:"items"`
}

func (SitesUpdated) Kind() Kind { return KindSitesUpdated }

type AcmeUpdated struct {
	Items []keyring.AcmeEntry `json:"items"`
}

func (AcmeUpdated) Kind() Kind { return KindAcmeUpdated }

type Shutdown struct{}

func (Shutdown) Kind() Kind { return KindShutdown }

// Lagged is delivered in place of whatever events were dropped for a
// slow subscriber; N is how many were dropped.
type Lagged struct {
	N int `json:"n"`
}

func (Lagged) Kind() Kind { return KindLagged }

// MarshalJSONLine renders ev as the tagged-object JSON-lines format
// from §6: {"event": "<kind>", ...fields}.
func MarshalJSONLine(ev Event) ([]byte, error) {
	fields, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	kindJSON, err := json.Marshal(ev.Kind())
	if err != nil {
		return nil, err
	}
	m["event"] = kindJSON
	return json.Marshal(m)
}

