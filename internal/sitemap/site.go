// Package sitemap is the ordered, id-keyed collection of virtual-host
// routing entries (§4.3).
package sitemap

import (
	"net/url"
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
)

// HealthCheck configures the active probe the out-of-band health
// checker (§4.9) runs against a site's upstream.
type HealthCheck struct {
	Path     string        `json:"path" toml:"path"`
	Interval time.Duration `json:"interval" toml:"interval"`
	Timeout  time.Duration `json:"timeout" toml:"timeout"`
}

// SiteEntry maps a set of subject-name vhost patterns to an upstream
// proxy target.
type SiteEntry struct {
	ID          ident.ID     `json:"id" toml:"id"`
	Vhosts      []string     `json:"vhosts" toml:"vhosts"`
	Upstream    string       `json:"upstream" toml:"upstream"` // proxy target URL
	HealthCheck *HealthCheck `json:"health_check,omitempty" toml:"health_check,omitempty"`
}

// Validate checks the structural invariants from §3: non-empty
// vhosts, each a well-formed subject-name pattern, and a parseable
// upstream URL.
func (s SiteEntry) Validate() error {
	if len(s.Vhosts) == 0 {
		return apierr.InvalidField("vhosts", "at least one vhost pattern is required")
	}
	for _, v := range s.Vhosts {
		if !keyring.SubjectName(v).Validate() {
			return apierr.InvalidField("vhosts", "malformed subject-name pattern: "+v)
		}
	}
	if s.Upstream == "" {
		return apierr.InvalidField("upstream", "upstream target is required")
	}
	if _, err := url.Parse(s.Upstream); err != nil {
		return apierr.InvalidField("upstream", "not a valid URL: "+err.Error())
	}
	return nil
}

// Table is the ordered id→SiteEntry mapping.
type Table struct {
	entries map[ident.ID]SiteEntry
	order   []ident.ID
}

// NewTable returns an empty site table.
func NewTable() *Table {
	return &Table{entries: make(map[ident.ID]SiteEntry)}
}

// Add inserts entry, failing with AlreadyExists if entry.ID is
// already present.
func (t *Table) Add(entry SiteEntry) error {
	if _, ok := t.entries[entry.ID]; ok {
		return apierr.AlreadyExistsf("site %s already exists", entry.ID)
	}
	t.entries[entry.ID] = entry
	t.order = append(t.order, entry.ID)
	return nil
}

// Update replaces the entry at id, failing with NotFound if absent.
func (t *Table) Update(id ident.ID, entry SiteEntry) error {
	if _, ok := t.entries[id]; !ok {
		return apierr.NotFoundf("site %s not found", id)
	}
	entry.ID = id
	t.entries[id] = entry
	return nil
}

// Delete removes the entry at id. No-op if absent.
func (t *Table) Delete(id ident.ID) (changed bool) {
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the entry at id.
func (t *Table) Get(id ident.ID) (SiteEntry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// List returns every entry in insertion order.
func (t *Table) List() []SiteEntry {
	out := make([]SiteEntry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.order) }
