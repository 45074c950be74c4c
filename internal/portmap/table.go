package portmap

import (
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/ident"
)

// Table is the ordered id→PortEntry mapping described in §4.3,
// together with each entry's live Status. Ordering reflects
// user-chosen insertion order for display purposes; it is not
// semantically meaningful otherwise.
type Table struct {
	entries map[ident.ID]PortEntry
	status  map[ident.ID]Status
	order   []ident.ID
}

// NewTable returns an empty port table.
func NewTable() *Table {
	return &Table{
		entries: make(map[ident.ID]PortEntry),
		status:  make(map[ident.ID]Status),
	}
}

// Add inserts entry. It fails with AlreadyExists if entry.ID is
// already present (§4.3).
func (t *Table) Add(entry PortEntry, now time.Time) error {
	if _, ok := t.entries[entry.ID]; ok {
		return apierr.AlreadyExistsf("port %s already exists", entry.ID)
	}
	t.entries[entry.ID] = entry
	t.status[entry.ID] = NewStatus(now)
	t.order = append(t.order, entry.ID)
	return nil
}

// Update replaces the entry at id. It fails with NotFound if id is
// absent (§4.3). The entry's status is left untouched; reconciliation
// updates it once the data plane reacts to the change.
func (t *Table) Update(id ident.ID, entry PortEntry) error {
	if _, ok := t.entries[id]; !ok {
		return apierr.NotFoundf("port %s not found", id)
	}
	entry.ID = id
	t.entries[id] = entry
	return nil
}

// Delete removes the entry and its status at id. No-op if absent.
func (t *Table) Delete(id ident.ID) (changed bool) {
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	delete(t.status, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the entry at id.
func (t *Table) Get(id ident.ID) (PortEntry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// List returns every entry in insertion order.
func (t *Table) List() []PortEntry {
	out := make([]PortEntry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}

// Status returns the live status at id.
func (t *Table) Status(id ident.ID) (Status, bool) {
	s, ok := t.status[id]
	return s, ok
}

// SetStatus records a new status for id, as reported by a data-plane
// worker, and returns the status it replaced. It is a no-op if id no
// longer exists (the port may have been deleted while a status update
// was in flight).
func (t *Table) SetStatus(id ident.ID, status Status) (previous Status, changed bool) {
	if _, ok := t.entries[id]; !ok {
		return Status{}, false
	}
	previous = t.status[id]
	t.status[id] = status
	return previous, true
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.order) }
