// Package reconcile computes the minimal set of data-plane actions
// needed to bring the running proxy in line with the desired
// PortEntry + SiteEntry + Cert state (§4.7). It holds no state of its
// own across calls beyond what the caller threads through as
// Snapshot; the server state / control loop owns the debounce timer
// that decides when to call Plan.
package reconcile

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

// ActionKind is one of the three instructions the core can issue to a
// data-plane worker (§4.6).
type ActionKind string

const (
	ActionStart  ActionKind = "start"
	ActionStop   ActionKind = "stop"
	ActionReload ActionKind = "reload"
)

// Action is one instruction for the data-plane worker pool: start,
// stop, or reload a single port, carrying the certificate snapshot
// the worker should present for each declared server-name pattern.
//
// MissingPatterns lists any declared server-name pattern that matched
// no cert in the keyring. The action is dispatched either way; when
// MissingPatterns is non-empty and Certs is empty, the worker reports
// the port as Error(NoCert).
type Action struct {
	Kind            ActionKind
	Port            portmap.PortEntry
	Certs           map[string]*keyring.Cert
	MissingPatterns []string
}

// Snapshot is the hash of every port's last-dispatched desired state
// (its entry, its bound site, and the certs resolved for it),
// compared against the current desired state to decide what changed
// (§4.7).
type Snapshot map[ident.ID]uint64

// Plan compares the desired ports/sites/keyring state against prev
// and returns the actions needed to converge, plus the snapshot to
// pass as prev on the next call.
func Plan(prev Snapshot, ports []portmap.PortEntry, sites map[ident.ID]sitemap.SiteEntry, kr *keyring.Keyring) (actions []Action, next Snapshot) {
	next = make(Snapshot, len(ports))
	seen := make(map[ident.ID]struct{}, len(ports))

	for _, port := range ports {
		seen[port.ID] = struct{}{}

		certs, missing := resolveCerts(port, kr)
		hash := hashPort(port, sites[port.SiteID], certs, missing)
		next[port.ID] = hash

		if oldHash, existed := prev[port.ID]; existed && oldHash == hash {
			continue // unchanged since last dispatch
		}

		kind := ActionReload
		if _, existed := prev[port.ID]; !existed {
			kind = ActionStart
		}

		actions = append(actions, Action{
			Kind:            kind,
			Port:            port,
			Certs:           certs,
			MissingPatterns: missing,
		})
	}

	for id := range prev {
		if _, stillDesired := seen[id]; !stillDesired {
			actions = append(actions, Action{Kind: ActionStop, Port: portmap.PortEntry{ID: id}})
		}
	}

	return actions, next
}

// resolveCerts picks the best-matching cert for every declared
// server-name pattern on port, per the §4.2 rule. Patterns with no
// match are returned in missing.
func resolveCerts(port portmap.PortEntry, kr *keyring.Keyring) (certs map[string]*keyring.Cert, missing []string) {
	if port.Tls == nil {
		return nil, nil
	}
	certs = make(map[string]*keyring.Cert, len(port.Tls.ServerNames))
	for _, pattern := range port.Tls.ServerNames {
		cert, ok := kr.FindBySubject(pattern)
		if !ok {
			missing = append(missing, pattern)
			continue
		}
		certs[pattern] = cert
	}
	return certs, missing
}

// hashPort hashes everything that should trigger a Reload when it
// changes: the port declaration itself, its bound site (if any), and
// the id of every cert resolved for it (not the cert bytes — a
// reissued cert with identical bytes is idempotent and shouldn't
// reload, per the keyring's own idempotence rule).
func hashPort(port portmap.PortEntry, site sitemap.SiteEntry, certs map[string]*keyring.Cert, missing []string) uint64 {
	certIDs := make(map[string]ident.ID, len(certs))
	for pattern, cert := range certs {
		certIDs[pattern] = cert.Info.ID
	}
	payload := struct {
		Port    portmap.PortEntry
		Site    sitemap.SiteEntry
		Certs   map[string]ident.ID
		Missing []string
	}{port, site, certIDs, missing}

	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of plain structs of strings/slices/maps cannot
		// fail; if it somehow did, fall back to a hash that can
		// never match a previous snapshot so we always reconcile.
		return xxhash.Sum64String(port.ID.String())
	}
	return xxhash.Sum64(data)
}
