// Package rpc defines the admin method values described in §4.5: one
// plain data type per admin operation. A method value carries no
// behavior of its own — applying it to the control loop's state and
// producing a typed result is entirely the job of the state package's
// Dispatch type switch, its Apply* methods, and the generic Call helper
// that boxes them for the command queue. Keeping methods as inert data
// here (rather than as objects with a Call/Apply method) keeps this
// package free of any import of state; callers that submit a method
// (the admin handlers) still import state for Call and Dispatch.
package rpc

import (
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

// GetConfig retrieves the current AppConfig.
type GetConfig struct{}

// SetConfig atomically replaces the AppConfig.
type SetConfig struct {
	Config config.AppConfig
}

// GetPortList retrieves every PortEntry in table order.
type GetPortList struct{}

// GetPortStatus retrieves the live status of a single port.
type GetPortStatus struct {
	ID ident.ID
}

// GetPort retrieves a single PortEntry by id.
type GetPort struct {
	ID ident.ID
}

// AddPort creates a new port. The caller leaves Entry.ID empty; the
// state assigns one and returns it in the result.
type AddPort struct {
	Entry portmap.PortEntry
}

// UpdatePort replaces an existing port's declaration.
type UpdatePort struct {
	ID    ident.ID
	Entry portmap.PortEntry
}

// DeletePort removes a port and its status.
type DeletePort struct {
	ID ident.ID
}

// GetSiteList retrieves every SiteEntry.
type GetSiteList struct{}

// AddSite creates a new site.
type AddSite struct {
	Entry sitemap.SiteEntry
}

// UpdateSite replaces an existing site's declaration.
type UpdateSite struct {
	ID    ident.ID
	Entry sitemap.SiteEntry
}

// DeleteSite removes a site. Ports bound to it are left with a
// dangling SiteID; the reconciler plans them against an empty
// SiteEntry and does not flag them.
type DeleteSite struct {
	ID ident.ID
}

// GetServerCertList retrieves every cert's redacted CertInfo.
type GetServerCertList struct{}

// AddServerCert adds (or idempotently re-adds) a certificate from PEM
// bytes. Source distinguishes an admin upload from an ACME issuance.
type AddServerCert struct {
	ChainPEM []byte
	KeyPEM   []byte
	Source   config.Source
}

// DeleteServerCert removes a certificate by id.
type DeleteServerCert struct {
	ID ident.ID
}

// GetAcmeList retrieves every AcmeEntry.
type GetAcmeList struct{}

// AddAcme registers (or replaces) an ACME account/domain entry. The
// caller leaves Entry.ID empty for a new entry.
type AddAcme struct {
	Entry keyring.AcmeEntry
}

// DeleteAcme removes an ACME entry.
type DeleteAcme struct {
	ID ident.ID
}

// Login exchanges a username/password for a bearer token. It is the
// one method permitted without an existing token (§6).
type Login struct {
	Username string
	Password string
}

// LoginResult is Login's successful output.
type LoginResult struct {
	Token string `json:"token"`
}

// AddAccount creates a new admin account. Unlike Login, it requires
// an already-authenticated caller.
type AddAccount struct {
	Username string
	Password string
}
