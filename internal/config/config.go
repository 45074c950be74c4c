// Package config holds AppConfig, the single always-present settings
// document that controls the admin bind address, log level, certificate
// search paths, background task periods, and password hashing cost.
package config

import "time"

// Source distinguishes why a mutation happened, carried on
// AppConfigUpdated (and reused on the other *Updated events) so
// subscribers can tell an admin edit from a file-reload or an
// ACME-driven change.
type Source string

const (
	SourceAdmin  Source = "admin"
	SourceReload Source = "reload"
	SourceAcme   Source = "acme"
)

// Argon2Params carries the memory-hard KDF cost parameters used to
// hash account passwords with argon2id.
type Argon2Params struct {
	MemoryKiB   uint32 `toml:"memory_kib" json:"memory_kib"`
	Iterations  uint32 `toml:"iterations" json:"iterations"`
	Parallelism uint8  `toml:"parallelism" json:"parallelism"`
	SaltLen     uint32 `toml:"salt_len" json:"salt_len"`
	KeyLen      uint32 `toml:"key_len" json:"key_len"`
}

// DefaultArgon2Params returns 64 MiB of memory, 3 iterations, 2 lanes,
// a 16-byte salt and a 32-byte key.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// AppConfig is the top-level, always-present configuration document.
// It is replaced atomically by SetConfig and is otherwise read-only
// from every other component's perspective.
type AppConfig struct {
	// AdminBind is the address the admin HTTP surface listens on,
	// e.g. "127.0.0.1:2019". Overridable by TAXY_WEBUI_BIND.
	AdminBind string `toml:"admin_bind" json:"admin_bind"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Overridable by TAXY_LOG.
	LogLevel string `toml:"log_level" json:"log_level"`

	// CertSearchPaths is stored and persisted with the rest of the
	// config, but no component reads it: boot loads certificates only
	// from the config root's certs/ directory.
	CertSearchPaths []string `toml:"cert_search_paths" json:"cert_search_paths"`

	// ReconcileDebounce is the coalescing window for bursts of
	// table/keyring mutations before the reconciler runs (§4.7).
	ReconcileDebounce time.Duration `toml:"reconcile_debounce" json:"reconcile_debounce"`

	// AcmeScanPeriod is how often the ACME scheduler scans for
	// renewal candidates (§4.8).
	AcmeScanPeriod time.Duration `toml:"acme_scan_period" json:"acme_scan_period"`

	// AcmeRenewalWindow is how far before expiry a cert becomes a
	// renewal candidate (§4.8).
	AcmeRenewalWindow time.Duration `toml:"acme_renewal_window" json:"acme_renewal_window"`

	// ShutdownDrainTimeout bounds how long the admin HTTP listener is
	// given to finish in-flight requests on shutdown (§5 Cancellation).
	// Port workers are not sent Stop and are not drained on shutdown.
	ShutdownDrainTimeout time.Duration `toml:"shutdown_drain_timeout" json:"shutdown_drain_timeout"`

	// EventQueueSize is the bounded per-subscriber queue depth for
	// the event bus (§4.4).
	EventQueueSize int `toml:"event_queue_size" json:"event_queue_size"`

	// CommandQueueSize bounds the command queue (§5).
	CommandQueueSize int `toml:"command_queue_size" json:"command_queue_size"`

	// Argon2 carries the password hashing cost parameters.
	Argon2 Argon2Params `toml:"argon2" json:"argon2"`
}

// Default returns the AppConfig used when no config.toml exists yet,
// matching the "always present (default if unset)" invariant in §3.
func Default() AppConfig {
	return AppConfig{
		AdminBind:            "127.0.0.1:2019",
		LogLevel:             "info",
		CertSearchPaths:      nil,
		ReconcileDebounce:    50 * time.Millisecond,
		AcmeScanPeriod:       time.Hour,
		AcmeRenewalWindow:    30 * 24 * time.Hour,
		ShutdownDrainTimeout: 10 * time.Second,
		EventQueueSize:       16,
		CommandQueueSize:     1024,
		Argon2:               DefaultArgon2Params(),
	}
}
