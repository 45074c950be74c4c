package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/picoHz/taxy-sub001/internal/accounts"
	"github.com/picoHz/taxy-sub001/internal/acmesched"
	"github.com/picoHz/taxy-sub001/internal/admin"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/dataplane"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/health"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
	"github.com/picoHz/taxy-sub001/internal/state"
	"github.com/picoHz/taxy-sub001/internal/storage"
)

// app bundles every long-running component assembled at boot, so
// run's shutdown sequence has one place to reach into.
type app struct {
	log          *zap.Logger
	queue        chan state.Command
	scheduler    *acmesched.Scheduler
	checker      *health.Checker
	admin        *http.Server
	drainTimeout time.Duration
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// loadApp reads the config root at dir, reconstructs every in-memory
// table/keyring/account store from it, and assembles (without
// starting) every component the run command needs.
func loadApp(dir string) (*app, *state.State, error) {
	store, err := storage.Open(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config root: %w", err)
	}

	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config.toml: %w", err)
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envAdminBind); v != "" {
		cfg.AdminBind = v
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	ids := ident.NewRegistry()

	portEntries, err := store.LoadPorts()
	if err != nil {
		return nil, nil, fmt.Errorf("loading ports.toml: %w", err)
	}
	ports := portmap.NewTable()
	now := time.Now()
	for _, entry := range portEntries {
		ids.Reserve(ident.KindPort, entry.ID)
		if err := ports.Add(entry, now); err != nil {
			return nil, nil, fmt.Errorf("restoring port %s: %w", entry.ID, err)
		}
	}

	siteEntries, err := store.LoadSites()
	if err != nil {
		return nil, nil, fmt.Errorf("loading sites.toml: %w", err)
	}
	sites := sitemap.NewTable()
	for _, entry := range siteEntries {
		ids.Reserve(ident.KindSite, entry.ID)
		if err := sites.Add(entry); err != nil {
			return nil, nil, fmt.Errorf("restoring site %s: %w", entry.ID, err)
		}
	}

	acmeEntries, err := store.LoadAcme()
	if err != nil {
		return nil, nil, fmt.Errorf("loading acme.toml: %w", err)
	}
	kr := keyring.New()
	for i := range acmeEntries {
		ids.Reserve(ident.KindAcme, acmeEntries[i].ID)
		if err := kr.AddAcme(&acmeEntries[i]); err != nil {
			return nil, nil, fmt.Errorf("restoring acme entry %s: %w", acmeEntries[i].ID, err)
		}
	}

	certs, err := store.LoadCerts(config.SourceReload, func(path string, err error) {
		log.Warn("skipping corrupt certificate file", zap.String("path", path), zap.Error(err))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading certs: %w", err)
	}
	for _, cert := range certs {
		ids.Reserve(ident.KindCert, cert.Info.ID)
		kr.Add(cert)
	}

	accountEntries, err := store.LoadAccounts()
	if err != nil {
		return nil, nil, fmt.Errorf("loading accounts.toml: %w", err)
	}
	acct := accounts.New(cfg.Argon2, accountEntries)

	bus := event.New()
	worker := dataplane.NewSimWorker(nil)

	s := state.New(cfg, ids, kr, ports, sites, acct, bus, store, worker, log)

	queue := make(chan state.Command, cfg.CommandQueueSize)

	acmeStorage, err := storage.NewAcmeStorage(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening acme storage: %w", err)
	}
	issuer := acmesched.NewCertmagicIssuer(acmeStorage)
	scheduler := acmesched.New(queue, issuer, log)

	checker := health.New(&http.Client{Timeout: 5 * time.Second})
	checker.Update(sites.List())

	adminSrv := admin.New(queue, bus, log, buildVersion)
	httpSrv := &http.Server{
		Addr:    cfg.AdminBind,
		Handler: adminSrv.Router(),
	}

	return &app{
		log:          log,
		queue:        queue,
		scheduler:    scheduler,
		checker:      checker,
		admin:        httpSrv,
		drainTimeout: cfg.ShutdownDrainTimeout,
	}, s, nil
}
