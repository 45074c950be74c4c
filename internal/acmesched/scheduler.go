package acmesched

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/metrics"
	"github.com/picoHz/taxy-sub001/internal/state"
)

// Scheduler periodically scans registered AcmeEntry identifiers
// against the keyring's current certs and issues renewals through
// Issuer, submitting the result back to the control loop as an
// ordinary AddServerCert command. It never touches State directly:
// every read and write goes through state.Call, the same path an
// admin HTTP handler uses.
type Scheduler struct {
	queue  chan state.Command
	issuer Issuer
	log    *zap.Logger

	// nextAttempt implements exponential backoff per (entry id,
	// domain) so a persistently failing directory doesn't retry every
	// scan tick and hammer the CA.
	nextAttempt map[string]time.Time
	failures    map[string]int
}

// New returns a Scheduler that submits commands on queue.
func New(queue chan state.Command, issuer Issuer, log *zap.Logger) *Scheduler {
	return &Scheduler{
		queue:       queue,
		issuer:      issuer,
		log:         log,
		nextAttempt: make(map[string]time.Time),
		failures:    make(map[string]int),
	}
}

// Run blocks, scanning on the configured AcmeScanPeriod, until ctx is
// cancelled. The scan period and renewal window are re-read from
// AppConfig at the start of every tick, so an admin changing either
// value takes effect without restarting the scheduler.
func (sch *Scheduler) Run(ctx context.Context) {
	period := sch.scanPeriod(ctx)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			newPeriod := sch.scanPeriod(ctx)
			if newPeriod != period {
				period = newPeriod
				ticker.Reset(period)
			}
			sch.scan(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (sch *Scheduler) scanPeriod(ctx context.Context) time.Duration {
	cfg, err := state.Call(ctx, sch.queue, func(s *state.State) (config.AppConfig, error) {
		return s.ApplyGetConfig()
	})
	if err != nil || cfg.AcmeScanPeriod <= 0 {
		return time.Hour
	}
	return cfg.AcmeScanPeriod
}

func (sch *Scheduler) scan(ctx context.Context) {
	cfg, err := state.Call(ctx, sch.queue, func(s *state.State) (config.AppConfig, error) {
		return s.ApplyGetConfig()
	})
	if err != nil {
		sch.log.Warn("acme scan: could not read config", zap.Error(err))
		return
	}

	entries, err := state.Call(ctx, sch.queue, func(s *state.State) ([]keyring.AcmeEntry, error) {
		return s.ApplyGetAcmeList()
	})
	if err != nil {
		sch.log.Warn("acme scan: could not list entries", zap.Error(err))
		return
	}

	certs, err := state.Call(ctx, sch.queue, func(s *state.State) ([]keyring.CertInfo, error) {
		return s.ApplyGetServerCertList()
	})
	if err != nil {
		sch.log.Warn("acme scan: could not list certs", zap.Error(err))
		return
	}

	now := time.Now()
	for _, entry := range entries {
		for _, domain := range entry.Identifiers {
			key := string(entry.ID) + "|" + domain
			if next, pending := sch.nextAttempt[key]; pending && now.Before(next) {
				continue
			}
			if !needsRenewal(certs, domain, now, cfg.AcmeRenewalWindow) {
				continue
			}
			sch.renew(ctx, entry, domain, key)
		}
	}
}

func needsRenewal(certs []keyring.CertInfo, domain string, now time.Time, window time.Duration) bool {
	for _, info := range certs {
		if info.Source != config.SourceAcme {
			continue
		}
		for _, subject := range info.Subjects {
			if subject.Matches(domain) {
				return info.NotAfter.Sub(now) < window
			}
		}
	}
	return true // no ACME-issued cert covers domain: first issuance
}

func (sch *Scheduler) renew(ctx context.Context, entry keyring.AcmeEntry, domain, key string) {
	chainPEM, keyPEM, err := sch.issuer.Issue(ctx, entry, domain)
	if err != nil {
		metrics.AcmeRenewals.WithLabelValues("failure").Inc()
		sch.failures[key]++
		delay := backoffDelay(sch.failures[key])
		sch.nextAttempt[key] = time.Now().Add(delay)
		sch.log.Warn("acme renewal failed, backing off",
			zap.String("domain", domain), zap.Duration("retry_in", delay), zap.Error(err))
		return
	}

	delete(sch.failures, key)
	delete(sch.nextAttempt, key)

	_, err = state.Call(ctx, sch.queue, func(s *state.State) (keyring.CertInfo, error) {
		return s.ApplyAddServerCert(chainPEM, keyPEM, config.SourceAcme)
	})
	if err != nil {
		metrics.AcmeRenewals.WithLabelValues("failure").Inc()
		sch.log.Warn("acme renewal issued but could not be stored", zap.String("domain", domain), zap.Error(err))
		return
	}
	metrics.AcmeRenewals.WithLabelValues("success").Inc()
	sch.log.Info("acme renewal succeeded", zap.String("domain", domain))
}

// backoffDelay grows exponentially from one minute, capped at six
// hours, so a CA outage doesn't get hammered every scan tick.
func backoffDelay(failures int) time.Duration {
	delay := time.Minute
	for i := 1; i < failures && delay < 6*time.Hour; i++ {
		delay *= 2
	}
	if delay > 6*time.Hour {
		delay = 6 * time.Hour
	}
	return delay
}
