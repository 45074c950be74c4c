// Package health runs an active probe per site whose HealthCheck is
// configured, entirely out of band of the control loop (§4.9): a
// failing upstream never blocks or slows down command processing, it
// only updates a result a reader can poll independently.
package health

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

// Result is the outcome of the most recent probe for one site.
type Result struct {
	Healthy   bool
	CheckedAt time.Time
	Detail    string
}

// Checker owns one background worker per monitored site. Update
// replaces the monitored set; workers for sites that disappear are
// stopped, workers for new or changed sites are (re)started.
type Checker struct {
	mu      sync.Mutex
	workers map[ident.ID]*worker
	client  *http.Client
}

// New returns a Checker using client for probes, or a default
// client with a generous overall timeout if client is nil.
func New(client *http.Client) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Checker{workers: make(map[ident.ID]*worker), client: client}
}

// Update reconciles the set of running probe workers against sites:
// sites without a HealthCheck are not probed at all.
func (c *Checker) Update(sites []sitemap.SiteEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	desired := make(map[ident.ID]sitemap.SiteEntry, len(sites))
	for _, site := range sites {
		if site.HealthCheck != nil {
			desired[site.ID] = site
		}
	}

	for id, w := range c.workers {
		if _, ok := desired[id]; !ok {
			w.stop()
			delete(c.workers, id)
		}
	}

	for id, site := range desired {
		if w, ok := c.workers[id]; ok {
			if w.site.Upstream == site.Upstream && *w.site.HealthCheck == *site.HealthCheck {
				continue // unchanged, leave the worker running
			}
			w.stop()
		}
		w := newWorker(site, c.client)
		c.workers[id] = w
		go w.run()
	}
}

// Result returns the most recent probe outcome for id, if a worker is
// currently monitoring it.
func (c *Checker) Result(id ident.ID) (Result, bool) {
	c.mu.Lock()
	w, ok := c.workers[id]
	c.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	return w.load(), true
}

// Stop halts every running worker, e.g. on server shutdown.
func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, w := range c.workers {
		w.stop()
		delete(c.workers, id)
	}
}

type worker struct {
	site   sitemap.SiteEntry
	client *http.Client
	stopCh chan struct{}
	result atomic.Value // Result
}

func newWorker(site sitemap.SiteEntry, client *http.Client) *worker {
	w := &worker{site: site, client: client, stopCh: make(chan struct{})}
	w.result.Store(Result{})
	return w
}

func (w *worker) stop() { close(w.stopCh) }

func (w *worker) load() Result {
	r, _ := w.result.Load().(Result)
	return r
}

func (w *worker) run() {
	interval := w.site.HealthCheck.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.probe()
	for {
		select {
		case <-ticker.C:
			w.probe()
		case <-w.stopCh:
			return
		}
	}
}

func (w *worker) probe() {
	timeout := w.site.HealthCheck.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	target, err := url.Parse(w.site.Upstream)
	if err != nil {
		w.result.Store(Result{Healthy: false, CheckedAt: time.Now(), Detail: err.Error()})
		return
	}
	target.Path = w.site.HealthCheck.Path

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		w.result.Store(Result{Healthy: false, CheckedAt: time.Now(), Detail: err.Error()})
		return
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.result.Store(Result{Healthy: false, CheckedAt: time.Now(), Detail: err.Error()})
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 400
	detail := resp.Status
	w.result.Store(Result{Healthy: healthy, CheckedAt: time.Now(), Detail: detail})
}
