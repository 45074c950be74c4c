package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

func TestCheckerReportsHealthyUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(nil)
	site := sitemap.SiteEntry{
		ID:       "site00000000000000000001",
		Upstream: srv.URL,
		HealthCheck: &sitemap.HealthCheck{
			Path:     "/healthz",
			Interval: 10 * time.Millisecond,
			Timeout:  time.Second,
		},
	}
	c.Update([]sitemap.SiteEntry{site})
	defer c.Stop()

	require.Eventually(t, func() bool {
		result, ok := c.Result(site.ID)
		return ok && result.Healthy
	}, time.Second, 5*time.Millisecond)
}

func TestCheckerReportsUnhealthyUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(nil)
	site := sitemap.SiteEntry{
		ID:       "site00000000000000000002",
		Upstream: srv.URL,
		HealthCheck: &sitemap.HealthCheck{
			Path:     "/",
			Interval: 10 * time.Millisecond,
			Timeout:  time.Second,
		},
	}
	c.Update([]sitemap.SiteEntry{site})
	defer c.Stop()

	require.Eventually(t, func() bool {
		result, ok := c.Result(site.ID)
		return ok && !result.Healthy
	}, time.Second, 5*time.Millisecond)
}

func TestUpdateStopsWorkerForRemovedSite(t *testing.T) {
	c := New(nil)
	site := sitemap.SiteEntry{
		ID:       "site00000000000000000003",
		Upstream: "http://127.0.0.1:1",
		HealthCheck: &sitemap.HealthCheck{
			Path:     "/",
			Interval: time.Second,
			Timeout:  time.Second,
		},
	}
	c.Update([]sitemap.SiteEntry{site})
	_, ok := c.Result(site.ID)
	require.True(t, ok)

	c.Update(nil)
	_, ok = c.Result(site.ID)
	require.False(t, ok)
}
