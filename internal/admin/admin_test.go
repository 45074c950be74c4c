package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/accounts"
	"github.com/picoHz/taxy-sub001/internal/admin"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/dataplane"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/rpc"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
	"github.com/picoHz/taxy-sub001/internal/state"
	"github.com/picoHz/taxy-sub001/internal/storage"
)

func testParams() config.Argon2Params {
	return config.Argon2Params{MemoryKiB: 8, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 16}
}

// newTestServer wires a full state.State plus an admin.Server pointed
// at it, exactly the shape cmd/taxy assembles at boot, and returns an
// httptest.Server along with a seeded admin account's bearer token.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.ReconcileDebounce = time.Millisecond
	cfg.Argon2 = testParams()

	bus := event.New()
	s := state.New(
		cfg,
		ident.NewRegistry(),
		keyring.New(),
		portmap.NewTable(),
		sitemap.NewTable(),
		accounts.New(testParams(), nil),
		bus,
		store,
		dataplane.NewSimWorker(nil),
		zap.NewNop(),
	)

	commands := make(chan state.Command, 8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx, commands)

	_, err = state.Call(ctx, commands, func(st *state.State) (struct{}, error) {
		return st.ApplyAddAccount("admin", "hunter2")
	})
	require.NoError(t, err)

	login, err := state.Call(ctx, commands, func(st *state.State) (rpc.LoginResult, error) {
		return st.ApplyLogin("admin", "hunter2")
	})
	require.NoError(t, err)

	srv := admin.New(commands, bus, zap.NewNop(), "test-version")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, login.Token
}

func authedRequest(t *testing.T, ts *httptest.Server, token, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestLoginSucceedsWithValidCredentials(t *testing.T) {
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	resp, err := ts.Client().Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
}

func TestLoginFailsWithBadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := ts.Client().Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPortsRouteRejectsMissingToken(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/ports")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndFetchPort(t *testing.T) {
	ts, token := newTestServer(t)

	body, _ := json.Marshal(portmap.PortEntry{Bind: []string{"0.0.0.0:8080"}, Protocol: portmap.ProtocolHTTP})
	resp := authedRequest(t, ts, token, http.MethodPost, "/api/ports", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created portmap.PortEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	getResp := authedRequest(t, ts, token, http.MethodGet, "/api/ports/"+string(created.ID), nil)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestGetMissingPortReturns404(t *testing.T) {
	ts, token := newTestServer(t)

	resp := authedRequest(t, ts, token, http.MethodGet, "/api/ports/doesnotexist00000000000", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAppInfoIsUnauthenticated(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/app_info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info admin.AppInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, "test-version", info.Version)
}
