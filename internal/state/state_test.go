package state_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/accounts"
	"github.com/picoHz/taxy-sub001/internal/apierr"
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

func newTestState(t *testing.T) (*state.State, chan state.Command) {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.ReconcileDebounce = time.Millisecond
	cfg.Argon2 = testParams()

	s := state.New(
		cfg,
		ident.NewRegistry(),
		keyring.New(),
		portmap.NewTable(),
		sitemap.NewTable(),
		accounts.New(testParams(), nil),
		event.New(),
		store,
		dataplane.NewSimWorker(nil),
		zap.NewNop(),
	)

	commands := make(chan state.Command, 8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx, commands)
	return s, commands
}

func TestAddPortReachesListening(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	port, err := state.Call(ctx, commands, func(s *state.State) (portmap.PortEntry, error) {
		return s.ApplyAddPort(portmap.PortEntry{Bind: []string{"0.0.0.0:8080"}, Protocol: portmap.ProtocolHTTP})
	})
	require.NoError(t, err)
	require.NotEmpty(t, port.ID)

	require.Eventually(t, func() bool {
		status, err := state.Call(ctx, commands, func(s *state.State) (portmap.Status, error) {
			return s.ApplyGetPortStatus(port.ID)
		})
		return err == nil && status.State == portmap.StateListening
	}, time.Second, 5*time.Millisecond)
}

func TestAddPortWithUnresolvedTlsReportsNoCert(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	port, err := state.Call(ctx, commands, func(s *state.State) (portmap.PortEntry, error) {
		return s.ApplyAddPort(portmap.PortEntry{
			Bind:     []string{"0.0.0.0:8443"},
			Protocol: portmap.ProtocolHTTPS,
			Tls:      &portmap.TlsTermination{ServerNames: []string{"example.com"}},
		})
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := state.Call(ctx, commands, func(s *state.State) (portmap.Status, error) {
			return s.ApplyGetPortStatus(port.ID)
		})
		return err == nil && status.State == portmap.StateError && status.ErrorKind == portmap.ErrorKindNoCert
	}, time.Second, 5*time.Millisecond)
}

func TestDeletePortRemovesStatus(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	port, err := state.Call(ctx, commands, func(s *state.State) (portmap.PortEntry, error) {
		return s.ApplyAddPort(portmap.PortEntry{Bind: []string{"0.0.0.0:8081"}, Protocol: portmap.ProtocolHTTP})
	})
	require.NoError(t, err)

	_, err = state.Call(ctx, commands, func(s *state.State) (struct{}, error) {
		return s.ApplyDeletePort(port.ID)
	})
	require.NoError(t, err)

	_, err = state.Call(ctx, commands, func(s *state.State) (portmap.Status, error) {
		return s.ApplyGetPortStatus(port.ID)
	})
	require.Error(t, err)
}

func TestLoginRoundTripThroughState(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	_, err := state.Call(ctx, commands, func(s *state.State) (struct{}, error) {
		return s.ApplyAddAccount("admin", "hunter2")
	})
	require.NoError(t, err)

	result, err := state.Call(ctx, commands, func(s *state.State) (rpc.LoginResult, error) {
		return s.ApplyLogin("admin", "hunter2")
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
}

func TestAddServerCertIsIdempotentEndToEnd(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	chainPEM, keyPEM := generateTestCertPEM(t)

	first, err := state.Call(ctx, commands, func(s *state.State) (keyring.CertInfo, error) {
		return s.ApplyAddServerCert(chainPEM, keyPEM, config.SourceAdmin)
	})
	require.NoError(t, err)

	second, err := state.Call(ctx, commands, func(s *state.State) (keyring.CertInfo, error) {
		return s.ApplyAddServerCert(chainPEM, keyPEM, config.SourceAdmin)
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestAddPortRejectsEmptyBind(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	_, err := state.Call(ctx, commands, func(s *state.State) (portmap.PortEntry, error) {
		return s.ApplyAddPort(portmap.PortEntry{Protocol: portmap.ProtocolHTTPS})
	})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.InvalidArg, apiErr.Kind)
}

func TestAddPortRejectsTlsProtocolWithoutTermination(t *testing.T) {
	_, commands := newTestState(t)
	ctx := context.Background()

	_, err := state.Call(ctx, commands, func(s *state.State) (portmap.PortEntry, error) {
		return s.ApplyAddPort(portmap.PortEntry{Bind: []string{"0.0.0.0:8443"}, Protocol: portmap.ProtocolHTTPS})
	})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.InvalidArg, apiErr.Kind)
}

// TestCallReturnsBusyWhenQueueIsFull exercises the back-pressure path
// from §5: a full command queue makes Call give up with apierr.Busy
// on its own short internal timeout, rather than hanging until the
// caller's own (here absent) context deadline.
func TestCallReturnsBusyWhenQueueIsFull(t *testing.T) {
	commands := make(chan state.Command) // unbuffered, nothing draining it

	_, err := state.Call(context.Background(), commands, func(s *state.State) (struct{}, error) {
		return struct{}{}, nil
	})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.Busy, apiErr.Kind)
}
