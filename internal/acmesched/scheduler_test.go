package acmesched_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/accounts"
	"github.com/picoHz/taxy-sub001/internal/acmesched"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/dataplane"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
	"github.com/picoHz/taxy-sub001/internal/state"
	"github.com/picoHz/taxy-sub001/internal/storage"
)

type fakeIssuer struct {
	calls int
	fail  bool
}

func (f *fakeIssuer) Issue(ctx context.Context, entry keyring.AcmeEntry, domain string) ([]byte, []byte, error) {
	f.calls++
	if f.fail {
		return nil, nil, context.DeadlineExceeded
	}
	return generateLeafPEM(domain)
}

func newTestQueue(t *testing.T) chan state.Command {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	params := config.Argon2Params{MemoryKiB: 8, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 16}
	cfg := config.Default()
	cfg.AcmeScanPeriod = 20 * time.Millisecond
	cfg.AcmeRenewalWindow = 30 * 24 * time.Hour

	s := state.New(cfg, ident.NewRegistry(), keyring.New(), portmap.NewTable(), sitemap.NewTable(),
		accounts.New(params, nil), event.New(), store, dataplane.NewSimWorker(nil), zap.NewNop())

	commands := make(chan state.Command, 8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx, commands)
	return commands
}

func TestSchedulerIssuesForEntryWithNoExistingCert(t *testing.T) {
	commands := newTestQueue(t)
	ctx := context.Background()

	_, err := state.Call(ctx, commands, func(s *state.State) (keyring.AcmeEntry, error) {
		return s.ApplyAddAcme(keyring.AcmeEntry{
			DirectoryURL: "https://acme.example/dir",
			Identifiers:  []string{"example.com"},
		})
	})
	require.NoError(t, err)

	issuer := &fakeIssuer{}
	sch := acmesched.New(commands, issuer, zap.NewNop())
	runCtx, cancel := context.WithTimeout(ctx, 80*time.Millisecond)
	defer cancel()
	sch.Run(runCtx)

	require.GreaterOrEqual(t, issuer.calls, 1)

	certs, err := state.Call(ctx, commands, func(s *state.State) ([]keyring.CertInfo, error) {
		return s.ApplyGetServerCertList()
	})
	require.NoError(t, err)
	require.NotEmpty(t, certs)
}
