package reconcile

import (
	"testing"
	"time"

	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/stretchr/testify/require"
)

func TestPlanStartsNewPort(t *testing.T) {
	kr := keyring.New()
	port := portmap.PortEntry{ID: "port000000000000000000a", Bind: []string{"0.0.0.0:80"}, Protocol: portmap.ProtocolHTTP}

	actions, next := Plan(nil, []portmap.PortEntry{port}, nil, kr)
	require.Len(t, actions, 1)
	require.Equal(t, ActionStart, actions[0].Kind)
	require.Contains(t, next, port.ID)
}

func TestPlanStopsRemovedPort(t *testing.T) {
	kr := keyring.New()
	port := portmap.PortEntry{ID: "port000000000000000000a", Bind: []string{"0.0.0.0:80"}, Protocol: portmap.ProtocolHTTP}

	_, prev := Plan(nil, []portmap.PortEntry{port}, nil, kr)
	actions, next := Plan(prev, nil, nil, kr)

	require.Len(t, actions, 1)
	require.Equal(t, ActionStop, actions[0].Kind)
	require.Empty(t, next)
}

func TestPlanIsStableWhenNothingChanges(t *testing.T) {
	kr := keyring.New()
	port := portmap.PortEntry{ID: "port000000000000000000a", Bind: []string{"0.0.0.0:80"}, Protocol: portmap.ProtocolHTTP}

	_, prev := Plan(nil, []portmap.PortEntry{port}, nil, kr)
	actions, _ := Plan(prev, []portmap.PortEntry{port}, nil, kr)
	require.Empty(t, actions, "an unchanged desired state must not produce any action")
}

func TestPlanFlagsMissingCertPattern(t *testing.T) {
	kr := keyring.New()
	port := portmap.PortEntry{
		ID:       "port000000000000000000b",
		Bind:     []string{"0.0.0.0:443"},
		Protocol: portmap.ProtocolHTTPS,
		Tls:      &portmap.TlsTermination{ServerNames: []string{"example.com"}},
	}

	actions, _ := Plan(nil, []portmap.PortEntry{port}, nil, kr)
	require.Len(t, actions, 1)
	require.Equal(t, []string{"example.com"}, actions[0].MissingPatterns)
}

func TestPlanResolvesMatchingCert(t *testing.T) {
	kr := keyring.New()
	cert := &keyring.Cert{}
	cert.Info.ID = "certaaaaaaaaaaaaaaaaaaaa"
	cert.Info.Subjects = []keyring.SubjectName{"example.com"}
	cert.Info.NotBefore = time.Now()
	require.True(t, kr.Add(cert))

	port := portmap.PortEntry{
		ID:       "port000000000000000000c",
		Bind:     []string{"0.0.0.0:443"},
		Protocol: portmap.ProtocolHTTPS,
		Tls:      &portmap.TlsTermination{ServerNames: []string{"example.com"}},
	}

	actions, _ := Plan(nil, []portmap.PortEntry{port}, nil, kr)
	require.Len(t, actions, 1)
	require.Empty(t, actions[0].MissingPatterns)
	require.Equal(t, cert.Info.ID, actions[0].Certs["example.com"].Info.ID)
}
