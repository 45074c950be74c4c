package accounts

import (
	"testing"
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/stretchr/testify/require"
)

func testParams() config.Argon2Params {
	// tiny cost parameters so the test suite stays fast
	return config.Argon2Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}
}

func TestLoginRoundTrip(t *testing.T) {
	s := New(testParams(), nil)
	require.NoError(t, s.Add("admin", "hunter2", time.Now()))

	token, err := s.Login("admin", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, ok := s.Authenticate(token)
	require.True(t, ok)
	require.Equal(t, "admin", username)
}

func TestLoginFailsWithoutDisclosingAccountExistence(t *testing.T) {
	s := New(testParams(), nil)
	require.NoError(t, s.Add("admin", "hunter2", time.Now()))

	_, errKnownUser := s.Login("admin", "wrong")
	_, errUnknownUser := s.Login("nobody", "wrong")

	for _, err := range []error{errKnownUser, errUnknownUser} {
		apiErr, ok := apierr.As(err)
		require.True(t, ok)
		require.Equal(t, apierr.AuthFailed, apiErr.Kind)
	}
}
