package state

import (
	"time"

	"github.com/picoHz/taxy-sub001/internal/apierr"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

// ApplyLogin authenticates username/password and mints a bearer token.
// Tokens are not persisted (§3: a restart invalidates every session),
// so this never touches storage.
func (s *State) ApplyLogin(username, password string) (rpc.LoginResult, error) {
	token, err := s.accounts.Login(username, password)
	if err != nil {
		return rpc.LoginResult{}, err
	}
	return rpc.LoginResult{Token: token}, nil
}

// ApplyAddAccount creates a new admin account. Unlike Login, callers
// reach this only once already authenticated (enforced by the admin
// HTTP middleware, not here).
func (s *State) ApplyAddAccount(username, password string) (struct{}, error) {
	if username == "" {
		return struct{}{}, apierr.InvalidField("username", "must not be empty")
	}
	if password == "" {
		return struct{}{}, apierr.InvalidField("password", "must not be empty")
	}
	if err := s.accounts.Add(username, password, time.Now()); err != nil {
		return struct{}{}, err
	}
	if err := s.store.SaveAccounts(s.accounts.List()); err != nil {
		return struct{}{}, apierr.Wrap(apierr.IoError, err)
	}
	return struct{}{}, nil
}

// Authenticate reports whether token identifies a currently logged-in
// account. It is exported for the admin HTTP middleware to call
// directly through Call, since it performs no mutation.
func (s *State) Authenticate(token string) (username string, ok bool) {
	return s.accounts.Authenticate(token)
}
