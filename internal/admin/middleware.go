package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/picoHz/taxy-sub001/internal/state"
)

type contextKey string

const usernameContextKey contextKey = "admin_username"

var errInvalidToken = errors.New("admin: invalid or expired token")

// requireAuth enforces the bearer-token scheme from §6: every route in
// this package's authenticated group requires "Authorization: Bearer
// <token>", validated by asking the control loop whether the token is
// currently live.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		username, err := state.Call(r.Context(), s.queue, func(st *state.State) (string, error) {
			u, ok := st.Authenticate(token)
			if !ok {
				return "", errInvalidToken
			}
			return u, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), usernameContextKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
