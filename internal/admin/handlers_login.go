package admin

import (
	"net/http"

	"github.com/picoHz/taxy-sub001/internal/rpc"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin is the one route reachable without a bearer token (§6):
// it exchanges credentials for a token minted by the control loop.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	method := rpc.Login{Username: req.Username, Password: req.Password}
	result, err := dispatch[rpc.LoginResult](r.Context(), s.queue, method)
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
