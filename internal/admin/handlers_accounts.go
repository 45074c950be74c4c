package admin

import (
	"net/http"

	"github.com/picoHz/taxy-sub001/internal/rpc"
)

type addAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var req addAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	method := rpc.AddAccount{Username: req.Username, Password: req.Password}
	if _, err := dispatch[struct{}](r.Context(), s.queue, method); err != nil {
		writeAPIErr(w, err)
		return
	}
	writeNoContent(w)
}
