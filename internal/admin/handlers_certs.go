package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

func (s *Server) handleListCerts(w http.ResponseWriter, r *http.Request) {
	certs, err := dispatch[[]keyring.CertInfo](r.Context(), s.queue, rpc.GetServerCertList{})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, certs)
}

// addCertRequest carries the PEM bundle for POST /api/server_certs:
// a certificate chain and its private key, both PEM encoded.
type addCertRequest struct {
	ChainPEM string `json:"chain_pem"`
	KeyPEM   string `json:"key_pem"`
}

func (s *Server) handleAddCert(w http.ResponseWriter, r *http.Request) {
	var req addCertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	method := rpc.AddServerCert{
		ChainPEM: []byte(req.ChainPEM),
		KeyPEM:   []byte(req.KeyPEM),
		Source:   config.SourceAdmin,
	}
	info, err := dispatch[keyring.CertInfo](r.Context(), s.queue, method)
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleDeleteCert(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	if _, err := dispatch[struct{}](r.Context(), s.queue, rpc.DeleteServerCert{ID: id}); err != nil {
		writeAPIErr(w, err)
		return
	}
	writeNoContent(w)
}
