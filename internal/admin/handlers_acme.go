package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/keyring"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

func (s *Server) handleListAcme(w http.ResponseWriter, r *http.Request) {
	entries, err := dispatch[[]keyring.AcmeEntry](r.Context(), s.queue, rpc.GetAcmeList{})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddAcme(w http.ResponseWriter, r *http.Request) {
	var entry keyring.AcmeEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	created, err := dispatch[keyring.AcmeEntry](r.Context(), s.queue, rpc.AddAcme{Entry: entry})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteAcme(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	if _, err := dispatch[struct{}](r.Context(), s.queue, rpc.DeleteAcme{ID: id}); err != nil {
		writeAPIErr(w, err)
		return
	}
	writeNoContent(w)
}
