package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/portmap"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

func (s *Server) handleListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := dispatch[[]portmap.PortEntry](r.Context(), s.queue, rpc.GetPortList{})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ports)
}

func (s *Server) handleCreatePort(w http.ResponseWriter, r *http.Request) {
	var entry portmap.PortEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	created, err := dispatch[portmap.PortEntry](r.Context(), s.queue, rpc.AddPort{Entry: entry})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleGetPort(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	entry, err := dispatch[portmap.PortEntry](r.Context(), s.queue, rpc.GetPort{ID: id})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleUpdatePort(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	var entry portmap.PortEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	updated, err := dispatch[portmap.PortEntry](r.Context(), s.queue, rpc.UpdatePort{ID: id, Entry: entry})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePort(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	if _, err := dispatch[struct{}](r.Context(), s.queue, rpc.DeletePort{ID: id}); err != nil {
		writeAPIErr(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleGetPortStatus(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	status, err := dispatch[portmap.Status](r.Context(), s.queue, rpc.GetPortStatus{ID: id})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
