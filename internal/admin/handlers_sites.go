package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/picoHz/taxy-sub001/internal/ident"
	"github.com/picoHz/taxy-sub001/internal/rpc"
	"github.com/picoHz/taxy-sub001/internal/sitemap"
)

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := dispatch[[]sitemap.SiteEntry](r.Context(), s.queue, rpc.GetSiteList{})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var entry sitemap.SiteEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	created, err := dispatch[sitemap.SiteEntry](r.Context(), s.queue, rpc.AddSite{Entry: entry})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	var entry sitemap.SiteEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	updated, err := dispatch[sitemap.SiteEntry](r.Context(), s.queue, rpc.UpdateSite{ID: id, Entry: entry})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := ident.ID(chi.URLParam(r, "id"))
	if _, err := dispatch[struct{}](r.Context(), s.queue, rpc.DeleteSite{ID: id}); err != nil {
		writeAPIErr(w, err)
		return
	}
	writeNoContent(w)
}
