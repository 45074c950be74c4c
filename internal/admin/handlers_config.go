package admin

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"

	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

// configETag hashes cfg's JSON projection with xxhash to produce a
// weak entity tag for conditional PUT /api/config requests, so two
// admins editing concurrently get a 412 instead of silently
// clobbering one another.
func configETag(cfg config.AppConfig) string {
	data, _ := json.Marshal(cfg)
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := dispatch[config.AppConfig](r.Context(), s.queue, rpc.GetConfig{})
	if err != nil {
		writeAPIErr(w, err)
		return
	}
	w.Header().Set("ETag", configETag(cfg))
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.AppConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		current, err := dispatch[config.AppConfig](r.Context(), s.queue, rpc.GetConfig{})
		if err != nil {
			writeAPIErr(w, err)
			return
		}
		if ifMatch != configETag(current) {
			writeError(w, http.StatusPreconditionFailed, "config was modified since your If-Match etag")
			return
		}
	}

	if _, err := dispatch[config.AppConfig](r.Context(), s.queue, rpc.SetConfig{Config: cfg}); err != nil {
		writeAPIErr(w, err)
		return
	}
	writeNoContent(w)
}
