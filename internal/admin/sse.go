package admin

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/config"
	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/rpc"
)

// handleEvents streams the server event bus as the JSON-lines
// server-sent-events format from §6, terminating the connection once
// a Shutdown event is delivered or the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	capacity := event.DefaultCapacity
	if cfg, err := dispatch[config.AppConfig](r.Context(), s.queue, rpc.GetConfig{}); err == nil {
		capacity = cfg.EventQueueSize
	}
	sub := s.bus.Subscribe(capacity)
	defer s.bus.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			if !errors.Is(err, event.ErrClosed) {
				s.log.Debug("event stream closed", zap.Error(err))
			}
			return
		}

		line, err := event.MarshalJSONLine(ev)
		if err != nil {
			s.log.Warn("failed to marshal event", zap.Error(err))
			continue
		}

		if _, err := w.Write(append(line, '\n')); err != nil {
			return
		}
		flusher.Flush()

		if ev.Kind() == event.KindShutdown {
			return
		}
	}
}
