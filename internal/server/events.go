package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"opsdeck/internal/store"
)

const (
	eventBuffer    = 16
	eventKeepAlive = 15 * time.Second
)

// registerEvents streams store changes as server-sent events. Each event
// carries the revision and fresh counters; clients refetch /state when the
// revision moves. A slow client may miss intermediate revisions but always
// sees the latest one.
func registerEvents(r chi.Router, basePath string, h *handlers) {
	r.Get(path.Join(basePath, "events"), func(w http.ResponseWriter, req *http.Request) {
		rc := http.NewResponseController(w)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		changes := make(chan store.Change, eventBuffer)
		cancel := h.app.Store.Subscribe(func(c store.Change) {
			select {
			case changes <- c:
			default:
				// Drop the oldest so the newest revision is never lost.
				select {
				case <-changes:
				default:
				}
				select {
				case changes <- c:
				default:
				}
			}
		})
		defer cancel()

		st := h.app.Store
		if err := writeEvent(w, rc, store.Change{Revision: st.Revision(), Counters: st.Counters()}); err != nil {
			return
		}
		ticker := time.NewTicker(eventKeepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-req.Context().Done():
				return
			case c := <-changes:
				if err := writeEvent(w, rc, c); err != nil {
					h.log.Debug("event stream closed", zap.Error(err))
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				_ = rc.Flush()
			}
		}
	})
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, c store.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: change\ndata: %s\n\n", c.Revision, data); err != nil {
		return err
	}
	return rc.Flush()
}
