package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kdimtricp/deepguard/internal/logger"
)

// EventsHandler streams every snapshot of the visitor's workflow as
// server-sent "state" events until the client goes away.
func (app *App) EventsHandler(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	clientGone := r.Context().Done()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			data, err := json.Marshal(snap)
			if err != nil {
				logger.Warn("marshal snapshot failed", "error", err)
				continue
			}

			fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", snap.Version, data)
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}
