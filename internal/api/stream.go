package api

import (
	"fmt"
	"net/http"

	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
)

// queueStreamHandler pushes the clinic's appointment change events to the
// caller as server-sent events. The Redis subscription is closed when the
// client disconnects so stale viewers do not leak.
func queueStreamHandler(feed *redisclient.ChangeFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support flushing")
			return
		}

		sub := feed.Subscribe(r.Context(), session.ClinicID)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ch := sub.Channel()
		for {
			select {
			case <-r.Context().Done():
				return
			case msg, open := <-ch:
				if !open {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
				flusher.Flush()
			}
		}
	}
}
