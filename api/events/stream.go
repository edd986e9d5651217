// Package events streams engine events to HTTP clients as server-sent events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	coreevents "github.com/kilianp07/rescue/core/events"
)

// Source opens and closes event subscriptions.
type Source interface {
	Subscribe(filter coreevents.Filter) *coreevents.Subscription
	Unsubscribe(sub *coreevents.Subscription)
}

// keepAlive is the interval between comment frames on an idle stream.
var keepAlive = 15 * time.Second

// NewStreamHandler serves GET /api/events. The driver_id, requester_id and
// signals query parameters select the feed; without any every event is sent.
func NewStreamHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		sub := src.Subscribe(filterFor(r))
		defer src.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		stream(r.Context(), w, flusher, sub.C)
	})
}

func filterFor(r *http.Request) coreevents.Filter {
	q := r.URL.Query()
	var filters []coreevents.Filter
	if id := q.Get("driver_id"); id != "" {
		filters = append(filters, coreevents.ForDriver(id))
	}
	if id := q.Get("requester_id"); id != "" {
		filters = append(filters, coreevents.ForRequester(id))
	}
	if s := q.Get("signals"); s == "1" || s == "true" {
		filters = append(filters, coreevents.AllSignals())
	}
	if len(filters) == 0 {
		return coreevents.All()
	}
	return coreevents.Any(filters...)
}

func stream(ctx context.Context, w http.ResponseWriter, f http.Flusher, c <-chan coreevents.Event) {
	tick := time.NewTicker(keepAlive)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			f.Flush()
		case e, ok := <-c:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.EntityID(), e.Type(), data); err != nil {
				return
			}
			f.Flush()
		}
	}
}
