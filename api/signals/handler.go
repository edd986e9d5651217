// Package signals exposes traffic signal override controls over HTTP.
package signals

import (
	"context"
	"net/http"

	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/signal"
	"github.com/kilianp07/rescue/internal/httpx"
)

// Controller is the engine surface used by the handler.
type Controller interface {
	Signals(ctx context.Context) ([]model.TrafficSignal, error)
	OverrideSignal(ctx context.Context, actor model.Actor, id string, color model.SignalColor) (model.TrafficSignal, error)
	ClearOverride(ctx context.Context, actor model.Actor, id string) (model.TrafficSignal, error)
	AllStop(ctx context.Context, actor model.Actor) (signal.BatchResult, error)
	ClearAll(ctx context.Context, actor model.Actor) (signal.BatchResult, error)
}

type overrideRequest struct {
	Color model.SignalColor `json:"color"`
}

type batchResponse struct {
	Applied []string          `json:"applied"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// NewHandler serves /api/signals. Mutating routes are wrapped with guard.
func NewHandler(c Controller, guard func(http.Handler) http.Handler) http.Handler {
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/signals", func(w http.ResponseWriter, r *http.Request) {
		list, err := c.Signals(r.Context())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if list == nil {
			list = []model.TrafficSignal{}
		}
		httpx.WriteJSON(w, http.StatusOK, list)
	})
	mux.Handle("PUT /api/signals/{id}/override", guard(withActor(func(w http.ResponseWriter, r *http.Request, actor model.Actor) {
		var req overrideRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		s, err := c.OverrideSignal(r.Context(), actor, r.PathValue("id"), req.Color)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, s)
	})))
	mux.Handle("DELETE /api/signals/{id}/override", guard(withActor(func(w http.ResponseWriter, r *http.Request, actor model.Actor) {
		s, err := c.ClearOverride(r.Context(), actor, r.PathValue("id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, s)
	})))
	mux.Handle("POST /api/signals/all-stop", guard(withActor(func(w http.ResponseWriter, r *http.Request, actor model.Actor) {
		writeBatch(w)(c.AllStop(r.Context(), actor))
	})))
	mux.Handle("POST /api/signals/clear-all", guard(withActor(func(w http.ResponseWriter, r *http.Request, actor model.Actor) {
		writeBatch(w)(c.ClearAll(r.Context(), actor))
	})))
	return mux
}

func withActor(fn func(http.ResponseWriter, *http.Request, model.Actor)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := httpx.Actor(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		fn(w, r, actor)
	})
}

// writeBatch reports a best-effort batch. Partial failures return 207.
func writeBatch(w http.ResponseWriter) func(signal.BatchResult, error) {
	return func(res signal.BatchResult, err error) {
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := batchResponse{Applied: res.Applied}
		if out.Applied == nil {
			out.Applied = []string{}
		}
		status := http.StatusOK
		if !res.OK() {
			status = http.StatusMultiStatus
			out.Failed = make(map[string]string, len(res.Failed))
			for id, ferr := range res.Failed {
				out.Failed[id] = ferr.Error()
			}
		}
		httpx.WriteJSON(w, status, out)
	}
}
