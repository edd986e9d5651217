// Package api mounts the HTTP handlers of the engine.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kilianp07/rescue/api/alerts"
	"github.com/kilianp07/rescue/api/dispatch"
	apievents "github.com/kilianp07/rescue/api/events"
	"github.com/kilianp07/rescue/api/signals"
	"github.com/kilianp07/rescue/api/stats"
	"github.com/kilianp07/rescue/api/vehicles"
	"github.com/kilianp07/rescue/app"
	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/infra/logger"
	"github.com/kilianp07/rescue/internal/httpx"
)

// NewRouter returns the API handler. Admin endpoints require the bearer
// token from cfg when it is set.
func NewRouter(e *app.Engine, cfg config.HTTPConfig) http.Handler {
	guard := func(next http.Handler) http.Handler { return httpx.RequireToken(cfg.AdminToken, next) }

	mux := http.NewServeMux()
	alertHandler := alerts.NewHandler(e)
	mux.Handle("/api/alerts", alertHandler)
	mux.Handle("/api/alerts/", alertHandler)

	mux.Handle("/api/vehicles", vehicles.NewStatusHandler(e))
	mux.Handle("/api/vehicles/{id}/location", vehicles.NewLocationHandler(e))
	mux.Handle("/api/vehicles/{id}/duty", vehicles.NewDutyHandler(e))

	signalHandler := signals.NewHandler(e, guard)
	mux.Handle("/api/signals", signalHandler)
	mux.Handle("/api/signals/", signalHandler)

	mux.Handle("/api/events", apievents.NewStreamHandler(e))
	mux.Handle("/api/logs", dispatch.NewLogHandler(e, cfg.AdminToken))
	mux.Handle("/api/stats", guard(stats.NewStatsHandler(e)))
	mux.Handle("/api/hospitals", stats.NewHospitalHandler(e))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// Serve runs the API server until ctx is cancelled.
func Serve(ctx context.Context, h http.Handler, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		// Zero keeps event streams open.
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	log := logger.New("api-server")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("api server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("api listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
