package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/rescue/infra/logger"
)

// OpsHandler serves /metrics and /readyz. Readiness flips to 200 once ready
// is closed; a nil channel means always ready.
func OpsHandler(ready <-chan struct{}) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil {
			select {
			case <-ready:
			default:
				http.Error(w, "starting", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// StartPromServer serves OpsHandler on addr until ctx is cancelled.
func StartPromServer(ctx context.Context, addr string, ready <-chan struct{}) error {
	srv := &http.Server{Addr: addr, Handler: OpsHandler(ready), ReadHeaderTimeout: 5 * time.Second}
	log := logger.New("ops-server")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}()
	log.Infof("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
