package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jason-s-yu/erps/internal/bus"
	"github.com/jason-s-yu/erps/internal/matchmaking"
	"github.com/jason-s-yu/erps/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Controller is the slice of the matchmaking dispatcher the admin API needs.
type Controller interface {
	Submit(ctx context.Context, cmd matchmaking.Command) error
	Snapshot(ctx context.Context) (matchmaking.Stats, error)
}

const adminTimeout = 2 * time.Second

// NewAPIMux wires the admin endpoints, and the websocket gateway when a bus is
// given to bridge.
func NewAPIMux(logger logrus.FieldLogger, mm Controller, gateway bus.Bus) *http.ServeMux {
	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", HealthHandler())
	mux.Handle("GET /stats", logged(StatsHandler(mm)))
	mux.Handle("POST /reset", logged(ResetHandler(logger, mm)))
	if gateway != nil {
		mux.Handle("GET /ws", logged(GatewayWSHandler(logger, gateway)))
	}
	return mux
}

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// StatsHandler reports registry sizes as seen by the matchmaking worker.
func StatsHandler(mm Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()

		stats, err := mm.Snapshot(ctx)
		if err != nil {
			http.Error(w, "matchmaking worker unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// ResetHandler queues a Reset behind whatever commands are already waiting.
func ResetHandler(logger logrus.FieldLogger, mm Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()

		if err := mm.Submit(ctx, matchmaking.Reset{}); err != nil {
			logger.WithError(err).Warn("reset not queued")
			http.Error(w, "matchmaking worker unavailable", http.StatusServiceUnavailable)
			return
		}
		logger.WithField("remote", r.RemoteAddr).Warn("matchmaking reset requested")
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
