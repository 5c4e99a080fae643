package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

const dbCheckTimeout = 3 * time.Second

// DBClock reports the database's current time.
type DBClock func(ctx context.Context) (time.Time, error)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type DBTestResponse struct {
	OK    bool      `json:"ok"`
	Now   time.Time `json:"now,omitzero"`
	Error string    `json:"error,omitempty"`
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true, Message: "API is running"})
}

// DBTest returns a handler that round-trips a query to the database.
func DBTest(clock DBClock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if clock == nil {
			writeJSON(w, http.StatusInternalServerError, DBTestResponse{Error: "Database connection failed"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), dbCheckTimeout)
		defer cancel()

		now, err := clock(ctx)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("database check failed")
			writeJSON(w, http.StatusInternalServerError, DBTestResponse{Error: "Database connection failed"})
			return
		}
		writeJSON(w, http.StatusOK, DBTestResponse{OK: true, Now: now})
	}
}
