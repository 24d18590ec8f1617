package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// statusRecorder remembers the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestID assigns every request an id, echoes it in the response,
// attaches a logger carrying it to the context and logs the outcome.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		l := log.Logger.With().Str("request_id", id).Logger()
		r = r.WithContext(l.WithContext(r.Context()))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				l.Error().Interface("panic", p).Str("path", r.URL.Path).Msg("❌ lens: handler panicked")
				rec.WriteHeader(http.StatusInternalServerError)
			}
			logRequest(l, r, rec.status, time.Since(start))
		}()
		next.ServeHTTP(rec, r)
	})
}

func logRequest(l zerolog.Logger, r *http.Request, status int, elapsed time.Duration) {
	l.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("🌐 lens: request")
}
