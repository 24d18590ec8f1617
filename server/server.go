// Package server exposes the engine over HTTP. The record set is read
// through a source.Cache, so every request sees the same frame until an
// explicit reload.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot/vg"

	"github.com/spektr-org/lens/config"
	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/render"
	"github.com/spektr-org/lens/schema"
	"github.com/spektr-org/lens/source"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

// errBadRequest marks errors caused by the request body or query.
var errBadRequest = errors.New("bad request")

// Server serves one record set location.
type Server struct {
	cache    *source.Cache
	location source.Location
	profile  string
	opts     []engine.Option
	version  string
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithProfile forces a schema profile instead of detecting one.
func WithProfile(name string) Option {
	return func(s *Server) { s.profile = name }
}

// WithEngineOptions passes options to every engine.Run.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Server) { s.opts = append(s.opts, opts...) }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New returns a server reading loc through cache.
func New(cache *source.Cache, loc source.Location, opts ...Option) *Server {
	s := &Server{cache: cache, location: loc, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/schema", s.handleSchema)
	s.mux.HandleFunc("POST /api/run", s.handleRun)
	s.mux.HandleFunc("POST /api/chart", s.handleChart)
	s.mux.HandleFunc("POST /api/reload", s.handleReload)
	return s
}

// Handler returns the routes wrapped with request ids, logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("🚀 lens: serving %s on %s", s.location, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"cached":  s.cache.Len(),
	})
}

type schemaResponse struct {
	Profile    string            `json:"profile"`
	Source     string            `json:"source"`
	Rows       int               `json:"rows"`
	Fields     map[string]string `json:"fields"`
	Dimensions []string          `json:"dimensions"`
	Measures   []string          `json:"measures"`
	Dates      []string          `json:"dates"`
	Numeric    []string          `json:"numericFilters,omitempty"`
	DateFields []string          `json:"dateFilters,omitempty"`
	Bounds     engine.Bounds     `json:"bounds"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	frame, sch, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	numeric, dates := sch.FilterColumns()
	writeJSON(w, r, http.StatusOK, schemaResponse{
		Profile:    sch.Profile,
		Source:     s.location.String(),
		Rows:       frame.Len(),
		Fields:     sch.Columns,
		Dimensions: sch.Dimensions,
		Measures:   sch.Measures,
		Dates:      sch.Dates,
		Numeric:    numeric,
		DateFields: dates,
		Bounds:     engine.ProfileBounds(frame, sch.Layout),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	frame, sch, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := engine.Run(frame, sch.Layout, req, s.opts...)
	if err != nil {
		writeError(w, r, asBadRequest(err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// chartBody is a chart request plus the filters narrowing its data.
type chartBody struct {
	engine.ChartRequest
	Filters engine.Filters `json:"filters"`
	Width   float64        `json:"width,omitempty" validate:"gte=0,lte=100"`  // centimeters
	Height  float64        `json:"height,omitempty" validate:"gte=0,lte=100"` // centimeters
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = render.FormatPNG
	}
	if format != render.FormatPNG && format != render.FormatSVG {
		writeError(w, r, fmt.Errorf("%w: format must be png or svg", errBadRequest))
		return
	}

	var body chartBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	frame, _, err := s.dataset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := engine.ApplyFilters(frame, body.Filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := engine.BuildChart(view, body.ChartRequest)
	if err != nil {
		writeError(w, r, asBadRequest(err))
		return
	}

	var buf bytes.Buffer
	width, height := vg.Length(body.Width)*vg.Centimeter, vg.Length(body.Height)*vg.Centimeter
	if err := render.Render(&buf, cfg, format, width, height); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	frame, err := s.cache.Reload(r.Context(), s.location)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"source": s.location.String(),
		"rows":   frame.Len(),
	})
}

// dataset returns the cached frame and its schema.
func (s *Server) dataset(ctx context.Context) (*engine.Frame, *schema.Schema, error) {
	frame, err := s.cache.Get(ctx, s.location)
	if err != nil {
		return nil, nil, err
	}
	var sch *schema.Schema
	if s.profile != "" {
		sch, err = schema.Resolve(s.profile, frame)
	} else {
		sch, err = schema.Detect(frame)
	}
	if err != nil {
		return nil, nil, err
	}
	return frame, sch, nil
}

// ============================================================================
// ENCODING
// ============================================================================

func decodeBody(r *http.Request, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, maxBodyBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if err := config.Validate(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("❌ lens: encode response")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrSchema):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest), errors.Is(err, render.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	ev := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", status).Msg("⚠️ lens: request failed")
	writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

// asBadRequest marks engine errors other than schema errors as caused by
// the request.
func asBadRequest(err error) error {
	if errors.Is(err, engine.ErrSchema) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
