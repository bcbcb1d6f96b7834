// Package server exposes the append-only results endpoint the benchmark
// posts to.
//
// Endpoints:
//   - GET  /api/results - every stored record, as a JSON array
//   - POST /api/results - append a JSON array of records
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/tclemos/map-bench/benchmark"
)

const (
	// DefaultAddr is the listen address of the results server
	DefaultAddr = ":3000"

	// MaxRequestBodySize bounds a posted batch of records (4MB)
	MaxRequestBodySize = 4 << 20
)

// Server serves result records from a Store
type Server struct {
	addr   string
	store  benchmark.Store
	router *http.ServeMux
	server *http.Server
}

// New creates a server for store. An empty addr uses DefaultAddr.
func New(addr string, store benchmark.Store) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:   addr,
		store:  store,
		router: http.NewServeMux(),
	}
	s.router.HandleFunc("GET /api/results", s.handleList)
	s.router.HandleFunc("POST /api/results", s.handleAppend)
	return s
}

// Handler returns the routes wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Results server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down results server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Listing results failed")
		writeError(w, http.StatusInternalServerError, "could not read results")
		return
	}
	if records == nil {
		records = []benchmark.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var records []benchmark.ResultRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "body must be a JSON array of results")
		return
	}

	if err := s.store.Append(r.Context(), records); err != nil {
		log.Error().Err(err).Int("records", len(records)).Msg("Appending results failed")
		writeError(w, http.StatusInternalServerError, "could not store results")
		return
	}

	log.Info().Int("records", len(records)).Msg("Results appended")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Writing response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
