// Package httpapi serves the sensor states of each zone as read-only JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/sensor"
)

// Server serves the states of a [Store].
type Server struct {
	store *Store
	addr  string
}

// NewServer returns a new Server of store listening on addr.
func NewServer(store *Store, addr string) *Server {
	return &Server{
		store: store,
		addr:  addr,
	}
}

// Handler returns the router of the server.
func (srv *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Recoverer)
	router.Use(logMiddleware)
	router.Get("/healthz", srv.HealthHandler)
	router.Get("/zones", srv.ListZonesHandler)
	router.Get("/zones/{zone}", srv.ZoneHandler)
	router.Get("/zones/{zone}/{key}", srv.SensorHandler)
	return router
}

// ListenAndServe serves until ctx is canceled, then shuts the server down.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	hs := &http.Server{
		Addr:              srv.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WarnError("Unable to write response", err)
	}
}

func (srv *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (srv *Server) ListZonesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, srv.store.Zones())
}

func (srv *Server) ZoneHandler(w http.ResponseWriter, r *http.Request) {
	zone := chi.URLParam(r, "zone")

	z, states, ok := srv.store.States(zone)
	if !ok {
		http.Error(w, "unknown zone", http.StatusNotFound)
		return
	}

	writeJSON(w, struct {
		Zone
		States []sensor.State `json:"states"`
	}{z, states})
}

func (srv *Server) SensorHandler(w http.ResponseWriter, r *http.Request) {
	zone := chi.URLParam(r, "zone")
	key := chi.URLParam(r, "key")

	st, ok := srv.store.State(zone, key)
	if !ok {
		http.Error(w, "unknown sensor", http.StatusNotFound)
		return
	}

	writeJSON(w, st)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Debug("HTTP request",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", lrw.statusCode,
			"size", lrw.size,
			"duration", time.Since(start),
		)
	})
}
