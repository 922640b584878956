// Package api serves the viewer-facing HTTP interface: catalog browsing,
// selection, playback control, and auto-load tuning.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/orbitview/orbitview/internal/catalog"
	"github.com/orbitview/orbitview/internal/trajectory"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	pipeline *trajectory.Pipeline
	cache    *catalog.DB
}

// NewServer creates the API server over the pipeline and the catalog
// cache. cache may be nil when running without local persistence; the
// catalog endpoints then return 503.
func NewServer(pipeline *trajectory.Pipeline, cache *catalog.DB) *Server {
	return &Server{
		pipeline: pipeline,
		cache:    cache,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.health)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/statistics", s.showStatistics)
	mux.HandleFunc("/api/comets", s.listComets)
	mux.HandleFunc("/api/ephemeris", s.showEphemeris)
	mux.HandleFunc("/api/fetches", s.listFetches)
	mux.HandleFunc("/api/selection", s.handleSelection)
	mux.HandleFunc("/api/playback", s.showPlayback)
	mux.HandleFunc("/api/playback/intent", s.handlePlaybackIntent)
	mux.HandleFunc("/api/trajectory", s.showTrajectory)
	mux.HandleFunc("/api/trajectory/params", s.handleTrajectoryParams)
	return mux
}
