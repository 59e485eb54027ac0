package api

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/dDocs/lib/backup"
	"github.com/ValentinKolb/dDocs/lib/docstore"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net/http"
	"strconv"
	"time"
)

var Logger = logger.GetLogger("api")

// maxBodySize bounds request bodies, the store enforces its own document limit
const maxBodySize = 64 << 20

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Endpoint string // listen address, e.g. ":8080"
	LogLevel string // "debug" enables request logging
}

// Server exposes a document store over HTTP
type Server struct {
	store  *docstore.Store
	config ServerConfig
}

// NewServer creates a server for store
func NewServer(store *docstore.Store, config ServerConfig) *Server {
	return &Server{store: store, config: config}
}

// Handler returns the routes of the server
//
//	GET    /docs/{key...}      read a document ({} if missing)
//	PUT    /docs/{key...}      write a document (?skipBackup=true)
//	DELETE /docs/{key...}      delete a document
//	GET    /backups/{key...}   list the backups of a document
//	POST   /restore/{key...}   restore a backup (?name=<backup>)
//	POST   /vacuum             resync and remove orphaned local files
//	DELETE /cache              clear the cache (?key=<key> for one document)
//	GET    /stats              store statistics
//	GET    /metrics            counters in Prometheus text format
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		if s.config.LogLevel == "debug" {
			h = loggerMiddleware(h)
		}
		mux.HandleFunc(pattern, h)
	}

	handle("GET /docs/{key...}", s.handleRead)
	handle("PUT /docs/{key...}", s.handleWrite)
	handle("DELETE /docs/{key...}", s.handleDelete)
	handle("GET /backups/{key...}", s.handleBackups)
	handle("POST /restore/{key...}", s.handleRestore)
	handle("POST /vacuum", s.handleVacuum)
	handle("DELETE /cache", s.handleClearCache)
	handle("GET /stats", s.handleStats)
	handle("GET /metrics", s.handleMetrics)
	return mux
}

// ListenAndServe serves until ctx is done and then shuts the http server down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.Endpoint,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		Logger.Infof("Starting HTTP server on %s", s.config.Endpoint)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		Logger.Infof("Stopping HTTP server")
		return server.Shutdown(shutdownCtx)
	}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	doc := s.store.Read(r.Context(), r.PathValue("key"))
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(doc); err != nil {
		Logger.Warningf("Failed to write response: %v", err)
	}
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var opts []docstore.WriteOption
	if skip, _ := strconv.ParseBool(r.URL.Query().Get("skipBackup")); skip {
		opts = append(opts, docstore.WithSkipBackup())
	}

	if err := s.store.Write(r.Context(), r.PathValue("key"), remote.Document(body), opts...); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Backups(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []backup.Record{}
	}
	writeJSON(w, records)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing backup name", http.StatusBadRequest)
		return
	}
	if err := s.store.Restore(r.Context(), r.PathValue("key"), name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVacuum(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Vacuum(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.store.ClearCache(r.URL.Query().Get("key"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.GetStats(r.Context()))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.store.Metrics().WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// statusOf maps store errors to http status codes
func statusOf(err error) int {
	if errors.Is(err, docstore.ErrShutdown) {
		return http.StatusServiceUnavailable
	}
	switch remote.CodeOf(err) {
	case remote.RetCNotFound:
		return http.StatusNotFound
	case remote.RetCConflict:
		return http.StatusConflict
	case remote.RetCInvalidDocument:
		return http.StatusBadRequest
	case remote.RetCConfigError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusOf(err))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Warningf("Failed to write response: %v", err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware logs every request with its status and duration
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s %d %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
