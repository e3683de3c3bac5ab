package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/teemow/pillminder/internal/session"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// Session extracts the caller's Google session from /api and /mcp requests.
	// Without it every gateway route answers 401.
	Session *session.Middleware

	// Health is mounted at /healthz, /readyz and /healthz/detailed when set.
	Health *HealthChecker

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// NewRouter builds the HTTP handler for sc.
func NewRouter(sc *ServerContext, config RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrumentationMiddleware(sc))

	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(r)
	}

	a := &api{sc: sc}
	a.registerFeedRoutes(r)

	apiRouter := r.PathPrefix("/api").Subrouter()
	if config.Session != nil {
		apiRouter.Use(config.Session.Handler)
	}
	a.registerAPIRoutes(apiRouter)

	if config.MCP != nil {
		mcpHandler := config.MCP
		if config.Session != nil {
			mcpHandler = config.Session.Handler(mcpHandler)
		}
		r.PathPrefix("/mcp").Handler(mcpHandler)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		session.WriteError(w, http.StatusNotFound, ErrorCodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		session.WriteError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
	})

	return r
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (MCP) working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// instrumentationMiddleware records request count and duration per route
// template, so ids in paths do not explode label cardinality.
func instrumentationMiddleware(sc *ServerContext) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics := sc.Metrics()
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			metrics.RecordHTTPRequest(r.Context(), r.Method, routeTemplate(r), rw.statusCode, time.Since(start))
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
