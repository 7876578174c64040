package router

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type route struct {
	method  string
	path    string
	handler HandlerFunc
}

type Router struct {
	mux       *http.ServeMux
	routes    map[string]HandlerFunc // key = METHOD:PATH
	paths     map[string]bool        // track registered paths
	wildcards []route                // wildcard routes in registration order
	logger    *zap.SugaredLogger
}

// New creates a router. Wildcard routes are tried in the order they were
// registered, so register the more specific ones first. A nil logger
// disables request logging.
func New(logger *zap.SugaredLogger) *Router {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		logger: logger,
	}

	// Catch-all handler for every path
	r.mux.HandleFunc("/", r.serve)
	return r
}

func (r *Router) serve(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	defer func() {
		rec := recover()
		status := lrw.statusCode
		if rec == http.ErrAbortHandler {
			status = 0
		}
		r.logger.Infow("HTTP request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", lrw.written,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if rec != nil {
			// Let net/http abort the connection
			panic(rec)
		}
	}()

	if h := r.match(req.Method, req.URL.Path); h != nil {
		h(lrw, req)
		return
	}
	if r.pathExists(req.URL.Path) {
		// Path exists but method not allowed
		http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(lrw, "Not Found", http.StatusNotFound)
}

func (r *Router) match(method, path string) HandlerFunc {
	if h, ok := r.routes[method+":"+path]; ok {
		return h
	}
	for _, rt := range r.wildcards {
		if rt.method == method && matchWildcardRoute(path, rt.path) {
			return rt.handler
		}
	}
	return nil
}

func (r *Router) pathExists(path string) bool {
	if r.paths[path] {
		return true
	}
	for _, rt := range r.wildcards {
		if matchWildcardRoute(path, rt.path) {
			return true
		}
	}
	return false
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	// Split both paths into segments
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing wildcard matches one or more remaining segments
	if len(routeSegments) > 0 && routeSegments[len(routeSegments)-1] == "*" {
		prefix := routeSegments[:len(routeSegments)-1]
		if len(requestSegments) <= len(prefix) {
			return false
		}
		for i, seg := range prefix {
			if seg != "*" && requestSegments[i] != seg {
				return false
			}
		}
		return requestSegments[len(prefix)] != ""
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}

	// Check each segment
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			// Wildcard matches any single non-empty segment
			if requestSegments[i] == "" {
				return false
			}
			continue
		}
		if requestSegments[i] != routeSegment {
			// Exact match required for non-wildcard segments
			return false
		}
	}

	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	if strings.Contains(path, "*") {
		r.wildcards = append(r.wildcards, route{method: method, path: path, handler: handler})
		return
	}
	r.routes[method+":"+path] = handler
	r.paths[path] = true
}

// GET registers handler for GET requests on path. The export API is
// read-only, so GET is the only verb exposed.
func (r *Router) GET(path string, handler HandlerFunc) { r.register(http.MethodGet, path, handler) }

// Handle mounts an http.Handler for GET requests on path.
func (r *Router) Handle(path string, h http.Handler) {
	r.GET(path, h.ServeHTTP)
}

// Getter methods for testing
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

func (r *Router) Paths() map[string]bool {
	return r.paths
}

// ServeHTTP dispatches req through the router.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Server returns an http.Server for addr backed by the router. The caller
// owns its lifecycle, including Shutdown.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if !lrw.wroteHeader {
		lrw.statusCode = code
		lrw.wroteHeader = true
	}
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(p []byte) (int, error) {
	lrw.wroteHeader = true
	n, err := lrw.ResponseWriter.Write(p)
	lrw.written += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
