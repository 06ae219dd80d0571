package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter wires HTTP routes to the server's handlers and wraps them in the
// request logging and rate limiting middleware.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/validate", s.handleValidate)
	mux.HandleFunc("/auto-fix", s.handleAutoFix)
	mux.HandleFunc("/profiles", s.handleProfiles)
	mux.HandleFunc("/samples", s.handleSamples)
	mux.HandleFunc("/messages", s.handleMessageUpload)
	mux.HandleFunc("/artifacts", s.handleArtifactList)
	mux.HandleFunc("/artifacts/", s.handleArtifactDownload)
	mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/", s.handleIndex)
	return s.requestLog(s.rateLimit(mux))
}

// hostLimiter holds one token bucket per remote host. Entries are pruned
// lazily once the table grows past maxHosts.
type hostLimiter struct {
	mu       sync.Mutex
	entries  map[string]*hostEntry
	limit    rate.Limit
	burst    int
	maxHosts int
}

type hostEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newHostLimiter(perSecond float64, burst int) *hostLimiter {
	return &hostLimiter{
		entries:  make(map[string]*hostEntry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		maxHosts: 1024,
	}
}

func (l *hostLimiter) allow(host string) bool {
	now := time.Now()
	l.mu.Lock()
	entry, ok := l.entries[host]
	if !ok {
		if len(l.entries) >= l.maxHosts {
			l.pruneLocked(now)
		}
		entry = &hostEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[host] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()
	return entry.limiter.Allow()
}

func (l *hostLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	for host, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, host)
		}
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health probes stay exempt so orchestrators never see throttling.
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.allow(host) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the request log. It
// forwards Flush so NDJSON streaming keeps working through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}
