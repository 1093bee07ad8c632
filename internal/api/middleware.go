package api

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tripnav/internal/metrics"
)

// LogMiddleware logs method, path, status and duration, and records the
// request metrics. Metric labels use the route pattern, not the raw path;
// per-group paths would grow the label set without bound.
func LogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		dur := time.Since(start)
		status := strconv.Itoa(sw.status)
		route := routePattern(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route, status).Observe(dur.Seconds())
		log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, sw.status, dur)
	})
}

// routePattern collapses the group id segment of trip routes into a
// placeholder.
func routePattern(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/trips/")
	if !ok || rest == "" {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/v1/trips/{id}" + rest[i:]
	}
	return "/v1/trips/{id}"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RateLimitMiddleware applies a per-client token bucket. Optimization is
// CPU-heavy; one noisy client must not starve other groups.
func RateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := map[string]*rate.Limiter{}
	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[key] = l
		}
		return l
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !get(host).Allow() {
			writeProblem(w, http.StatusTooManyRequests, "rate limited", "too many requests; slow down", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
