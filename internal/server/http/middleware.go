package httpserver

import (
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/ratelimit"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logging logs one line per request with metadata only, never bodies.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("req_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Recover turns handler panics into a 500 response.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: unknownMessage}, log)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects requests once the client IP exhausts its bucket.
func RateLimit(l *ratelimit.KeyedRateLimiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.Allow(ip) {
				log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
				writeError(w, r, errs.ErrRateLimited, log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth runs the auth gate and stores the user in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		u, err := s.gate.Verify(r.Context(), token)
		if err != nil {
			writeError(w, r, err, s.log)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
