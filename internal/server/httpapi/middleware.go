package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter that browsers use for websockets.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// identify attaches the caller named by the request token. Requests without
// a token continue anonymously; a bad token is rejected.
func (s *HTTPServer) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			writeError(w, r, common.Status(common.ErrUnauthenticated, err.Error()))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn(r.Context(), "too many requests", "path", r.URL.Path)
			writeCallableError(w, r, http.StatusTooManyRequests, "resource-exhausted", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records request metrics by route pattern.
func (s *HTTPServer) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, path, strconv.Itoa(status), time.Since(start))
	})
}
