// Package httpapi is the HTTP gateway: the role-assignment callable, a
// websocket feed of the caller's events, health and metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/services"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address   string
	roles     *services.RoleService
	calendar  *services.CalendarService
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
	limiter   *rate.Limiter
}

// Options configure the gateway.
type Options struct {
	Address   string
	SecretKey string
	RPS       float64
	Burst     int
}

func NewHTTPServer(o Options, l logging.Logger, m *metrics.Metrics, roles *services.RoleService, calendar *services.CalendarService) *HTTPServer {
	return &HTTPServer{
		address:   o.Address,
		roles:     roles,
		calendar:  calendar,
		logger:    l.With("module", "http_server"),
		metrics:   m,
		jwtSecret: []byte(o.SecretKey),
		limiter:   rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
	}
}

// Routes builds the router.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.observe,
	)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.identify)
		r.Post("/setRole", s.setRole)
		r.Get("/ws/events", s.watchEvents)
	})
	return r
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(sctx, "http shutdown", logging.Err(err))
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
