// Package server wires the dualcal server: stores, services, the gRPC
// transport and the HTTP gateway, with graceful shutdown on signals.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/prayer"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/httpapi"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/repomanager"
	"github.com/dmitrijs2005/dualcal/internal/server/services"

	gs "github.com/dmitrijs2005/dualcal/internal/server/grpc"
)

// Outbound limits for the prayer timings API.
const (
	prayerRPS   = 5
	prayerBurst = 10
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	metrics  *metrics.Metrics
	stores   *repomanager.Manager
	services gs.Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	m := metrics.New()

	stores, err := repomanager.New(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	claims, records := stores.Claims(), stores.Records()
	svc := gs.Services{
		Accounts:      services.NewAccountService(claims, records, c, m, logger),
		Roles:         services.NewRoleService(claims, records, m, logger),
		Calendar:      services.NewCalendarService(records, m, logger),
		Exports:       services.NewExportService(records, c, m, logger),
		Announcements: services.NewAnnouncementService(records, m, logger),
		Prayer: services.NewPrayerService(records,
			prayer.NewClient(c.PrayerAPIBaseURL, c.PrayerMethod, prayerRPS, prayerBurst), m, logger),
	}

	return &App{config: c, logger: logger, metrics: m, stores: stores, services: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.metrics, app.services, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", logging.Err(err))
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(httpapi.Options{
		Address:   app.config.EndpointAddrHTTP,
		SecretKey: app.config.SecretKey,
		RPS:       app.config.RateLimitRPS,
		Burst:     app.config.RateLimitBurst,
	}, app.logger, app.metrics, app.services.Roles, app.services.Calendar)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", logging.Err(err))
		cancelFunc()
	}
}

// Run serves until a signal arrives or either server fails, then closes
// the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.stores.Close(); err != nil {
		app.logger.Error(ctx, "closing stores", logging.Err(err))
	}
	app.logger.Info(ctx, "App stopped")
}
