// Package repomanager builds the claims and record stores named by the
// configuration and owns their connections.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/dmitrijs2005/dualcal/internal/server/store/memory"
	"github.com/dmitrijs2005/dualcal/internal/server/store/mongostore"
	"github.com/dmitrijs2005/dualcal/internal/server/store/postgres"
	"github.com/dmitrijs2005/dualcal/internal/server/store/redisstore"
)

// Seams for tests.
var (
	openPostgres  = postgres.Open
	runMigrations = postgres.RunMigrations
	newMongoStore = func(ctx context.Context, uri, db string, l logging.Logger) (store.RecordStore, func() error, error) {
		s, err := mongostore.NewStore(ctx, uri, db, l)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	newRedisClaims = func(ctx context.Context, o redisstore.Options) (store.ClaimsStore, func() error, error) {
		s, err := redisstore.NewClaimsStore(ctx, o)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
)

// Manager holds the selected stores.
type Manager struct {
	claims  store.ClaimsStore
	records store.RecordStore

	cfg     *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []func() error
}

func (m *Manager) Claims() store.ClaimsStore  { return m.claims }
func (m *Manager) Records() store.RecordStore { return m.records }

// New opens the configured backends. PostgreSQL is opened and migrated
// once even when it serves both stores.
func New(ctx context.Context, cfg *config.Config, l logging.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, logger: l.With("module", "repomanager")}

	if err := m.openRecords(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("record store init error: %w", err)
	}
	if err := m.openClaims(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("claims store init error: %w", err)
	}

	m.logger.Info(ctx, "stores ready", "records", cfg.RecordBackend, "claims", cfg.ClaimsBackend)
	return m, nil
}

func (m *Manager) openRecords(ctx context.Context) error {
	switch m.cfg.RecordBackend {
	case config.BackendMemory:
		m.records = memory.NewRecordStore()
	case config.BackendPostgres:
		db, err := m.postgres(ctx)
		if err != nil {
			return err
		}
		m.records = postgres.NewRecordStore(db, m.cfg.DatabaseDSN, m.logger)
	case config.BackendMongo:
		s, closeFn, err := newMongoStore(ctx, m.cfg.MongoURI, m.cfg.MongoDatabase, m.logger)
		if err != nil {
			return err
		}
		m.records = s
		m.closers = append(m.closers, closeFn)
	default:
		return fmt.Errorf("unknown record backend %q", m.cfg.RecordBackend)
	}
	return nil
}

func (m *Manager) openClaims(ctx context.Context) error {
	switch m.cfg.ClaimsBackend {
	case config.BackendMemory:
		m.claims = memory.NewClaimsStore()
	case config.BackendPostgres:
		db, err := m.postgres(ctx)
		if err != nil {
			return err
		}
		m.claims = postgres.NewClaimsStore(db)
	case config.BackendRedis:
		s, closeFn, err := newRedisClaims(ctx, redisstore.Options{
			Addr:     m.cfg.RedisAddr,
			Password: m.cfg.RedisPassword,
			DB:       m.cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		m.claims = s
		m.closers = append(m.closers, closeFn)
	default:
		return fmt.Errorf("unknown claims backend %q", m.cfg.ClaimsBackend)
	}
	return nil
}

func (m *Manager) postgres(ctx context.Context) (*sql.DB, error) {
	if m.db != nil {
		return m.db, nil
	}
	db, err := openPostgres(ctx, m.cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	m.closers = append(m.closers, db.Close)
	if err := runMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	m.db = db
	return db, nil
}

// Close releases every connection opened by New.
func (m *Manager) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
