package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/dmitrijs2005/dualcal/internal/server/store/memory"
	"github.com/dmitrijs2005/dualcal/internal/server/store/postgres"
	"github.com/dmitrijs2005/dualcal/internal/server/store/redisstore"
)

func cfg(records, claims string) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.RecordBackend = records
	c.ClaimsBackend = claims
	return c
}

// stubPostgres swaps the postgres seams and counts opens and migrations.
func stubPostgres(t *testing.T, openErr, migrateErr error) (*int, *int, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	opens, migrations := 0, 0

	oldOpen, oldMigrate := openPostgres, runMigrations
	openPostgres = func(ctx context.Context, dsn string) (*sql.DB, error) {
		opens++
		if openErr != nil {
			return nil, openErr
		}
		return db, nil
	}
	runMigrations = func(ctx context.Context, got *sql.DB) error {
		migrations++
		return migrateErr
	}
	t.Cleanup(func() { openPostgres, runMigrations = oldOpen, oldMigrate })
	return &opens, &migrations, mock
}

func TestNew_Memory(t *testing.T) {
	m, err := New(context.Background(), cfg(config.BackendMemory, config.BackendMemory), logging.Nop{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer m.Close()

	if _, ok := m.Records().(*memory.RecordStore); !ok {
		t.Fatalf("records = %T, want *memory.RecordStore", m.Records())
	}
	if _, ok := m.Claims().(*memory.ClaimsStore); !ok {
		t.Fatalf("claims = %T, want *memory.ClaimsStore", m.Claims())
	}
}

func TestNew_PostgresOpenedOnce(t *testing.T) {
	opens, migrations, mock := stubPostgres(t, nil, nil)
	mock.ExpectClose()

	m, err := New(context.Background(), cfg(config.BackendPostgres, config.BackendPostgres), logging.Nop{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if *opens != 1 || *migrations != 1 {
		t.Fatalf("opens=%d migrations=%d, want 1 and 1", *opens, *migrations)
	}
	if _, ok := m.Records().(*postgres.RecordStore); !ok {
		t.Fatalf("records = %T", m.Records())
	}
	if _, ok := m.Claims().(*postgres.ClaimsStore); !ok {
		t.Fatalf("claims = %T", m.Claims())
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNew_PostgresErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("open", func(t *testing.T) {
		stubPostgres(t, boom, nil)
		_, err := New(context.Background(), cfg(config.BackendPostgres, config.BackendMemory), logging.Nop{})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})

	t.Run("migrate closes db", func(t *testing.T) {
		_, _, mock := stubPostgres(t, nil, boom)
		mock.ExpectClose()
		_, err := New(context.Background(), cfg(config.BackendMemory, config.BackendPostgres), logging.Nop{})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("db not closed: %v", err)
		}
	})
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cfg(config.BackendMemory, config.BackendRedis)
	c.RedisAddr = mr.Addr()

	m, err := New(context.Background(), c, logging.Nop{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer m.Close()

	if _, ok := m.Claims().(*redisstore.ClaimsStore); !ok {
		t.Fatalf("claims = %T", m.Claims())
	}
	ctx := context.Background()
	if err := m.Claims().SetClaims(ctx, "u1", roles.Claims{Admin: true}); err != nil {
		t.Fatalf("SetClaims error: %v", err)
	}
	got, err := m.Claims().GetClaims(ctx, "u1")
	if err != nil || !got.Admin {
		t.Fatalf("GetClaims = %+v, %v", got, err)
	}
}

func TestNew_MongoFailureIsReported(t *testing.T) {
	boom := errors.New("no replica set")
	old := newMongoStore
	newMongoStore = func(context.Context, string, string, logging.Logger) (store.RecordStore, func() error, error) {
		return nil, nil, boom
	}
	t.Cleanup(func() { newMongoStore = old })

	_, err := New(context.Background(), cfg(config.BackendMongo, config.BackendMemory), logging.Nop{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(context.Background(), cfg("sqlite", config.BackendMemory), logging.Nop{}); err == nil {
		t.Fatal("expected error for unknown record backend")
	}
	if _, err := New(context.Background(), cfg(config.BackendMemory, config.BackendMongo), logging.Nop{}); err == nil {
		t.Fatal("expected error for unsupported claims backend")
	}
}

func TestClose_JoinsErrors(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")
	m := &Manager{closers: []func() error{
		func() error { return e1 },
		func() error { return nil },
		func() error { return e2 },
	}}
	err := m.Close()
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("err = %v, want both", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close = %v, want nil", err)
	}
}
