package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/dmitrijs2005/dualcal/internal/server/store/memory"
)

var errStoreDown = errors.New("store down")

var fixedNow = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func master(uid string) auth.Identity {
	return auth.Identity{UID: uid, Email: uid + "@example.com", Claims: roles.ClaimsFor(roles.MasterAdmin)}
}

func admin(uid string) auth.Identity {
	return auth.Identity{UID: uid, Email: uid + "@example.com", Claims: roles.ClaimsFor(roles.Admin)}
}

func anonymous() auth.Identity { return auth.Identity{} }

func user(uid string) auth.Identity {
	return auth.Identity{UID: uid, Email: uid + "@example.com"}
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:             "test-secret",
		TokenValidityDuration: time.Hour,
		BootstrapEmail:        "owner@dualcal.local",
		DefaultTimezone:       "UTC",
		S3Bucket:              "exports",
		S3Region:              "us-east-1",
		S3RootUser:            "minio",
		S3RootPassword:        "minio123",
		S3BaseEndpoint:        "http://127.0.0.1:9000",
	}
}

// putAccount stores users/{uid} directly, bypassing sign-in.
func putAccount(t *testing.T, rs store.RecordStore, a models.UserAccount) {
	t.Helper()
	if a.Role == "" {
		a.Role = roles.User.String()
	}
	if a.Timezone == "" {
		a.Timezone = "UTC"
	}
	fields, err := a.Fields()
	if err != nil {
		t.Fatalf("encode account: %v", err)
	}
	if err := rs.Set(context.Background(), common.CollectionUsers, a.UID, fields); err != nil {
		t.Fatalf("set account: %v", err)
	}
}

func getAccount(t *testing.T, rs store.RecordStore, uid string) models.UserAccount {
	t.Helper()
	rec, err := rs.Get(context.Background(), common.CollectionUsers, uid)
	if err != nil {
		t.Fatalf("get account %s: %v", uid, err)
	}
	a, err := models.AccountFromRecord(rec)
	if err != nil {
		t.Fatalf("decode account: %v", err)
	}
	return a
}

func strptr(s string) *string { return &s }

func assertStatus(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("want %v, got %v", kind, err)
	}
	if msg != "" && err.Error() != msg {
		t.Fatalf("message = %q, want %q", err.Error(), msg)
	}
}

// failingClaims fails SetClaims and/or GetClaims on demand and records the
// writes it accepted.
type failingClaims struct {
	*memory.ClaimsStore
	setErr error
	getErr error
	sets   int
}

func newFailingClaims() *failingClaims {
	return &failingClaims{ClaimsStore: memory.NewClaimsStore()}
}

func (f *failingClaims) SetClaims(ctx context.Context, uid string, c roles.Claims) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	return f.ClaimsStore.SetClaims(ctx, uid, c)
}

func (f *failingClaims) GetClaims(ctx context.Context, uid string) (roles.Claims, error) {
	if f.getErr != nil {
		return roles.Claims{}, f.getErr
	}
	return f.ClaimsStore.GetClaims(ctx, uid)
}

// countingRecords counts writes and can fail them.
type countingRecords struct {
	*memory.RecordStore
	sets, updates, adds int
	updateErr           error
	watchErr            error
}

func newCountingRecords() *countingRecords {
	return &countingRecords{RecordStore: memory.NewRecordStore()}
}

func (c *countingRecords) Set(ctx context.Context, coll, id string, fields map[string]any) error {
	c.sets++
	return c.RecordStore.Set(ctx, coll, id, fields)
}

func (c *countingRecords) Update(ctx context.Context, coll, id string, partial map[string]any) error {
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updates++
	return c.RecordStore.Update(ctx, coll, id, partial)
}

func (c *countingRecords) Add(ctx context.Context, coll string, fields map[string]any) (string, error) {
	c.adds++
	return c.RecordStore.Add(ctx, coll, fields)
}

func (c *countingRecords) Watch(ctx context.Context, q store.Query) (store.Subscription, error) {
	if c.watchErr != nil {
		return nil, c.watchErr
	}
	return c.RecordStore.Watch(ctx, q)
}

func nop() logging.Logger { return logging.Nop{} }

func newMetrics() *metrics.Metrics { return metrics.New() }

// next waits for the following update on s.
func next[T any](t *testing.T, s *Stream[T]) Update[T] {
	t.Helper()
	select {
	case u, ok := <-s.Updates():
		if !ok {
			t.Fatalf("stream closed")
		}
		return u
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for update")
	}
	return Update[T]{}
}

// waitFor reads updates until ok accepts one.
func waitFor[T any](t *testing.T, s *Stream[T], ok func(Update[T]) bool) Update[T] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u, open := <-s.Updates():
			if !open {
				t.Fatalf("stream closed")
			}
			if ok(u) {
				return u
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching update")
		}
	}
}
