package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ store.ClaimsStore = (*ClaimsStore)(nil)

func setupStore(t *testing.T) (*ClaimsStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	s, err := NewClaimsStore(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestSetAndGet(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetClaims(ctx, "u1", roles.Claims{Admin: true}))

	got, err := s.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, roles.Claims{Admin: true}, got)

	raw, err := mr.Get("dualcal:claims:u1")
	require.NoError(t, err)
	assert.Equal(t, `{"admin":true}`, raw)
}

func TestSetReplaces(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetClaims(ctx, "u1", roles.Claims{MasterAdmin: true}))
	require.NoError(t, s.SetClaims(ctx, "u1", roles.Claims{}))

	got, err := s.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestGetUnknown(t *testing.T) {
	s, _ := setupStore(t)

	got, err := s.GetClaims(context.Background(), "ghost")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestGetCorrupt(t *testing.T) {
	s, mr := setupStore(t)
	require.NoError(t, mr.Set("dualcal:claims:u1", "{"))

	_, err := s.GetClaims(context.Background(), "u1")
	require.Error(t, err)
}

func TestConnectFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClaimsStore(context.Background(), Options{Addr: addr})
	require.Error(t, err)
}
