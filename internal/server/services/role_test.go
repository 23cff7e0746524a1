package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoleFixture(t *testing.T) (*RoleService, *failingClaims, *countingRecords) {
	t.Helper()
	claims := newFailingClaims()
	records := newCountingRecords()
	return NewRoleService(claims, records, newMetrics(), nop()), claims, records
}

func TestSetRole_Preconditions(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1"})
	records.sets = 0

	tests := []struct {
		name   string
		caller auth.Identity
		uid    string
		role   string
		kind   error
		msg    string
	}{
		{"anonymous", auth.Identity{}, "u1", "admin", common.ErrUnauthenticated, "Must be signed in"},
		{"anonymous wins over bad input", auth.Identity{}, "", "", common.ErrUnauthenticated, "Must be signed in"},
		{"plain user", user("u2"), "u1", "admin", common.ErrPermissionDenied, "Only master admins can set roles"},
		{"admin", admin("a1"), "u1", "admin", common.ErrPermissionDenied, "Only master admins can set roles"},
		{"admin with bad input", admin("a1"), "", "nope", common.ErrPermissionDenied, "Only master admins can set roles"},
		{"missing uid", master("m1"), "", "admin", common.ErrInvalidArgument, "Missing uid or role"},
		{"missing role", master("m1"), "u1", "", common.ErrInvalidArgument, "Missing uid or role"},
		{"unknown role", master("m1"), "u1", "superuser", common.ErrInvalidArgument, "Invalid role"},
		{"case matters", master("m1"), "u1", "Admin", common.ErrInvalidArgument, "Invalid role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetRole(ctx, tt.caller, tt.uid, tt.role)
			assertStatus(t, err, tt.kind, tt.msg)
		})
	}

	if claims.sets != 0 || records.updates != 0 {
		t.Fatalf("rejected calls must not write: claims=%d records=%d", claims.sets, records.updates)
	}
}

func TestSetRole_PromotesToAdmin(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Email: "u1@example.com"})

	require.NoError(t, svc.SetRole(ctx, master("m1"), "u1", "admin"))

	c, err := claims.GetClaims(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, roles.Claims{Admin: true}, c)

	a := getAccount(t, records, "u1")
	assert.Equal(t, "admin", a.Role)
	assert.Equal(t, "u1@example.com", a.Email, "other fields survive the update")
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.RoleChangesTotal.WithLabelValues("admin", "ok")))
}

func TestSetRole_MasterAdminClaimsAreExact(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Role: "admin"})
	require.NoError(t, claims.SetClaims(ctx, "u1", roles.Claims{Admin: true}))

	require.NoError(t, svc.SetRole(ctx, master("m1"), "u1", "master_admin"))

	c, _ := claims.GetClaims(ctx, "u1")
	assert.Equal(t, roles.Claims{MasterAdmin: true}, c, "admin claim is replaced, not merged")
	assert.Equal(t, "master_admin", getAccount(t, records, "u1").Role)
}

func TestSetRole_DemotionClearsClaims(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Role: "master_admin"})
	require.NoError(t, claims.SetClaims(ctx, "u1", roles.Claims{MasterAdmin: true}))

	require.NoError(t, svc.SetRole(ctx, master("m1"), "u1", "user"))

	c, _ := claims.GetClaims(ctx, "u1")
	assert.True(t, c.Empty())
	assert.Equal(t, "user", getAccount(t, records, "u1").Role)
}

func TestSetRole_IdempotentRepeat(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1"})

	require.NoError(t, svc.SetRole(ctx, master("m1"), "u1", "admin"))
	require.NoError(t, svc.SetRole(ctx, master("m1"), "u1", "admin"))

	c, _ := claims.GetClaims(ctx, "u1")
	assert.Equal(t, roles.Claims{Admin: true}, c)
	assert.Equal(t, "admin", getAccount(t, records, "u1").Role)
}

func TestSetRole_MissingRecordLeavesClaimsWritten(t *testing.T) {
	ctx := context.Background()
	svc, claims, _ := newRoleFixture(t)

	err := svc.SetRole(ctx, master("m1"), "ghost", "admin")
	assertStatus(t, err, common.ErrInternal, "")
	if !strings.HasPrefix(err.Error(), "Error setting role: ") {
		t.Fatalf("message = %q", err.Error())
	}

	c, _ := claims.GetClaims(ctx, "ghost")
	assert.Equal(t, roles.Claims{Admin: true}, c, "no rollback of the first write")
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.RoleChangesTotal.WithLabelValues("admin", "error")))
}

func TestSetRole_ClaimsFailureSkipsRecord(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1"})
	claims.setErr = errStoreDown

	err := svc.SetRole(ctx, master("m1"), "u1", "admin")
	assertStatus(t, err, common.ErrInternal, "Error setting role: store down")
	assert.Equal(t, 0, records.updates)
	assert.Equal(t, "user", getAccount(t, records, "u1").Role)
}

func TestSetRole_RecordFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newRoleFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1"})
	records.updateErr = errStoreDown

	err := svc.SetRole(ctx, master("m1"), "u1", "admin")
	assertStatus(t, err, common.ErrInternal, "Error setting role: store down")

	c, _ := claims.GetClaims(ctx, "u1")
	assert.Equal(t, roles.Claims{Admin: true}, c)
}
