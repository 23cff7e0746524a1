package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountFixture(t *testing.T) (*AccountService, *failingClaims, *countingRecords) {
	t.Helper()
	claims := newFailingClaims()
	records := newCountingRecords()
	svc := NewAccountService(claims, records, testConfig(), newMetrics(), nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, claims, records
}

func owner() auth.Identity {
	return auth.Identity{UID: "boot", Email: "owner@dualcal.local"}
}

func TestSignIn_RequiresCaller(t *testing.T) {
	svc, _, _ := newAccountFixture(t)
	_, err := svc.SignIn(context.Background(), auth.Identity{}, Profile{})
	assertStatus(t, err, common.ErrUnauthenticated, "Must be signed in")
}

func TestSignIn_CreatesUser(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newAccountFixture(t)

	sess, err := svc.SignIn(ctx, user("u1"), Profile{DisplayName: "Ann", Timezone: "Europe/Riga"})
	require.NoError(t, err)

	a := getAccount(t, records, "u1")
	assert.Equal(t, "user", a.Role)
	assert.Equal(t, "Ann", a.DisplayName)
	assert.Equal(t, "Europe/Riga", a.Timezone)
	assert.Equal(t, 0, a.HijriAdjustment)
	assert.Nil(t, a.AdminID)
	assert.Equal(t, "2024-01-05T10:00:00.000000Z", a.CreatedAt)
	assert.Equal(t, a, sess.Account)

	id, err := auth.ParseToken(sess.Token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
	assert.True(t, id.Claims.Empty())
	assert.Equal(t, 0, claims.sets)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.SignInsTotal.WithLabelValues("new")))
}

func TestSignIn_DefaultsTimezoneAndName(t *testing.T) {
	svc, _, records := newAccountFixture(t)
	_, err := svc.SignIn(context.Background(), user("u1"), Profile{})
	require.NoError(t, err)

	a := getAccount(t, records, "u1")
	assert.Equal(t, "UTC", a.Timezone)
	assert.Equal(t, "u1@example.com", a.DisplayName)
}

func TestSignIn_ExistingAccountIsNotRewritten(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Role: "admin", HijriAdjustment: 2})
	records.sets = 0

	sess, err := svc.SignIn(ctx, user("u1"), Profile{Timezone: "Asia/Dubai"})
	require.NoError(t, err)
	assert.Equal(t, 0, records.sets)
	assert.Equal(t, 0, records.updates)
	assert.Equal(t, 2, sess.Account.HijriAdjustment)
	assert.Equal(t, "UTC", sess.Account.Timezone)
}

func TestSignIn_TokenCarriesStoredClaims(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Role: "admin"})
	require.NoError(t, claims.SetClaims(ctx, "u1", roles.Claims{Admin: true}))

	sess, err := svc.SignIn(ctx, user("u1"), Profile{})
	require.NoError(t, err)

	id, err := auth.ParseToken(sess.Token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, roles.Admin, id.Role())
}

func TestSignIn_BootstrapCreate(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newAccountFixture(t)

	sess, err := svc.SignIn(ctx, owner(), Profile{})
	require.NoError(t, err)

	assert.Equal(t, "master_admin", getAccount(t, records, "boot").Role)
	c, _ := claims.GetClaims(ctx, "boot")
	assert.Equal(t, roles.Claims{MasterAdmin: true}, c)

	id, err := auth.ParseToken(sess.Token, []byte("test-secret"))
	require.NoError(t, err)
	assert.True(t, id.Claims.MasterAdmin)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.SignInsTotal.WithLabelValues("bootstrap_created")))
}

func TestSignIn_BootstrapNoop(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "boot", Role: "master_admin"})
	require.NoError(t, claims.SetClaims(ctx, "boot", roles.Claims{MasterAdmin: true}))
	records.sets, claims.sets = 0, 0

	_, err := svc.SignIn(ctx, owner(), Profile{})
	require.NoError(t, err)
	assert.Equal(t, 0, records.sets)
	assert.Equal(t, 0, records.updates)
	assert.Equal(t, 0, claims.sets)
}

func TestSignIn_BootstrapSelfHeal(t *testing.T) {
	ctx := context.Background()
	svc, claims, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "boot", Role: "user", DisplayName: "Owner"})

	sess, err := svc.SignIn(ctx, owner(), Profile{})
	require.NoError(t, err)

	a := getAccount(t, records, "boot")
	assert.Equal(t, "master_admin", a.Role)
	assert.Equal(t, "Owner", a.DisplayName)
	assert.Equal(t, "master_admin", sess.Account.Role)
	assert.Equal(t, 1, records.updates)

	c, _ := claims.GetClaims(ctx, "boot")
	assert.Equal(t, roles.Claims{MasterAdmin: true}, c)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.SignInsTotal.WithLabelValues("bootstrap_healed")))
}

func TestSignIn_BootstrapRequiresExactEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)

	_, err := svc.SignIn(ctx, auth.Identity{UID: "x", Email: "OWNER@dualcal.local"}, Profile{})
	require.NoError(t, err)
	assert.Equal(t, "user", getAccount(t, records, "x").Role)
}

func TestSignIn_BootstrapDisabledWhenUnset(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	svc.bootstrapEmail = ""

	_, err := svc.SignIn(ctx, auth.Identity{UID: "x"}, Profile{})
	require.NoError(t, err)
	assert.Equal(t, "user", getAccount(t, records, "x").Role)
}

func TestSignIn_ClaimsReadFailure(t *testing.T) {
	svc, claims, _ := newAccountFixture(t)
	claims.getErr = errStoreDown

	_, err := svc.SignIn(context.Background(), user("u1"), Profile{})
	assertStatus(t, err, common.ErrInternal, "Error reading claims: store down")
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)

	_, err := svc.Get(ctx, user("u1"))
	assertStatus(t, err, common.ErrorNotFound, "Account not found")

	putAccount(t, records, models.UserAccount{UID: "u1", Email: "a@b"})
	a, err := svc.Get(ctx, user("u1"))
	require.NoError(t, err)
	assert.Equal(t, "a@b", a.Email)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Role: "user"})

	lat, lon := 24.47, 54.37
	a, err := svc.UpdateSettings(ctx, user("u1"), Settings{Timezone: "Asia/Dubai", HijriAdjustment: -1, UseGeo: true, Lat: &lat, Lon: &lon})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Dubai", a.Timezone)
	assert.Equal(t, -1, a.HijriAdjustment)
	assert.True(t, a.UseGeo)
	require.NotNil(t, a.Lat)
	assert.Equal(t, 24.47, *a.Lat)
	assert.Equal(t, "user", a.Role)
}

func TestUpdateSettings_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1"})

	_, err := svc.UpdateSettings(ctx, user("u1"), Settings{})
	assertStatus(t, err, common.ErrInvalidArgument, "field timezone is a required field")

	_, err = svc.UpdateSettings(ctx, user("u1"), Settings{Timezone: "UTC", HijriAdjustment: 31})
	assertStatus(t, err, common.ErrInvalidArgument, "field hijriAdjustment must be at most 30")

	bad := 91.0
	_, err = svc.UpdateSettings(ctx, user("u1"), Settings{Timezone: "UTC", Lat: &bad, Lon: &bad})
	assertStatus(t, err, common.ErrInvalidArgument, "field lat must be at most 90")

	_, err = svc.UpdateSettings(ctx, user("u1"), Settings{Timezone: "Mars/Olympus"})
	assertStatus(t, err, common.ErrInvalidArgument, `Unknown timezone "Mars/Olympus"`)
}

func TestUpdateSettings_MissingAccount(t *testing.T) {
	svc, _, _ := newAccountFixture(t)
	_, err := svc.UpdateSettings(context.Background(), user("u1"), Settings{Timezone: "UTC"})
	assertStatus(t, err, common.ErrorNotFound, "Account not found")
}

func TestSetUserAdjustment(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", AdminID: strptr("a1")})
	putAccount(t, records, models.UserAccount{UID: "u2"})

	require.NoError(t, svc.SetUserAdjustment(ctx, admin("a1"), "u1", 2))
	assert.Equal(t, 2, getAccount(t, records, "u1").HijriAdjustment)

	err := svc.SetUserAdjustment(ctx, admin("a1"), "u2", 1)
	assertStatus(t, err, common.ErrPermissionDenied, "Account is not managed by caller")

	require.NoError(t, svc.SetUserAdjustment(ctx, master("m1"), "u2", -1))
	assert.Equal(t, -1, getAccount(t, records, "u2").HijriAdjustment)

	err = svc.SetUserAdjustment(ctx, user("u3"), "u1", 1)
	assertStatus(t, err, common.ErrPermissionDenied, "")

	err = svc.SetUserAdjustment(ctx, master("m1"), "u1", 99)
	assertStatus(t, err, common.ErrInvalidArgument, "")

	err = svc.SetUserAdjustment(ctx, master("m1"), "ghost", 1)
	assertStatus(t, err, common.ErrorNotFound, "")
}

func TestAssignManager(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1"})
	putAccount(t, records, models.UserAccount{UID: "a1", Role: "admin"})
	putAccount(t, records, models.UserAccount{UID: "u2"})

	require.NoError(t, svc.AssignManager(ctx, master("m1"), "u1", "a1"))
	assert.True(t, getAccount(t, records, "u1").ManagedBy("a1"))

	err := svc.AssignManager(ctx, master("m1"), "u1", "u2")
	assertStatus(t, err, common.ErrInvalidArgument, "Manager must be an admin")

	err = svc.AssignManager(ctx, admin("a1"), "u1", "a1")
	assertStatus(t, err, common.ErrPermissionDenied, "Only master admins can assign managers")

	require.NoError(t, svc.AssignManager(ctx, master("m1"), "u1", ""))
	assert.Nil(t, getAccount(t, records, "u1").AdminID)
}

func TestWatchManagedUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Email: "b@x", AdminID: strptr("a1")})
	putAccount(t, records, models.UserAccount{UID: "u2", Email: "a@x", AdminID: strptr("a2")})

	_, err := svc.WatchManagedUsers(ctx, user("u9"))
	assertStatus(t, err, common.ErrPermissionDenied, "")

	s, err := svc.WatchManagedUsers(ctx, admin("a1"))
	require.NoError(t, err)
	defer s.Close()

	u := next(t, s)
	require.NoError(t, u.Err)
	require.Len(t, u.Items, 1)
	assert.Equal(t, "u1", u.Items[0].UID)

	putAccount(t, records, models.UserAccount{UID: "u3", Email: "a@x", AdminID: strptr("a1")})
	u = waitFor(t, s, func(u Update[models.UserAccount]) bool { return len(u.Items) == 2 })
	assert.Equal(t, "u3", u.Items[0].UID, "ordered by email")
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.SubscriptionsActive))
}

func TestWatchAllUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newAccountFixture(t)
	putAccount(t, records, models.UserAccount{UID: "u1", Email: "u1@x"})
	putAccount(t, records, models.UserAccount{UID: "u2", Email: "u2@x"})

	_, err := svc.WatchAllUsers(ctx, admin("a1"))
	assertStatus(t, err, common.ErrPermissionDenied, "Only master admins can list all users")

	s, err := svc.WatchAllUsers(ctx, master("m1"))
	require.NoError(t, err)
	u := next(t, s)
	assert.Len(t, u.Items, 2)

	require.NoError(t, s.Close())
	assert.Equal(t, 0.0, testutil.ToFloat64(svc.metrics.SubscriptionsActive))
}

func TestWatchUsers_StoreError(t *testing.T) {
	svc, _, records := newAccountFixture(t)
	records.watchErr = errStoreDown
	_, err := svc.WatchAllUsers(context.Background(), master("m1"))
	assertStatus(t, err, common.ErrInternal, "Error watching users: store down")
}
