package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/config"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/dmitrijs2005/dualcal/internal/timex"
)

// Profile is what the client knows about the caller at sign-in.
type Profile struct {
	DisplayName string
	Timezone    string
}

// Session is the result of a sign-in: the caller's account and a token
// carrying the claims currently stored for them.
type Session struct {
	Account models.UserAccount
	Token   string
}

// Settings are the fields an account holder may change on their own record.
type Settings struct {
	Timezone        string `validate:"required"`
	HijriAdjustment int    `validate:"min=-30,max=30"`
	UseGeo          bool
	Lat             *float64 `validate:"omitempty,min=-90,max=90"`
	Lon             *float64 `validate:"omitempty,min=-180,max=180"`
}

// AccountService manages users/{uid} records.
type AccountService struct {
	claims          store.ClaimsStore
	records         store.RecordStore
	metrics         *metrics.Metrics
	logger          logging.Logger
	secret          []byte
	tokenTTL        time.Duration
	bootstrapEmail  string
	defaultTimezone string
	now             func() time.Time
}

func NewAccountService(claims store.ClaimsStore, records store.RecordStore, cfg *config.Config, m *metrics.Metrics, l logging.Logger) *AccountService {
	return &AccountService{
		claims:          claims,
		records:         records,
		metrics:         m,
		logger:          l.With("module", "accounts"),
		secret:          []byte(cfg.SecretKey),
		tokenTTL:        cfg.TokenValidityDuration,
		bootstrapEmail:  cfg.BootstrapEmail,
		defaultTimezone: cfg.DefaultTimezone,
		now:             time.Now,
	}
}

func (s *AccountService) isBootstrap(email string) bool {
	return s.bootstrapEmail != "" && email == s.bootstrapEmail
}

// SignIn creates the caller's account on first sign-in and returns it with a
// fresh token. The reserved bootstrap identity is created as, or brought back
// to, master_admin; its claims are repaired the same way.
func (s *AccountService) SignIn(ctx context.Context, caller auth.Identity, p Profile) (*Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	bootstrap := s.isBootstrap(caller.Email)

	account, err := s.loadOrCreate(ctx, caller, p, bootstrap)
	if err != nil {
		return nil, err
	}

	if bootstrap {
		if err := s.healBootstrapClaims(ctx, caller.UID); err != nil {
			return nil, err
		}
	}

	claims, err := s.claims.GetClaims(ctx, caller.UID)
	if err != nil {
		return nil, internalError("Error reading claims", err)
	}
	token, err := auth.GenerateToken(auth.Identity{UID: caller.UID, Email: caller.Email, Claims: claims}, s.secret, s.tokenTTL)
	if err != nil {
		return nil, internalError("Error issuing token", err)
	}
	return &Session{Account: account, Token: token}, nil
}

func (s *AccountService) loadOrCreate(ctx context.Context, caller auth.Identity, p Profile, bootstrap bool) (models.UserAccount, error) {
	rec, err := s.records.Get(ctx, common.CollectionUsers, caller.UID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return s.create(ctx, caller, p, bootstrap)
	case err != nil:
		return models.UserAccount{}, internalError("Error loading account", err)
	}

	account, err := models.AccountFromRecord(rec)
	if err != nil {
		return models.UserAccount{}, internalError("Error loading account", err)
	}
	if !bootstrap || account.Role == roles.MasterAdmin.String() {
		s.metrics.SignedIn("existing")
		return account, nil
	}

	if err := s.records.Update(ctx, common.CollectionUsers, caller.UID, map[string]any{"role": roles.MasterAdmin.String()}); err != nil {
		return models.UserAccount{}, internalError("Error updating account", err)
	}
	s.logger.Warn(ctx, "bootstrap account role restored", "uid", caller.UID, "was", account.Role)
	s.metrics.SignedIn("bootstrap_healed")
	account.Role = roles.MasterAdmin.String()
	return account, nil
}

func (s *AccountService) create(ctx context.Context, caller auth.Identity, p Profile, bootstrap bool) (models.UserAccount, error) {
	role := roles.User
	kind := "new"
	if bootstrap {
		role = roles.MasterAdmin
		kind = "bootstrap_created"
	}
	tz := p.Timezone
	if tz == "" {
		tz = s.defaultTimezone
	}
	name := p.DisplayName
	if name == "" {
		name = caller.Email
	}

	account := models.UserAccount{
		UID:             caller.UID,
		Email:           caller.Email,
		DisplayName:     name,
		Role:            role.String(),
		Timezone:        tz,
		HijriAdjustment: 0,
		CreatedAt:       timex.Stamp(s.now()),
	}
	fields, err := account.Fields()
	if err != nil {
		return models.UserAccount{}, internalError("Error creating account", err)
	}
	if err := s.records.Set(ctx, common.CollectionUsers, caller.UID, fields); err != nil {
		return models.UserAccount{}, internalError("Error creating account", err)
	}
	s.logger.Info(ctx, "account created", "uid", caller.UID, "role", role.String())
	s.metrics.SignedIn(kind)
	return account, nil
}

func (s *AccountService) healBootstrapClaims(ctx context.Context, uid string) error {
	want := roles.ClaimsFor(roles.MasterAdmin)
	have, err := s.claims.GetClaims(ctx, uid)
	if err != nil {
		return internalError("Error reading claims", err)
	}
	if have == want {
		return nil
	}
	if err := s.claims.SetClaims(ctx, uid, want); err != nil {
		return internalError("Error setting claims", err)
	}
	s.logger.Warn(ctx, "bootstrap claims restored", "uid", uid)
	return nil
}

func (s *AccountService) load(ctx context.Context, uid string) (models.UserAccount, error) {
	return loadAccount(ctx, s.records, uid)
}

func loadAccount(ctx context.Context, records store.RecordStore, uid string) (models.UserAccount, error) {
	rec, err := records.Get(ctx, common.CollectionUsers, uid)
	if errors.Is(err, common.ErrorNotFound) {
		return models.UserAccount{}, common.Status(common.ErrorNotFound, "Account not found")
	}
	if err != nil {
		return models.UserAccount{}, internalError("Error loading account", err)
	}
	account, err := models.AccountFromRecord(rec)
	if err != nil {
		return models.UserAccount{}, internalError("Error loading account", err)
	}
	return account, nil
}

// Get returns the caller's own account.
func (s *AccountService) Get(ctx context.Context, caller auth.Identity) (models.UserAccount, error) {
	if err := requireCaller(caller); err != nil {
		return models.UserAccount{}, err
	}
	return s.load(ctx, caller.UID)
}

// UpdateSettings writes the caller's own preferences. The role field is
// never part of the write.
func (s *AccountService) UpdateSettings(ctx context.Context, caller auth.Identity, in Settings) (models.UserAccount, error) {
	if err := requireCaller(caller); err != nil {
		return models.UserAccount{}, err
	}
	if err := validateInput(in); err != nil {
		return models.UserAccount{}, err
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return models.UserAccount{}, common.Statusf(common.ErrInvalidArgument, "Unknown timezone %q", in.Timezone)
	}

	partial := map[string]any{
		"timezone":        in.Timezone,
		"hijriAdjustment": in.HijriAdjustment,
		"useGeo":          in.UseGeo,
	}
	if in.Lat != nil && in.Lon != nil {
		partial["lat"] = *in.Lat
		partial["lon"] = *in.Lon
	}
	if err := s.records.Update(ctx, common.CollectionUsers, caller.UID, partial); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.UserAccount{}, common.Status(common.ErrorNotFound, "Account not found")
		}
		return models.UserAccount{}, internalError("Error saving settings", err)
	}
	return s.load(ctx, caller.UID)
}

// SetUserAdjustment changes the Hijri day offset of a managed account.
func (s *AccountService) SetUserAdjustment(ctx context.Context, caller auth.Identity, uid string, adjustment int) error {
	if err := requireRole(caller, roles.Admin, "Only admins can adjust other accounts"); err != nil {
		return err
	}
	if uid == "" {
		return common.Status(common.ErrInvalidArgument, "Missing uid")
	}
	if adjustment < -30 || adjustment > 30 {
		return common.Status(common.ErrInvalidArgument, "field hijriAdjustment must be between -30 and 30")
	}
	target, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	if !canManage(caller, target) {
		return common.Status(common.ErrPermissionDenied, "Account is not managed by caller")
	}
	if err := s.records.Update(ctx, common.CollectionUsers, uid, map[string]any{"hijriAdjustment": adjustment}); err != nil {
		return internalError("Error saving adjustment", err)
	}
	return nil
}

// AssignManager sets or, with an empty adminID, clears the admin managing
// uid. The new manager must hold the admin or master_admin role.
func (s *AccountService) AssignManager(ctx context.Context, caller auth.Identity, uid, adminID string) error {
	if err := requireRole(caller, roles.MasterAdmin, "Only master admins can assign managers"); err != nil {
		return err
	}
	if uid == "" {
		return common.Status(common.ErrInvalidArgument, "Missing uid")
	}
	if _, err := s.load(ctx, uid); err != nil {
		return err
	}

	var value any
	if adminID != "" {
		manager, err := s.load(ctx, adminID)
		if err != nil {
			return err
		}
		r, err := manager.ParsedRole()
		if err != nil || !r.AtLeast(roles.Admin) {
			return common.Status(common.ErrInvalidArgument, "Manager must be an admin")
		}
		value = adminID
	}
	if err := s.records.Update(ctx, common.CollectionUsers, uid, map[string]any{"adminId": value}); err != nil {
		return internalError("Error assigning manager", err)
	}
	s.logger.Info(ctx, "manager assigned", "uid", uid, "adminId", adminID, "by", caller.UID)
	return nil
}

// WatchManagedUsers streams the accounts managed by the caller.
func (s *AccountService) WatchManagedUsers(ctx context.Context, caller auth.Identity) (*Stream[models.UserAccount], error) {
	if err := requireRole(caller, roles.Admin, "Only admins can list managed users"); err != nil {
		return nil, err
	}
	q := store.Where(common.CollectionUsers, "adminId", caller.UID).Ordered("email", false)
	return s.watch(ctx, q)
}

// WatchAllUsers streams every account.
func (s *AccountService) WatchAllUsers(ctx context.Context, caller auth.Identity) (*Stream[models.UserAccount], error) {
	if err := requireRole(caller, roles.MasterAdmin, "Only master admins can list all users"); err != nil {
		return nil, err
	}
	q := store.Query{Collection: common.CollectionUsers}.Ordered("email", false)
	return s.watch(ctx, q)
}

func (s *AccountService) watch(ctx context.Context, q store.Query) (*Stream[models.UserAccount], error) {
	sub, err := s.records.Watch(ctx, q)
	if err != nil {
		return nil, internalError("Error watching users", err)
	}
	s.metrics.SubscriptionOpened()
	return newStream(sub, models.AccountFromRecord, nil, s.metrics.SubscriptionClosed), nil
}
