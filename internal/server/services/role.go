package services

import (
	"context"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
)

// RoleService owns the only privileged mutation: assigning a role.
type RoleService struct {
	claims  store.ClaimsStore
	records store.RecordStore
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewRoleService(claims store.ClaimsStore, records store.RecordStore, m *metrics.Metrics, l logging.Logger) *RoleService {
	return &RoleService{claims: claims, records: records, metrics: m, logger: l.With("module", "roles")}
}

// SetRole makes uid hold role. Preconditions are checked in order and the
// first failure is returned. The claim set is replaced first and the account
// record updated second; a failure between the two writes is reported as
// Internal and left as is.
func (s *RoleService) SetRole(ctx context.Context, caller auth.Identity, uid, role string) error {
	if !caller.Authenticated() {
		return common.Status(common.ErrUnauthenticated, "Must be signed in")
	}
	if !caller.Claims.MasterAdmin {
		return common.Status(common.ErrPermissionDenied, "Only master admins can set roles")
	}
	if uid == "" || role == "" {
		return common.Status(common.ErrInvalidArgument, "Missing uid or role")
	}
	r, err := roles.Parse(role)
	if err != nil {
		return common.Status(common.ErrInvalidArgument, "Invalid role")
	}

	if err := s.claims.SetClaims(ctx, uid, roles.ClaimsFor(r)); err != nil {
		return s.fail(ctx, uid, r, err)
	}
	if err := s.records.Update(ctx, common.CollectionUsers, uid, map[string]any{"role": r.String()}); err != nil {
		return s.fail(ctx, uid, r, err)
	}

	s.metrics.RoleChanged(r.String(), nil)
	s.logger.Info(ctx, "role set", "uid", uid, "role", r.String(), "by", caller.UID)
	return nil
}

func (s *RoleService) fail(ctx context.Context, uid string, r roles.Role, err error) error {
	s.metrics.RoleChanged(r.String(), err)
	s.logger.Error(ctx, "set role failed", "uid", uid, "role", r.String(), logging.Err(err))
	return internalError("Error setting role", err)
}
