package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/dmitrijs2005/dualcal/internal/timex"
)

type AnnouncementInput struct {
	Title   string `validate:"required,max=200"`
	Message string `validate:"required,max=4000"`
}

type AnnouncementService struct {
	records store.RecordStore
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time
}

func NewAnnouncementService(records store.RecordStore, m *metrics.Metrics, l logging.Logger) *AnnouncementService {
	return &AnnouncementService{records: records, metrics: m, logger: l.With("module", "announcements"), now: time.Now}
}

// Post publishes an announcement. A master admin posts globally, an admin to
// the accounts they manage.
func (s *AnnouncementService) Post(ctx context.Context, caller auth.Identity, in AnnouncementInput) (models.Announcement, error) {
	if err := requireRole(caller, roles.Admin, "Only admins can post announcements"); err != nil {
		return models.Announcement{}, err
	}
	if err := validateInput(in); err != nil {
		return models.Announcement{}, err
	}

	a := models.Announcement{
		Title:     in.Title,
		Message:   in.Message,
		CreatedBy: caller.UID,
		CreatedAt: timex.Stamp(s.now()),
	}
	switch caller.Role() {
	case roles.MasterAdmin:
		a.Scope = models.ScopeGlobal
	case roles.Admin:
		adminID := caller.UID
		a.Scope = models.ScopeAdmin
		a.AdminID = &adminID
	case roles.User:
		return models.Announcement{}, common.Status(common.ErrPermissionDenied, "Only admins can post announcements")
	}
	return s.add(ctx, a)
}

// PostToUser publishes an announcement only uid can see.
func (s *AnnouncementService) PostToUser(ctx context.Context, caller auth.Identity, uid string, in AnnouncementInput) (models.Announcement, error) {
	if err := requireRole(caller, roles.Admin, "Only admins can post announcements"); err != nil {
		return models.Announcement{}, err
	}
	if uid == "" {
		return models.Announcement{}, common.Status(common.ErrInvalidArgument, "Missing uid")
	}
	if err := validateInput(in); err != nil {
		return models.Announcement{}, err
	}
	target, err := loadAccount(ctx, s.records, uid)
	if err != nil {
		return models.Announcement{}, err
	}
	if !canManage(caller, target) {
		return models.Announcement{}, common.Status(common.ErrPermissionDenied, "Account is not managed by caller")
	}

	owner := uid
	a := models.Announcement{
		Title:     in.Title,
		Message:   in.Message,
		Scope:     models.ScopeUser,
		OwnerID:   &owner,
		CreatedBy: caller.UID,
		CreatedAt: timex.Stamp(s.now()),
	}
	return s.add(ctx, a)
}

func (s *AnnouncementService) add(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	fields, err := a.Fields()
	if err != nil {
		return models.Announcement{}, internalError("Error posting announcement", err)
	}
	id, err := s.records.Add(ctx, common.CollectionAnnouncements, fields)
	if err != nil {
		return models.Announcement{}, internalError("Error posting announcement", err)
	}
	a.ID = id
	s.logger.Info(ctx, "announcement posted", "id", id, "scope", a.Scope, "by", a.CreatedBy)
	return a, nil
}

// Watch streams the announcements visible to the caller, newest first. The
// caller's manager is read once when the stream opens.
func (s *AnnouncementService) Watch(ctx context.Context, caller auth.Identity) (*Stream[models.Announcement], error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	account, err := loadAccount(ctx, s.records, caller.UID)
	if err != nil {
		return nil, err
	}
	readerAdmin := ""
	if account.AdminID != nil {
		readerAdmin = *account.AdminID
	}
	master := caller.Claims.MasterAdmin

	q := store.Query{Collection: common.CollectionAnnouncements}.Ordered("createdAt", true)
	sub, err := s.records.Watch(ctx, q)
	if err != nil {
		return nil, internalError("Error watching announcements", err)
	}
	s.metrics.SubscriptionOpened()
	keep := func(a models.Announcement) bool {
		return a.VisibleTo(caller.UID, readerAdmin, master)
	}
	return newStream(sub, models.AnnouncementFromRecord, keep, s.metrics.SubscriptionClosed), nil
}
