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

// EventInput is a calendar entry to add.
type EventInput struct {
	Title string `validate:"required,max=200"`
	Date  string `validate:"required,isodate"`
}

// CalendarService manages personal events and the shared holiday list.
type CalendarService struct {
	records store.RecordStore
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time
}

func NewCalendarService(records store.RecordStore, m *metrics.Metrics, l logging.Logger) *CalendarService {
	return &CalendarService{records: records, metrics: m, logger: l.With("module", "calendar"), now: time.Now}
}

// AddEvent adds an event owned by the caller.
func (s *CalendarService) AddEvent(ctx context.Context, caller auth.Identity, in EventInput) (models.Event, error) {
	if err := requireCaller(caller); err != nil {
		return models.Event{}, err
	}
	if err := validateInput(in); err != nil {
		return models.Event{}, err
	}
	e := models.Event{
		Title:     in.Title,
		Date:      in.Date,
		OwnerID:   caller.UID,
		CreatedBy: caller.UID,
		CreatedAt: timex.Stamp(s.now()),
	}
	return s.addEvent(ctx, e)
}

// AddEventFor adds an event to an account the caller manages.
func (s *CalendarService) AddEventFor(ctx context.Context, caller auth.Identity, uid string, in EventInput) (models.Event, error) {
	if err := requireRole(caller, roles.Admin, "Only admins can add events for other accounts"); err != nil {
		return models.Event{}, err
	}
	if uid == "" {
		return models.Event{}, common.Status(common.ErrInvalidArgument, "Missing uid")
	}
	if err := validateInput(in); err != nil {
		return models.Event{}, err
	}
	target, err := loadAccount(ctx, s.records, uid)
	if err != nil {
		return models.Event{}, err
	}
	if !canManage(caller, target) {
		return models.Event{}, common.Status(common.ErrPermissionDenied, "Account is not managed by caller")
	}
	adminID := caller.UID
	e := models.Event{
		Title:     in.Title,
		Date:      in.Date,
		OwnerID:   uid,
		CreatedBy: caller.UID,
		AdminID:   &adminID,
		CreatedAt: timex.Stamp(s.now()),
	}
	return s.addEvent(ctx, e)
}

func (s *CalendarService) addEvent(ctx context.Context, e models.Event) (models.Event, error) {
	fields, err := e.Fields()
	if err != nil {
		return models.Event{}, internalError("Error adding event", err)
	}
	id, err := s.records.Add(ctx, common.CollectionEvents, fields)
	if err != nil {
		return models.Event{}, internalError("Error adding event", err)
	}
	e.ID = id
	return e, nil
}

// AddHoliday adds a holiday visible to every account.
func (s *CalendarService) AddHoliday(ctx context.Context, caller auth.Identity, in EventInput) (models.Holiday, error) {
	if err := requireRole(caller, roles.MasterAdmin, "Only master admins can add holidays"); err != nil {
		return models.Holiday{}, err
	}
	if err := validateInput(in); err != nil {
		return models.Holiday{}, err
	}
	h := models.Holiday{
		Title:     in.Title,
		Date:      in.Date,
		CreatedBy: caller.UID,
		CreatedAt: timex.Stamp(s.now()),
	}
	fields, err := h.Fields()
	if err != nil {
		return models.Holiday{}, internalError("Error adding holiday", err)
	}
	id, err := s.records.Add(ctx, common.CollectionHolidays, fields)
	if err != nil {
		return models.Holiday{}, internalError("Error adding holiday", err)
	}
	h.ID = id
	s.logger.Info(ctx, "holiday added", "id", id, "date", h.Date, "by", caller.UID)
	return h, nil
}

// ListHolidays returns every holiday ordered by date.
func (s *CalendarService) ListHolidays(ctx context.Context, caller auth.Identity) ([]models.Holiday, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return queryHolidays(ctx, s.records)
}

// WatchEvents streams the caller's events ordered by date.
func (s *CalendarService) WatchEvents(ctx context.Context, caller auth.Identity) (*Stream[models.Event], error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	q := store.Where(common.CollectionEvents, "ownerId", caller.UID).Ordered("date", false)
	sub, err := s.records.Watch(ctx, q)
	if err != nil {
		return nil, internalError("Error watching events", err)
	}
	s.metrics.SubscriptionOpened()
	return newStream(sub, models.EventFromRecord, nil, s.metrics.SubscriptionClosed), nil
}

func queryHolidays(ctx context.Context, records store.RecordStore) ([]models.Holiday, error) {
	recs, err := records.Query(ctx, store.Query{Collection: common.CollectionHolidays}.Ordered("date", false))
	if err != nil {
		return nil, internalError("Error listing holidays", err)
	}
	out := make([]models.Holiday, 0, len(recs))
	for _, r := range recs {
		h, err := models.HolidayFromRecord(r)
		if err != nil {
			return nil, internalError("Error listing holidays", err)
		}
		out = append(out, h)
	}
	return out, nil
}

func queryEvents(ctx context.Context, records store.RecordStore, uid string) ([]models.Event, error) {
	recs, err := records.Query(ctx, store.Where(common.CollectionEvents, "ownerId", uid).Ordered("date", false))
	if err != nil {
		return nil, internalError("Error listing events", err)
	}
	out := make([]models.Event, 0, len(recs))
	for _, r := range recs {
		e, err := models.EventFromRecord(r)
		if err != nil {
			return nil, internalError("Error listing events", err)
		}
		out = append(out, e)
	}
	return out, nil
}
