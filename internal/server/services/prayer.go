package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/prayer"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/metrics"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
)

// TimingsSource fetches the day's prayer timings for a location.
type TimingsSource interface {
	Timings(ctx context.Context, at time.Time, lat, lon float64, timezone string) (prayer.Timings, error)
}

type PrayerService struct {
	records store.RecordStore
	source  TimingsSource
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewPrayerService(records store.RecordStore, source TimingsSource, m *metrics.Metrics, l logging.Logger) *PrayerService {
	return &PrayerService{records: records, source: source, metrics: m, logger: l.With("module", "prayer")}
}

// SetCustomTimes replaces the prayer time overrides of a managed account.
func (s *PrayerService) SetCustomTimes(ctx context.Context, caller auth.Identity, uid string, times map[string]string) error {
	if err := requireRole(caller, roles.Admin, "Only admins can set prayer times"); err != nil {
		return err
	}
	if uid == "" {
		return common.Status(common.ErrInvalidArgument, "Missing uid")
	}
	for name, clock := range times {
		if !prayer.IsName(name) {
			return common.Statusf(common.ErrInvalidArgument, "Unknown prayer %q", name)
		}
		if !prayer.ValidClock(clock) {
			return common.Statusf(common.ErrInvalidArgument, "Invalid time %q for %s", clock, name)
		}
	}
	target, err := loadAccount(ctx, s.records, uid)
	if err != nil {
		return err
	}
	if !canManage(caller, target) {
		return common.Status(common.ErrPermissionDenied, "Account is not managed by caller")
	}

	value := make(map[string]any, len(times))
	for k, v := range times {
		value[k] = v
	}
	if err := s.records.Update(ctx, common.CollectionUsers, uid, map[string]any{"customPrayerTimes": value}); err != nil {
		return internalError("Error saving prayer times", err)
	}
	return nil
}

// Next returns the caller's next prayer after now, in the account's timezone.
func (s *PrayerService) Next(ctx context.Context, caller auth.Identity, now time.Time) (prayer.Next, error) {
	if err := requireCaller(caller); err != nil {
		return prayer.Next{}, err
	}
	account, err := loadAccount(ctx, s.records, caller.UID)
	if err != nil {
		return prayer.Next{}, err
	}
	if account.Lat == nil || account.Lon == nil {
		return prayer.Next{}, common.Status(common.ErrInvalidArgument, "Location not set")
	}
	loc, err := time.LoadLocation(account.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	timings, err := s.source.Timings(ctx, local, *account.Lat, *account.Lon, loc.String())
	s.metrics.PrayerLookup(err)
	if err != nil {
		s.logger.Warn(ctx, "prayer timings lookup failed", "uid", caller.UID, logging.Err(err))
		return prayer.Next{}, internalError("Error fetching prayer times", err)
	}

	next, err := prayer.NextPrayer(local, timings, account.CustomPrayerTimes)
	if err != nil {
		return prayer.Next{}, internalError("Error computing next prayer", err)
	}
	return next, nil
}
