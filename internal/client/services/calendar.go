// Package services contains the CLI's application services: signing in,
// syncing the offline cache and building month views from it.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/calendar"
	"github.com/dmitrijs2005/dualcal/internal/client/client"
	"github.com/dmitrijs2005/dualcal/internal/client/models"
	"github.com/dmitrijs2005/dualcal/internal/client/repositories/items"
	"github.com/dmitrijs2005/dualcal/internal/client/repositories/metadata"
	pb "github.com/dmitrijs2005/dualcal/internal/proto"
)

// MonthView is a laid out month with the cached items dated in it.
type MonthView struct {
	Month calendar.Month
	Items []models.Item
	Marks map[int]bool
}

// CalendarService defines what the CLI does with the server and the cache.
//
// Month works offline from the cache; everything else needs the server.
type CalendarService interface {
	SignIn(ctx context.Context, providerToken, timezone string) (*pb.Account, error)
	// Restore resumes the cached session, returning the cached account.
	Restore(ctx context.Context) (*pb.Account, error)
	SignOut(ctx context.Context) error
	Ping(ctx context.Context) error
	Sync(ctx context.Context) error
	// Follow keeps cached events current until ctx ends.
	Follow(ctx context.Context, onChange func(n int)) error
	Month(ctx context.Context, v calendar.View) (MonthView, error)
	AddEvent(ctx context.Context, title, date string) (*pb.Event, error)
	UpdateSettings(ctx context.Context, timezone string, adjustment int) (*pb.Account, error)
	SetRole(ctx context.Context, uid, role string) error
	NextPrayer(ctx context.Context) (*pb.NextPrayer, error)
	Export(ctx context.Context, v calendar.View) (*pb.Export, error)
	Close() error
}

type calendarService struct {
	client   client.Client
	items    items.Repository
	metadata metadata.Repository
	now      func() time.Time
}

func NewCalendarService(c client.Client, it items.Repository, md metadata.Repository) CalendarService {
	return &calendarService{client: c, items: it, metadata: md, now: time.Now}
}

func (s *calendarService) Close() error {
	return s.client.Close()
}

func (s *calendarService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *calendarService) SignIn(ctx context.Context, providerToken, timezone string) (*pb.Account, error) {
	resp, err := s.client.SignIn(ctx, providerToken, pb.SignInRequest{Timezone: timezone})
	if err != nil {
		return nil, err
	}
	if err := s.metadata.Set(ctx, metadata.KeyProviderToken, []byte(providerToken)); err != nil {
		return nil, err
	}
	if err := s.metadata.Set(ctx, metadata.KeySessionToken, []byte(resp.Token)); err != nil {
		return nil, err
	}
	if err := s.metadata.SetJSON(ctx, metadata.KeyAccount, resp.Account); err != nil {
		return nil, err
	}
	return &resp.Account, nil
}

func (s *calendarService) Restore(ctx context.Context) (*pb.Account, error) {
	var acc pb.Account
	ok, err := s.metadata.GetJSON(ctx, metadata.KeyAccount, &acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, client.ErrNoLocalAccount
	}

	provider, err := s.metadata.Get(ctx, metadata.KeyProviderToken)
	if err != nil {
		return nil, err
	}
	session, err := s.metadata.Get(ctx, metadata.KeySessionToken)
	if err != nil {
		return nil, err
	}
	s.client.Resume(string(provider), string(session))
	return &acc, nil
}

func (s *calendarService) SignOut(ctx context.Context) error {
	s.client.Resume("", "")
	if err := s.items.Replace(ctx, models.KindEvent, nil); err != nil {
		return err
	}
	return s.metadata.Clear(ctx)
}

// Sync refreshes the cached account, holidays and events.
func (s *calendarService) Sync(ctx context.Context) error {
	acc, err := s.client.Account(ctx)
	if err != nil {
		return err
	}
	if err := s.metadata.SetJSON(ctx, metadata.KeyAccount, acc); err != nil {
		return err
	}
	if err := s.saveToken(ctx); err != nil {
		return err
	}

	hs, err := s.client.ListHolidays(ctx)
	if err != nil {
		return err
	}
	holidays := make([]models.Item, 0, len(hs))
	for _, h := range hs {
		holidays = append(holidays, models.Item{ID: h.ID, Title: h.Title, Date: h.Date})
	}
	if err := s.items.Replace(ctx, models.KindHoliday, holidays); err != nil {
		return err
	}

	// The first snapshot of the live feed is the current event list.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var snapErr error
	got := false
	err = s.client.WatchEvents(wctx, func(evs []pb.Event) {
		if got {
			return
		}
		got = true
		snapErr = s.replaceEvents(ctx, evs)
		cancel()
	})
	if err != nil {
		return err
	}
	if snapErr != nil {
		return snapErr
	}

	return s.metadata.Set(ctx, metadata.KeyLastSync, []byte(s.now().UTC().Format(time.RFC3339)))
}

// saveToken persists a session token renewed by the client.
func (s *calendarService) saveToken(ctx context.Context) error {
	tok := s.client.SessionToken()
	if tok == "" {
		return nil
	}
	return s.metadata.Set(ctx, metadata.KeySessionToken, []byte(tok))
}

func (s *calendarService) replaceEvents(ctx context.Context, evs []pb.Event) error {
	list := make([]models.Item, 0, len(evs))
	for _, e := range evs {
		list = append(list, models.Item{ID: e.ID, Title: e.Title, Date: e.Date})
	}
	return s.items.Replace(ctx, models.KindEvent, list)
}

func (s *calendarService) Follow(ctx context.Context, onChange func(n int)) error {
	return s.client.WatchEvents(ctx, func(evs []pb.Event) {
		if err := s.replaceEvents(ctx, evs); err != nil {
			return
		}
		if onChange != nil {
			onChange(len(evs))
		}
	})
}

func (s *calendarService) adjustment(ctx context.Context) int {
	var acc pb.Account
	if ok, err := s.metadata.GetJSON(ctx, metadata.KeyAccount, &acc); err != nil || !ok {
		return 0
	}
	return acc.HijriAdjustment
}

func (s *calendarService) Month(ctx context.Context, v calendar.View) (MonthView, error) {
	list, err := s.items.ListMonth(ctx, fmt.Sprintf("%04d-%02d", v.Year, v.Month))
	if err != nil {
		return MonthView{}, err
	}
	marks := make(map[int]bool, len(list))
	for _, it := range list {
		if d := it.Day(); d > 0 {
			marks[d] = true
		}
	}
	return MonthView{Month: calendar.Build(v, s.adjustment(ctx)), Items: list, Marks: marks}, nil
}

func (s *calendarService) AddEvent(ctx context.Context, title, date string) (*pb.Event, error) {
	ev, err := s.client.AddEvent(ctx, title, date)
	if err != nil {
		return nil, err
	}
	if err := s.items.Upsert(ctx, models.Item{ID: ev.ID, Kind: models.KindEvent, Title: ev.Title, Date: ev.Date}); err != nil {
		return nil, err
	}
	return ev, nil
}

// UpdateSettings changes timezone and adjustment, keeping the rest of the
// cached account settings.
func (s *calendarService) UpdateSettings(ctx context.Context, timezone string, adjustment int) (*pb.Account, error) {
	var cur pb.Account
	if _, err := s.metadata.GetJSON(ctx, metadata.KeyAccount, &cur); err != nil {
		return nil, err
	}
	if timezone == "" {
		timezone = cur.Timezone
	}
	acc, err := s.client.UpdateSettings(ctx, pb.UpdateSettingsRequest{
		Timezone:        timezone,
		HijriAdjustment: adjustment,
		UseGeo:          cur.UseGeo,
		Lat:             cur.Lat,
		Lon:             cur.Lon,
	})
	if err != nil {
		return nil, err
	}
	if err := s.metadata.SetJSON(ctx, metadata.KeyAccount, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *calendarService) SetRole(ctx context.Context, uid, role string) error {
	return s.client.SetRole(ctx, uid, role)
}

func (s *calendarService) NextPrayer(ctx context.Context) (*pb.NextPrayer, error) {
	return s.client.NextPrayer(ctx)
}

func (s *calendarService) Export(ctx context.Context, v calendar.View) (*pb.Export, error) {
	return s.client.ExportMonth(ctx, v.Year, v.Month)
}

// IsOffline reports whether err means the server could not be reached.
func IsOffline(err error) bool {
	return errors.Is(err, client.ErrUnavailable)
}
