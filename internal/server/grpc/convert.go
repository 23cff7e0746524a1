package grpc

import (
	"time"

	pb "github.com/dmitrijs2005/dualcal/internal/proto"
	"github.com/dmitrijs2005/dualcal/internal/prayer"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
)

func accountToPB(a models.UserAccount) pb.Account {
	return pb.Account{
		UID:               a.UID,
		Email:             a.Email,
		DisplayName:       a.DisplayName,
		Role:              a.Role,
		AdminID:           a.AdminID,
		Timezone:          a.Timezone,
		HijriAdjustment:   a.HijriAdjustment,
		UseGeo:            a.UseGeo,
		Lat:               a.Lat,
		Lon:               a.Lon,
		CustomPrayerTimes: a.CustomPrayerTimes,
		CreatedAt:         a.CreatedAt,
		Dashboards:        dashboards(a.Role),
	}
}

func dashboards(role string) []string {
	r, err := roles.Parse(role)
	if err != nil {
		return nil
	}
	return roles.DashboardsFor(r).Names()
}

func eventToPB(e models.Event) pb.Event {
	return pb.Event{
		ID:        e.ID,
		Title:     e.Title,
		Date:      e.Date,
		OwnerID:   e.OwnerID,
		CreatedBy: e.CreatedBy,
		AdminID:   e.AdminID,
		CreatedAt: e.CreatedAt,
	}
}

func holidayToPB(h models.Holiday) pb.Holiday {
	return pb.Holiday{ID: h.ID, Title: h.Title, Date: h.Date, CreatedBy: h.CreatedBy, CreatedAt: h.CreatedAt}
}

func announcementToPB(a models.Announcement) pb.Announcement {
	return pb.Announcement{
		ID:        a.ID,
		Title:     a.Title,
		Message:   a.Message,
		Scope:     a.Scope,
		AdminID:   a.AdminID,
		OwnerID:   a.OwnerID,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
	}
}

func nextPrayerToPB(n prayer.Next) pb.NextPrayer {
	return pb.NextPrayer{Name: n.Name, At: n.At.Format(time.RFC3339), InSeconds: int64(n.In / time.Second)}
}

func exportToPB(e models.Export) pb.Export {
	return pb.Export{Key: e.Key, URL: e.URL, ExpiresAt: e.ExpiresAt.UTC().Format(time.RFC3339)}
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
