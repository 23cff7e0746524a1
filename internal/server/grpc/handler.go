package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	pb "github.com/dmitrijs2005/dualcal/internal/proto"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/dmitrijs2005/dualcal/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var errUnknownMethod = errors.New("unknown method")

func decode[T any](in *structpb.Struct) (T, error) {
	var v T
	if err := pb.Decode(in, &v); err != nil {
		return v, common.Status(common.ErrInvalidArgument, "Malformed request")
	}
	return v, nil
}

// Unary decodes the request of method, runs it as the caller attached by the
// interceptor and encodes the result.
func (s *GRPCServer) Unary(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	caller := auth.FromContext(ctx)

	out, err := s.dispatch(ctx, caller, method, in)
	if errors.Is(err, errUnknownMethod) {
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}

	msg, err := pb.Encode(out)
	if err != nil {
		s.logger.Error(ctx, "encode response", "method", method, logging.Err(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return msg, nil
}

func (s *GRPCServer) dispatch(ctx context.Context, caller auth.Identity, method string, in *structpb.Struct) (any, error) {
	switch method {
	case pb.MethodPing:
		return map[string]string{"status": "OK"}, nil

	case pb.MethodSignIn:
		req, err := decode[pb.SignInRequest](in)
		if err != nil {
			return nil, err
		}
		sess, err := s.svc.Accounts.SignIn(ctx, caller, services.Profile{DisplayName: req.DisplayName, Timezone: req.Timezone})
		if err != nil {
			return nil, err
		}
		return pb.SignInResponse{Account: accountToPB(sess.Account), Token: sess.Token}, nil

	case pb.MethodGetAccount:
		a, err := s.svc.Accounts.Get(ctx, caller)
		if err != nil {
			return nil, err
		}
		return accountToPB(a), nil

	case pb.MethodUpdateSettings:
		req, err := decode[pb.UpdateSettingsRequest](in)
		if err != nil {
			return nil, err
		}
		a, err := s.svc.Accounts.UpdateSettings(ctx, caller, services.Settings{
			Timezone:        req.Timezone,
			HijriAdjustment: req.HijriAdjustment,
			UseGeo:          req.UseGeo,
			Lat:             req.Lat,
			Lon:             req.Lon,
		})
		if err != nil {
			return nil, err
		}
		return accountToPB(a), nil

	case pb.MethodSetRole:
		req, err := decode[pb.SetRoleRequest](in)
		if err != nil {
			return nil, err
		}
		if err := s.svc.Roles.SetRole(ctx, caller, req.UID, req.Role); err != nil {
			return nil, err
		}
		return pb.Success{Success: true}, nil

	case pb.MethodSetUserAdjustment:
		req, err := decode[pb.SetUserAdjustmentRequest](in)
		if err != nil {
			return nil, err
		}
		if err := s.svc.Accounts.SetUserAdjustment(ctx, caller, req.UID, req.HijriAdjustment); err != nil {
			return nil, err
		}
		return pb.Success{Success: true}, nil

	case pb.MethodAssignManager:
		req, err := decode[pb.AssignManagerRequest](in)
		if err != nil {
			return nil, err
		}
		if err := s.svc.Accounts.AssignManager(ctx, caller, req.UID, req.AdminID); err != nil {
			return nil, err
		}
		return pb.Success{Success: true}, nil

	case pb.MethodAddEvent, pb.MethodAddEventFor:
		req, err := decode[pb.EventRequest](in)
		if err != nil {
			return nil, err
		}
		input := services.EventInput{Title: req.Title, Date: req.Date}
		var e models.Event
		if method == pb.MethodAddEvent {
			e, err = s.svc.Calendar.AddEvent(ctx, caller, input)
		} else {
			e, err = s.svc.Calendar.AddEventFor(ctx, caller, req.UID, input)
		}
		if err != nil {
			return nil, err
		}
		return eventToPB(e), nil

	case pb.MethodAddHoliday:
		req, err := decode[pb.EventRequest](in)
		if err != nil {
			return nil, err
		}
		h, err := s.svc.Calendar.AddHoliday(ctx, caller, services.EventInput{Title: req.Title, Date: req.Date})
		if err != nil {
			return nil, err
		}
		return holidayToPB(h), nil

	case pb.MethodListHolidays:
		list, err := s.svc.Calendar.ListHolidays(ctx, caller)
		if err != nil {
			return nil, err
		}
		return pb.HolidayList{Holidays: mapSlice(list, holidayToPB)}, nil

	case pb.MethodPostAnnouncement, pb.MethodPostUserAnnouncement:
		req, err := decode[pb.AnnouncementRequest](in)
		if err != nil {
			return nil, err
		}
		input := services.AnnouncementInput{Title: req.Title, Message: req.Message}
		var a models.Announcement
		if method == pb.MethodPostAnnouncement {
			a, err = s.svc.Announcements.Post(ctx, caller, input)
		} else {
			a, err = s.svc.Announcements.PostToUser(ctx, caller, req.UID, input)
		}
		if err != nil {
			return nil, err
		}
		return announcementToPB(a), nil

	case pb.MethodSetCustomPrayerTimes:
		req, err := decode[pb.CustomPrayerTimesRequest](in)
		if err != nil {
			return nil, err
		}
		if err := s.svc.Prayer.SetCustomTimes(ctx, caller, req.UID, req.Times); err != nil {
			return nil, err
		}
		return pb.Success{Success: true}, nil

	case pb.MethodNextPrayer:
		n, err := s.svc.Prayer.Next(ctx, caller, s.now())
		if err != nil {
			return nil, err
		}
		return nextPrayerToPB(n), nil

	case pb.MethodExportMonth:
		req, err := decode[pb.ExportMonthRequest](in)
		if err != nil {
			return nil, err
		}
		e, err := s.svc.Exports.ExportMonth(ctx, caller, req.Year, req.Month)
		if err != nil {
			return nil, err
		}
		return exportToPB(*e), nil
	}
	return nil, errUnknownMethod
}

// Stream serves a live query until the client goes away or the
// subscription ends.
func (s *GRPCServer) Stream(method string, in *structpb.Struct, out pb.StructStream) error {
	ctx := out.Context()
	caller := auth.FromContext(ctx)

	switch method {
	case pb.MethodWatchEvents:
		st, err := s.svc.Calendar.WatchEvents(ctx, caller)
		if err != nil {
			return s.toStatus(ctx, method, err)
		}
		return pump(ctx, s.logger, st, out, func(items []models.Event) any {
			return pb.EventsSnapshot{Events: mapSlice(items, eventToPB)}
		})

	case pb.MethodWatchManagedUsers, pb.MethodWatchAllUsers:
		var st *services.Stream[models.UserAccount]
		var err error
		if method == pb.MethodWatchManagedUsers {
			st, err = s.svc.Accounts.WatchManagedUsers(ctx, caller)
		} else {
			st, err = s.svc.Accounts.WatchAllUsers(ctx, caller)
		}
		if err != nil {
			return s.toStatus(ctx, method, err)
		}
		return pump(ctx, s.logger, st, out, func(items []models.UserAccount) any {
			return pb.UsersSnapshot{Users: mapSlice(items, accountToPB)}
		})

	case pb.MethodWatchAnnouncements:
		st, err := s.svc.Announcements.Watch(ctx, caller)
		if err != nil {
			return s.toStatus(ctx, method, err)
		}
		return pump(ctx, s.logger, st, out, func(items []models.Announcement) any {
			return pb.AnnouncementsSnapshot{Announcements: mapSlice(items, announcementToPB)}
		})
	}
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

// pump forwards every update of st to out. A failed snapshot is logged and
// skipped; the next one may succeed.
func pump[T any](ctx context.Context, l logging.Logger, st *services.Stream[T], out pb.StructStream, wrap func([]T) any) error {
	defer st.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-st.Updates():
			if !ok {
				return nil
			}
			if u.Err != nil {
				l.Warn(ctx, "snapshot failed", logging.Err(u.Err))
				continue
			}
			msg, err := pb.Encode(wrap(u.Items))
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := out.Send(msg); err != nil {
				return err
			}
		}
	}
}
