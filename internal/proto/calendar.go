// Package proto describes the dualcal.v1.Calendar gRPC service. Every
// request and response is a google.protobuf.Struct shaped like the JSON
// payloads of the HTTP gateway, so the service needs no generated code.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dualcal.v1.Calendar"

// Unary methods.
const (
	MethodPing                 = "Ping"
	MethodSignIn               = "SignIn"
	MethodGetAccount           = "GetAccount"
	MethodUpdateSettings       = "UpdateSettings"
	MethodSetRole              = "SetRole"
	MethodSetUserAdjustment    = "SetUserAdjustment"
	MethodAssignManager        = "AssignManager"
	MethodAddEvent             = "AddEvent"
	MethodAddEventFor          = "AddEventFor"
	MethodAddHoliday           = "AddHoliday"
	MethodListHolidays         = "ListHolidays"
	MethodPostAnnouncement     = "PostAnnouncement"
	MethodPostUserAnnouncement = "PostUserAnnouncement"
	MethodSetCustomPrayerTimes = "SetCustomPrayerTimes"
	MethodNextPrayer           = "NextPrayer"
	MethodExportMonth          = "ExportMonth"
)

// Server-streaming methods.
const (
	MethodWatchEvents        = "WatchEvents"
	MethodWatchManagedUsers  = "WatchManagedUsers"
	MethodWatchAllUsers      = "WatchAllUsers"
	MethodWatchAnnouncements = "WatchAnnouncements"
)

// FullMethod returns the wire name of method, e.g. "/dualcal.v1.Calendar/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// UnaryMethods lists every unary method in registration order.
var UnaryMethods = []string{
	MethodPing, MethodSignIn, MethodGetAccount, MethodUpdateSettings, MethodSetRole,
	MethodSetUserAdjustment, MethodAssignManager, MethodAddEvent, MethodAddEventFor,
	MethodAddHoliday, MethodListHolidays, MethodPostAnnouncement, MethodPostUserAnnouncement,
	MethodSetCustomPrayerTimes, MethodNextPrayer, MethodExportMonth,
}

// StreamMethods lists every server-streaming method.
var StreamMethods = []string{
	MethodWatchEvents, MethodWatchManagedUsers, MethodWatchAllUsers, MethodWatchAnnouncements,
}

// StructStream is the sending half of a server stream.
type StructStream interface {
	Context() context.Context
	Send(*structpb.Struct) error
}

// CalendarServer handles every method by name.
type CalendarServer interface {
	Unary(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error)
	Stream(method string, in *structpb.Struct, out StructStream) error
}

type serverStream struct {
	grpc.ServerStream
}

func (s serverStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func unaryHandler(method string) grpc.MethodHandler {
	full := FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(CalendarServer).Unary(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(CalendarServer).Unary(ctx, method, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamHandler(method string) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		in := new(structpb.Struct)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		return srv.(CalendarServer).Stream(method, in, serverStream{stream})
	}
}

// ServiceDesc builds the descriptor registered with a grpc.Server.
func ServiceDesc() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CalendarServer)(nil),
		Metadata:    "dualcal/v1/calendar.proto",
	}
	for _, m := range UnaryMethods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: m, Handler: unaryHandler(m)})
	}
	for _, m := range StreamMethods {
		desc.Streams = append(desc.Streams, grpc.StreamDesc{StreamName: m, Handler: streamHandler(m), ServerStreams: true})
	}
	return desc
}

func RegisterCalendarServer(s grpc.ServiceRegistrar, srv CalendarServer) {
	desc := ServiceDesc()
	s.RegisterService(&desc, srv)
}
