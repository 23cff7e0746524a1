package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	pb "github.com/dmitrijs2005/dualcal/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	api         *pb.CalendarClient

	mu            sync.RWMutex
	providerToken string
	sessionToken  string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

type providerTokenKey struct{}

// token picks the provider token for sign-in calls and the session token
// otherwise.
func (s *GRPCClient) token(ctx context.Context) string {
	if t, ok := ctx.Value(providerTokenKey{}).(string); ok {
		return t
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	err := invoker(withAccessToken(ctx, s.token(ctx)), method, req, reply, cc, opts...)
	if err == nil || method == pb.FullMethod(pb.MethodSignIn) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	s.mu.RLock()
	provider := s.providerToken
	s.mu.RUnlock()
	if provider == "" {
		return err
	}

	// Session expired: sign in again with the provider token and retry once.
	if _, rerr := s.SignIn(ctx, provider, pb.SignInRequest{}); rerr != nil {
		return err
	}
	return invoker(withAccessToken(ctx, s.token(ctx)), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.token(ctx)), desc, cc, method, opts...)
}

func NewCalendarClientService(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.api = pb.NewCalendarClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Resume(providerToken, sessionToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providerToken = providerToken
	s.sessionToken = sessionToken
}

func (s *GRPCClient) SessionToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToken
}

// call encodes req, invokes method and decodes the reply into a T.
func call[T any](ctx context.Context, s *GRPCClient, method string, req any) (*T, error) {
	in, err := pb.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out, err := s.api.Call(ctx, method, in)
	if err != nil {
		return nil, s.mapError(err)
	}
	var v T
	if err := pb.Decode(out, &v); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	return &v, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := call[struct {
		Status string `json:"status"`
	}](ctx, s, pb.MethodPing, pb.Empty{})
	if err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) SignIn(ctx context.Context, providerToken string, req pb.SignInRequest) (*pb.SignInResponse, error) {
	ctx = context.WithValue(ctx, providerTokenKey{}, providerToken)
	resp, err := call[pb.SignInResponse](ctx, s, pb.MethodSignIn, req)
	if err != nil {
		return nil, err
	}
	s.Resume(providerToken, resp.Token)
	return resp, nil
}

func (s *GRPCClient) Account(ctx context.Context) (*pb.Account, error) {
	return call[pb.Account](ctx, s, pb.MethodGetAccount, pb.Empty{})
}

func (s *GRPCClient) UpdateSettings(ctx context.Context, req pb.UpdateSettingsRequest) (*pb.Account, error) {
	return call[pb.Account](ctx, s, pb.MethodUpdateSettings, req)
}

func (s *GRPCClient) SetRole(ctx context.Context, uid, role string) error {
	_, err := call[pb.Success](ctx, s, pb.MethodSetRole, pb.SetRoleRequest{UID: uid, Role: role})
	return err
}

func (s *GRPCClient) AddEvent(ctx context.Context, title, date string) (*pb.Event, error) {
	return call[pb.Event](ctx, s, pb.MethodAddEvent, pb.EventRequest{Title: title, Date: date})
}

func (s *GRPCClient) ListHolidays(ctx context.Context) ([]pb.Holiday, error) {
	resp, err := call[pb.HolidayList](ctx, s, pb.MethodListHolidays, pb.Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Holidays, nil
}

func (s *GRPCClient) NextPrayer(ctx context.Context) (*pb.NextPrayer, error) {
	return call[pb.NextPrayer](ctx, s, pb.MethodNextPrayer, pb.Empty{})
}

func (s *GRPCClient) ExportMonth(ctx context.Context, year, month int) (*pb.Export, error) {
	return call[pb.Export](ctx, s, pb.MethodExportMonth, pb.ExportMonthRequest{Year: year, Month: month})
}

func (s *GRPCClient) WatchEvents(ctx context.Context, fn func([]pb.Event)) error {
	r, err := s.api.Watch(ctx, pb.MethodWatchEvents, nil)
	if err != nil {
		return s.mapError(err)
	}
	for {
		msg, err := r.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return s.mapError(err)
		}
		var snap pb.EventsSnapshot
		if err := pb.Decode(msg, &snap); err != nil {
			return fmt.Errorf("decode events snapshot: %w", err)
		}
		fn(snap.Events)
	}
}

// mapError turns gRPC statuses into client sentinels, keeping the server's
// message for display.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
