package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	pb "github.com/dmitrijs2005/dualcal/internal/proto"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// publicMethods skip token parsing entirely.
var publicMethods = map[string]bool{
	pb.FullMethod(pb.MethodPing): true,
}

func tokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AccessTokenHeaderName)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// identify attaches the identity carried by the request token. A request
// without a token continues anonymously so that each operation reports its
// own unauthenticated error; a bad token is rejected here.
func (s *GRPCServer) identify(ctx context.Context, method string) (context.Context, error) {
	if publicMethods[method] {
		return ctx, nil
	}
	token := tokenFromContext(ctx)
	if token == "" {
		return ctx, nil
	}
	id, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return auth.WithIdentity(ctx, id), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := s.identify(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s identityStream) Context() context.Context {
	return s.ctx
}

func (s *GRPCServer) streamAccessTokenInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.identify(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, identityStream{ServerStream: ss, ctx: ctx})
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	return resp, err
}
