package proto

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type echoServer struct{}

func (echoServer) Unary(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	if method == MethodSetRole {
		return nil, status.Error(codes.PermissionDenied, "no")
	}
	return structpb.NewStruct(map[string]any{"method": method, "echo": in.AsMap()})
}

func (echoServer) Stream(method string, in *structpb.Struct, out StructStream) error {
	for i := 0; i < 3; i++ {
		m, _ := structpb.NewStruct(map[string]any{"method": method, "i": i})
		if err := out.Send(m); err != nil {
			return err
		}
	}
	return nil
}

func dial(t *testing.T, srv CalendarServer, opts ...grpc.ServerOption) *CalendarClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterCalendarServer(s, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewCalendarClient(conn)
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t, "/dualcal.v1.Calendar/SetRole", FullMethod(MethodSetRole))
}

func TestServiceDesc(t *testing.T) {
	d := ServiceDesc()
	assert.Len(t, d.Methods, len(UnaryMethods))
	assert.Len(t, d.Streams, len(StreamMethods))
	for _, s := range d.Streams {
		assert.True(t, s.ServerStreams)
	}
}

func TestUnaryRoundTrip(t *testing.T) {
	c := dial(t, echoServer{})
	in, err := structpb.NewStruct(map[string]any{"uid": "u1"})
	require.NoError(t, err)

	out, err := c.Call(context.Background(), MethodGetAccount, in)
	require.NoError(t, err)
	assert.Equal(t, "GetAccount", out.AsMap()["method"])
	assert.Equal(t, map[string]any{"uid": "u1"}, out.AsMap()["echo"])

	_, err = c.Call(context.Background(), MethodSetRole, nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestUnaryInterceptorSeesFullMethod(t *testing.T) {
	var seen string
	ic := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return h(ctx, req)
	}
	c := dial(t, echoServer{}, grpc.UnaryInterceptor(ic))
	_, err := c.Call(context.Background(), MethodPing, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dualcal.v1.Calendar/Ping", seen)
}

func TestStreamRoundTrip(t *testing.T) {
	c := dial(t, echoServer{})
	r, err := c.Watch(context.Background(), MethodWatchEvents, nil)
	require.NoError(t, err)

	var got []float64
	for {
		m, err := r.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "WatchEvents", m.AsMap()["method"])
		got = append(got, m.AsMap()["i"].(float64))
	}
	assert.Equal(t, []float64{0, 1, 2}, got)
}

func TestCodec(t *testing.T) {
	type payload struct {
		UID  string `json:"uid"`
		Role string `json:"role"`
		N    int    `json:"n"`
	}
	s, err := Encode(payload{UID: "u1", Role: "admin", N: 3})
	require.NoError(t, err)
	assert.Equal(t, "admin", s.Fields["role"].GetStringValue())

	var back payload
	require.NoError(t, Decode(s, &back))
	assert.Equal(t, payload{UID: "u1", Role: "admin", N: 3}, back)

	var empty payload
	require.NoError(t, Decode(nil, &empty))
	assert.Equal(t, payload{}, empty)
}
