package proto

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// CalendarClient calls the service over a client connection.
type CalendarClient struct {
	cc grpc.ClientConnInterface
}

func NewCalendarClient(cc grpc.ClientConnInterface) *CalendarClient {
	return &CalendarClient{cc: cc}
}

// Call invokes a unary method. A nil in sends an empty struct.
func (c *CalendarClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Receiver reads messages of a server stream.
type Receiver struct {
	cs grpc.ClientStream
}

// Recv returns io.EOF when the server ends the stream.
func (r *Receiver) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := r.cs.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch opens a server-streaming method. Cancel ctx to stop it.
func (c *CalendarClient) Watch(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*Receiver, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	cs, err := c.cc.NewStream(ctx, desc, FullMethod(method), opts...)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil && err != io.EOF {
		return nil, err
	}
	return &Receiver{cs: cs}, nil
}
