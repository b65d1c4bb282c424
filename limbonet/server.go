package limbonet

import (
	"context"

	"google.golang.org/grpc"

	"LIMBO/limbo"
)

// ServiceName is the gRPC service path Server registers under.
const ServiceName = "limbo.Limbo"

// Server adapts a *limbo.Limbo onto a hand-written grpc.ServiceDesc.
type Server struct {
	L *limbo.Limbo
}

func (s *Server) ack(_ context.Context, req *AckRequest) (*AckResponse, error) {
	s.L.Ack(req.ReplicaID, req.LSN)
	return &AckResponse{}, nil
}

func (s *Server) synchro(ctx context.Context, req *SynchroRequest) (*SynchroResponse, error) {
	if err := s.L.Process(ctx, toSerde(req)); err != nil {
		return &SynchroResponse{Error: err.Error()}, nil
	}
	return &SynchroResponse{}, nil
}

func ackHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Ack"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).ack(ctx, req.(*AckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func synchroHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SynchroRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).synchro(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Synchro"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).synchro(ctx, req.(*SynchroRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the method table grpc.Server.RegisterService needs.
// HandlerType is (*any)(nil) rather than a real interface type: every
// concrete type trivially implements interface{}, so the reflection
// check RegisterService runs against it always passes, which is the
// point — Server's methods are dispatched by the handlers above, not
// by satisfying a generated interface.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ack", Handler: ackHandler},
		{MethodName: "Synchro", Handler: synchroHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "limbonet",
}

// Register attaches s onto gs.
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, s)
}
