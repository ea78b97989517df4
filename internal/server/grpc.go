package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"

	"github.com/xtding233/lootsim/internal/config"
	"github.com/xtding233/lootsim/internal/logger"
	"github.com/xtding233/lootsim/internal/lootsim"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "lootsim.v1.Simulator"
	SimulateMethod  = "/lootsim.v1.Simulator/Simulate"
	SeedMetadataKey = "lootsim-seed"
)

// SimulatorServer streams one Struct per simulated run.
//
// Request fields: players (number), runs (number), seed (number or decimal
// string; unset picks a random seed returned in the lootsim-seed header).
// Response fields: run, player_count, spheres (color names) and items (one
// list of item names per sphere).
type SimulatorServer interface {
	Simulate(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func simulateHandler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SimulatorServer).Simulate(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// SimulatorServiceDesc describes the service for grpc.ServiceRegistrar.
var SimulatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulatorServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Simulate",
			Handler:       simulateHandler,
			ServerStreams: true,
		},
	},
	Metadata: "lootsim/v1/simulator.proto",
}

// Simulate implements SimulatorServer.
func (s *Server) Simulate(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	o, err := overridesFromStruct(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	b, err := s.prepare(o)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		return status.Error(codes.Internal, err.Error())
	}
	if err := stream.SendHeader(metadata.Pairs(SeedMetadataKey, strconv.FormatUint(b.seed, 10))); err != nil {
		return err
	}

	ctx := stream.Context()
	n := 0
	err = s.simulator(b).Simulate(b.req, func(run lootsim.Run) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := s.runStruct(n, run)
		if err != nil {
			return err
		}
		n++
		return stream.Send(msg)
	})
	switch {
	case err == nil:
		logger.Info("grpc simulate served", "players", b.req.PlayerCount, "runs", n, "seed", b.seed)
		return nil
	case ctx.Err() != nil:
		return status.FromContextError(ctx.Err()).Err()
	case errors.Is(err, lootsim.ErrInvariant):
		logger.Error("grpc simulate failed", "seed", b.seed, "error", err)
		return status.Error(codes.Internal, err.Error())
	default:
		return err
	}
}

func (s *Server) runStruct(index int, run lootsim.Run) (*structpb.Struct, error) {
	spheres := make([]any, len(run.Spheres))
	items := make([]any, len(run.Spheres))
	for t, c := range run.Spheres {
		spheres[t] = c.String()
		found := run.SphereItems(t)
		names := make([]any, len(found))
		for i, id := range found {
			names[i] = s.cat.Name(id)
		}
		items[t] = names
	}
	return structpb.NewStruct(map[string]any{
		"run":          index,
		"player_count": run.PlayerCount,
		"spheres":      spheres,
		"items":        items,
	})
}

func overridesFromStruct(req *structpb.Struct) (config.Overrides, error) {
	var o config.Overrides
	fields := req.GetFields()
	intField := func(key string) (*int, error) {
		v, ok := fields[key]
		if !ok {
			return nil, nil
		}
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		i := int(n.NumberValue)
		return &i, nil
	}
	var err error
	if o.PlayerCount, err = intField("players"); err != nil {
		return o, err
	}
	if o.RunCount, err = intField("runs"); err != nil {
		return o, err
	}
	if v, ok := fields["seed"]; ok {
		var seed uint64
		switch k := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			seed, err = strconv.ParseUint(k.StringValue, 10, 64)
			if err != nil {
				return o, fmt.Errorf("invalid seed %q", k.StringValue)
			}
		case *structpb.Value_NumberValue:
			if k.NumberValue < 0 || k.NumberValue != math.Trunc(k.NumberValue) || k.NumberValue > 1<<53 {
				return o, errors.New("numeric seed must be a whole number up to 2^53; pass larger seeds as a string")
			}
			seed = uint64(k.NumberValue)
		default:
			return o, errors.New("seed must be a number or string")
		}
		o.Seed = &seed
	}
	return o, nil
}

// NewGRPCServer registers the simulator and the standard health service.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&SimulatorServiceDesc, s)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return gs, hs
}

// ListenGRPC listens on addr until ctx is cancelled.
func (s *Server) ListenGRPC(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.serveGRPC(ctx, lis)
}

func (s *Server) serveGRPC(ctx context.Context, lis net.Listener) error {
	gs, hs := s.NewGRPCServer()
	logger.Always("grpc server listening", "addr", lis.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gs.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		gs.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// SimulatorClient calls the simulator over any client connection.
type SimulatorClient struct {
	cc grpc.ClientConnInterface
}

// NewSimulatorClient wraps cc.
func NewSimulatorClient(cc grpc.ClientConnInterface) *SimulatorClient {
	return &SimulatorClient{cc: cc}
}

func (c *SimulatorClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &SimulatorServiceDesc.Streams[0], SimulateMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
