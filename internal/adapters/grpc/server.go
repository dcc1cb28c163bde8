package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// SecurityInternalService is the mesh-internal surface other services call
// to check a session or read this instance's health without going through
// the public HTTP edge.
type SecurityInternalService interface {
	ValidateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHealth(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type SecurityInternalServer struct {
	service *application.Service
}

func NewSecurityInternalServer(service *application.Service) *SecurityInternalServer {
	return &SecurityInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc SecurityInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "viralforge.security.v1.SecurityInternalService",
		HandlerType: (*SecurityInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateSession",
				Handler:    validateSessionHandler(svc),
			},
			{
				MethodName: "GetHealth",
				Handler:    getHealthHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "viralforge/security/v1/security_internal.proto",
	}, svc)
}

func (s *SecurityInternalServer) ValidateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	idVal := req.GetFields()["session_id"]
	if idVal == nil {
		return nil, status.Error(codes.InvalidArgument, "missing session_id")
	}
	sessionID, err := uuid.Parse(idVal.GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed session_id")
	}

	valid, err := s.service.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "validate session: %v", err)
	}

	fields := map[string]any{"valid": valid}
	if valid {
		session, err := s.service.GetSession(ctx, sessionID)
		if err == nil {
			fields["actor_id"] = session.ActorID
			fields["device_id"] = session.DeviceID
			fields["method"] = string(session.Method)
			fields["expires_at"] = session.ExpiresAt.Unix()
			fields["risk_score"] = session.RiskScore
		}
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *SecurityInternalServer) GetHealth(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report := s.service.GetHealth(ctx)
	samples := make([]any, 0, len(report.Samples))
	for _, sample := range report.Samples {
		samples = append(samples, map[string]any{
			"name":   sample.Name,
			"value":  sample.Value,
			"score":  sample.Score,
			"weight": sample.Weight,
		})
	}

	resp, err := structpb.NewStruct(map[string]any{
		"status":         report.Status,
		"score":          report.Score,
		"uptime_seconds": report.UptimeSeconds,
		"degraded":       report.Status != domain.HealthHealthy,
		"samples":        samples,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func validateSessionHandler(svc SecurityInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.ValidateSession(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/viralforge.security.v1.SecurityInternalService/ValidateSession",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.ValidateSession(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getHealthHandler(svc SecurityInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetHealth(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/viralforge.security.v1.SecurityInternalService/GetHealth",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetHealth(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
