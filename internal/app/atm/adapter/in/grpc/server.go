package grpc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

const (
	// ServiceName 診斷服務名稱，同時用於 health check
	ServiceName = "atm.v1.Diagnostics"

	snapshotMethod = "/" + ServiceName + "/Snapshot"
)

// DiagnosticsService 診斷服務介面
type DiagnosticsService interface {
	Snapshot(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// DiagnosticsServer 提供機台狀態快照與 health check
//
// 控制器透過 Publish 推送最新快照，gRPC 端只讀取快照，不會直接碰觸控制器。
type DiagnosticsServer struct {
	latest atomic.Pointer[domain.Diagnosis]
	health *health.Server
	logger *zap.Logger
}

// NewDiagnosticsServer 建立診斷服務，收到第一份快照前回報 NOT_SERVING
func NewDiagnosticsServer(logger *zap.Logger) *DiagnosticsServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DiagnosticsServer{
		health: health.NewServer(),
		logger: logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register 註冊診斷服務與 health 服務
func (s *DiagnosticsServer) Register(gs *grpc.Server) {
	gs.RegisterService(&diagnosticsServiceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
}

// Publish 更新快照與 health 狀態
func (s *DiagnosticsServer) Publish(d domain.Diagnosis) {
	prev := s.latest.Swap(&d)
	if d.Serving() {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	if prev == nil || prev.State != d.State {
		s.logger.Debug("diagnosis published",
			zap.Stringer("state", d.State),
			zap.Int64("cash_available", d.CashAvailable),
			zap.Int("paper_available", d.PaperAvailable),
		)
	}
}

// Snapshot 回傳最新的機台快照
func (s *DiagnosticsServer) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	d := s.latest.Load()
	if d == nil {
		return nil, status.Error(codes.Unavailable, "no diagnosis published yet")
	}
	out, err := EncodeDiagnosis(*d)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Shutdown 所有服務改為 NOT_SERVING
func (s *DiagnosticsServer) Shutdown() {
	s.health.Shutdown()
}

func (s *DiagnosticsServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// EncodeDiagnosis 將快照轉為 google.protobuf.Struct
func EncodeDiagnosis(d domain.Diagnosis) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"state":           d.State.String(),
		"state_code":      int64(d.State),
		"serving":         d.Serving(),
		"cash_available":  d.CashAvailable,
		"paper_available": d.PaperAvailable,
		"updated_at":      d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// DecodeDiagnosis 由 google.protobuf.Struct 還原快照
func DecodeDiagnosis(s *structpb.Struct) (domain.Diagnosis, error) {
	fields := s.GetFields()
	if _, ok := fields["state_code"]; !ok {
		return domain.Diagnosis{}, fmt.Errorf("diagnosis without state_code")
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"].GetStringValue())
	if err != nil {
		return domain.Diagnosis{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return domain.Diagnosis{
		State:          domain.MachineState(int(fields["state_code"].GetNumberValue())),
		CashAvailable:  int64(fields["cash_available"].GetNumberValue()),
		PaperAvailable: int(fields["paper_available"].GetNumberValue()),
		UpdatedAt:      updatedAt,
	}, nil
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsService).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: snapshotMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsService).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var diagnosticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiagnosticsService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Snapshot",
			Handler:    snapshotHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "atm/v1/diagnostics.proto",
}

var _ DiagnosticsService = (*DiagnosticsServer)(nil)
