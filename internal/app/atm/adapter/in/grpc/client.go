package grpc

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

// DiagnosticsClient 診斷服務客戶端
type DiagnosticsClient struct {
	cc     grpc.ClientConnInterface
	health healthpb.HealthClient
}

// NewDiagnosticsClient 建立診斷服務客戶端
func NewDiagnosticsClient(cc grpc.ClientConnInterface) *DiagnosticsClient {
	return &DiagnosticsClient{
		cc:     cc,
		health: healthpb.NewHealthClient(cc),
	}
}

// Snapshot 取得機台快照
func (c *DiagnosticsClient) Snapshot(ctx context.Context) (domain.Diagnosis, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, snapshotMethod, &emptypb.Empty{}, out); err != nil {
		return domain.Diagnosis{}, err
	}
	return DecodeDiagnosis(out)
}

// Serving 機台是否可服務
func (c *DiagnosticsClient) Serving(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
