package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	grpc_adapter "github.com/JoeShih716/go-atm/internal/app/atm/adapter/in/grpc"
	"github.com/JoeShih716/go-atm/pkg/logger"
	grpcpool "github.com/JoeShih716/go-atm/pkg/grpc"
)

func main() {
	target := flag.String("target", "localhost:50051", "diagnostics server address")
	watch := flag.Duration("watch", 0, "poll interval, 0 queries once")
	flag.Parse()

	zl, err := logger.New(logger.Config{Level: "info", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	pool := grpcpool.NewPool(grpcpool.WithLogger(zl))
	defer pool.Close()

	conn, err := pool.GetConnection(*target)
	if err != nil {
		zl.Fatal("did not connect", zap.Error(err))
	}
	client := grpc_adapter.NewDiagnosticsClient(conn)

	for {
		if err := query(client); err != nil {
			zl.Error("diagnosis failed", zap.String("target", *target), zap.Error(err))
		}
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}

func query(client *grpc_adapter.DiagnosticsClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serving, err := client.Serving(ctx)
	if err != nil {
		return err
	}
	d, err := client.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s state=%s serving=%t cash=%d paper=%d\n",
		d.UpdatedAt.Format(time.RFC3339), d.State, serving, d.CashAvailable, d.PaperAvailable)
	return nil
}
