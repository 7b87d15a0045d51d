package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-atm/internal/app/atm/adapter/in/grpc"
	"github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/breaker"
	"github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/device"
	memory_adapter "github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/mysql"
	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
	"github.com/JoeShih716/go-atm/internal/config"
	"github.com/JoeShih716/go-atm/pkg/logger"
	"github.com/JoeShih716/go-atm/pkg/mysql"
	"github.com/JoeShih716/go-atm/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	demo := flag.Bool("demo", true, "run the demo card sessions after start up")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化 logger
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl = zl.With(zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化銀行端，外層加上逾時與熔斷
	bank, closeBank, err := newBackend(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to init backend", zap.Error(err))
	}
	defer closeBank()
	backend := breaker.New(string(cfg.Backend.Type), bank, cfg.Backend.Breaker, zl)

	// 4. 初始化硬體與控制器
	diag := grpc_adapter.NewDiagnosticsServer(zl.Named("diagnostics"))
	cashBin := device.NewCashBin(cfg.ATM.CashBin.AvailableMoney)
	ctrl := usecase.NewController(
		usecase.NewSession(backend),
		device.NewCardReader(""),
		cashBin,
		device.NewLinePrinter(cfg.ATM.Printer.Paper, os.Stdout),
		usecase.WithLogger(zl.Named("controller")),
		usecase.WithCardNumberDigits(cfg.ATM.CardNumberDigits),
		usecase.WithPinNumberDigits(cfg.ATM.PinNumberDigits),
		usecase.WithDiagnosisListener(diag.Publish),
	)

	// 5. 啟動診斷用 gRPC Server
	var gs *grpc.Server
	if cfg.Diagnostics.Enabled {
		lis, err := net.Listen("tcp", cfg.Diagnostics.Address)
		if err != nil {
			zl.Fatal("failed to listen", zap.String("address", cfg.Diagnostics.Address), zap.Error(err))
		}
		gs = grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.UnaryLoggingInterceptor(zl.Named("grpc"))))
		diag.Register(gs)
		reflection.Register(gs)
		go func() {
			zl.Info("starting diagnostics server", zap.String("address", cfg.Diagnostics.Address))
			if err := gs.Serve(lis); err != nil {
				zl.Error("diagnostics server stopped", zap.Error(err))
			}
		}()
	}

	if *demo {
		runDemo(ctx, ctrl, cashBin, zl.Named("demo"))
	}
	if gs == nil {
		return
	}

	// Graceful Shutdown
	<-ctx.Done()
	zl.Info("shutting down")
	ctrl.EnterMaintenance()
	diag.Shutdown()
	gs.GracefulStop()
	zl.Info("server exited")
}

// newBackend 依設定建立銀行端，回傳的 close 負責釋放 WAL 或資料庫連線
func newBackend(ctx context.Context, cfg config.Config, zl *zap.Logger) (usecase.FinancialBackend, func(), error) {
	switch cfg.Backend.Type {
	case config.BackendMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, zl.Named("mysql"))
		if err != nil {
			return nil, nil, err
		}
		bank := mysql_adapter.NewBank(client, zl.Named("bank"))
		if err := bank.AutoMigrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
		if err := bank.Seed(ctx, cfg.Backend.Cards); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("seed cards: %w", err)
		}
		zl.Info("connected to mysql", zap.String("host", cfg.MySQL.Host), zap.String("db", cfg.MySQL.DBName))
		return bank, func() { _ = client.Close() }, nil

	case config.BackendMemory:
		opts := []memory_adapter.BankOption{memory_adapter.WithLogger(zl.Named("bank"))}
		closeFn := func() {}
		if cfg.Backend.WAL != "" {
			w, err := wal.Open(cfg.Backend.WAL)
			if err != nil {
				return nil, nil, fmt.Errorf("open wal: %w", err)
			}
			opts = append(opts, memory_adapter.WithWAL(w))
			closeFn = func() { _ = w.Close() }
		}
		bank, err := memory_adapter.NewBank(cfg.Backend.Cards, opts...)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		zl.Info("memory bank ready", zap.Int("cards", len(cfg.Backend.Cards)), zap.String("wal", cfg.Backend.WAL))
		return bank, closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
}
