package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/device"
	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
)

const (
	demoCard = "13572468"
	demoPin  = "8888"
)

// runDemo 依序跑一次查詢、存款、提款
func runDemo(ctx context.Context, ctrl *usecase.Controller, cashBin *device.CashBin, zl *zap.Logger) {
	steps := []struct {
		name string
		run  func() error
	}{
		{"balance", func() error {
			if err := authenticate(ctx, ctrl, 0); err != nil {
				return err
			}
			balance, err := ctrl.GetBalance()
			zl.Info("balance", zap.Int64("balance", balance))
			return err
		}},
		{"deposit", func() error {
			if err := authenticate(ctx, ctrl, 0); err != nil {
				return err
			}
			// 使用者把現金放上點鈔盤
			ctrl.OpenDoor()
			cashBin.PlaceMoney(10)
			ctrl.CloseDoor()
			account, err := ctrl.Deposit(ctx, ctrl.CountMoney())
			zl.Info("deposited", zap.Int64("balance", account.Balance))
			return err
		}},
		{"withdraw", func() error {
			if err := authenticate(ctx, ctrl, 1); err != nil {
				return err
			}
			account, err := ctrl.Withdraw(ctx, 25)
			// 使用者取走現金
			ctrl.CloseDoor()
			zl.Info("withdrew", zap.Int64("balance", account.Balance))
			return err
		}},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			return
		}
		if err := step.run(); err != nil {
			zl.Warn("demo step failed", zap.String("step", step.name), zap.Error(err))
			ctrl.Reset()
		}
	}
	zl.Info("demo finished", zap.Stringer("state", ctrl.State()))
}

// authenticate 插卡、驗證 PIN 並選擇帳戶
func authenticate(ctx context.Context, ctrl *usecase.Controller, idx int) error {
	if err := ctrl.InsertCard(demoCard); err != nil {
		return err
	}
	if _, err := ctrl.ReadCardNumber(ctx); err != nil {
		return err
	}
	if err := ctrl.ValidatePin(ctx, demoPin); err != nil {
		return err
	}
	accounts, err := ctrl.GetAccounts(ctx)
	if err != nil {
		return err
	}
	if idx >= len(accounts) {
		return fmt.Errorf("card has %d accounts, want index %d", len(accounts), idx)
	}
	return ctrl.SelectAccount(idx)
}
