package usecase

import (
	"context"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

// CardReader 讀卡機
type CardReader interface {
	// InsertCard 模擬插卡 (僅供測試/模擬使用)
	InsertCard(cardNumber string)
	// Read 回傳目前插入的卡號
	Read() string
	// Eject 退卡
	Eject()
}

// CashBin 鈔箱與點鈔口
type CashBin interface {
	// Open 開啟點鈔口，點鈔盤歸零
	Open()
	Close()
	// CountMoney 點鈔盤上的金額
	CountMoney() int64
	// AvailableMoney 鈔箱可提領的金額
	AvailableMoney() int64
	// PopMoney 從鈔箱取出現金放到點鈔盤，現金不足時回傳 false
	PopMoney(amount int64) bool
	// PushMoney 將點鈔盤上的現金收進鈔箱
	PushMoney() bool
}

// Printer 收據印表機
type Printer interface {
	AvailablePaper() int
	// PrintReceipt 依文字長度消耗紙張，不足時回傳 domain.ErrInsufficientPrinterStock
	PrintReceipt(text string) error
}

// FinancialBackend 銀行端介面
type FinancialBackend interface {
	// IsRegistered 卡片是否已註冊
	IsRegistered(ctx context.Context, cardNumber string) (bool, error)
	// Validate 驗證 PIN，成功時回傳 session token
	Validate(ctx context.Context, cardNumber, pin string) (token string, ok bool, err error)
	// ListAccounts 依 token 取得帳戶列表
	ListAccounts(ctx context.Context, token string) ([]domain.Account, error)
	// ApplyDelta 以交易方式異動帳戶餘額，回傳異動後的帳戶
	ApplyDelta(ctx context.Context, token string, accountIndex int, amount int64) (domain.Account, error)
}

// SessionRevoker 銀行端若支援作廢 token，Session.Reset 時會一併通知
type SessionRevoker interface {
	Revoke(ctx context.Context, token string) error
}
