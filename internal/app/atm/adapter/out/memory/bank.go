package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
	"github.com/JoeShih716/go-atm/pkg/wal"
)

// cardRecord 卡片與其帳戶
type cardRecord struct {
	pin      string
	accounts []domain.Account
}

// Bank 是一個使用 Mutex 實現的記憶體銀行端
//
// 結構:
//
//	cards: 卡號對應的卡片資料
//	sessions: token 對應的卡號
//	processedTransactions: 已處理過的交易 (WAL 重放時去重)
//	wal: Write-Ahead Log 實例，nil 代表不落地
type Bank struct {
	mu                    sync.RWMutex
	cards                 map[string]*cardRecord
	sessions              map[string]string
	processedTransactions map[uuid.UUID]time.Time
	wal                   *wal.WAL
	logger                *zap.Logger
}

// BankOption 定義 Bank 的配置選項函數
type BankOption func(*Bank)

// WithWAL 設定 WAL，建立時會先重放既有紀錄
func WithWAL(w *wal.WAL) BankOption {
	return func(b *Bank) {
		b.wal = w
	}
}

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) BankOption {
	return func(b *Bank) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBank 建立一個新的記憶體銀行端
//
// 參數:
//
//	cards: 初始卡片與帳戶資料
//	opts: 配置選項
//
// 回傳:
//
//	*Bank: Bank 實例
//	error: 初始化錯誤 (如卡號重複、WAL 恢復失敗)
func NewBank(cards []domain.Card, opts ...BankOption) (*Bank, error) {
	b := &Bank{
		cards:                 make(map[string]*cardRecord, len(cards)),
		sessions:              make(map[string]string),
		processedTransactions: make(map[uuid.UUID]time.Time),
		logger:                zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, card := range cards {
		if err := b.addCard(card); err != nil {
			return nil, err
		}
	}
	if b.wal != nil {
		if err := b.recoverFromWAL(); err != nil {
			return nil, fmt.Errorf("recover bank from wal: %w", err)
		}
	}
	return b, nil
}

// AddCard 註冊一張新卡片
func (b *Bank) AddCard(card domain.Card) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addCard(card)
}

func (b *Bank) addCard(card domain.Card) error {
	if _, ok := b.cards[card.Number]; ok {
		return fmt.Errorf("%w: %s", domain.ErrCardAlreadyExists, domain.MaskCardNumber(card.Number))
	}
	b.cards[card.Number] = &cardRecord{
		pin:      card.Pin,
		accounts: domain.CloneAccounts(card.Accounts),
	}
	return nil
}

// recoverFromWAL 從 WAL 檔案恢復帳戶餘額
// 只有 NewBank 呼叫，無需 Lock (單執行緒)
func (b *Bank) recoverFromWAL() error {
	now := time.Now()
	replayed := 0
	err := b.wal.ReadAll(func(raw json.RawMessage) error {
		var tran domain.Transaction
		if err := json.Unmarshal(raw, &tran); err != nil {
			return err
		}
		if _, ok := b.processedTransactions[tran.TransactionID]; ok {
			return nil
		}
		account, err := b.lookup(tran.CardNumber, tran.AccountIndex)
		if err != nil {
			return err
		}
		if err := apply(account, tran.Amount); err != nil {
			return err
		}
		b.processedTransactions[tran.TransactionID] = now
		replayed++
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Info("bank recovered from wal", zap.Int("transactions", replayed))
	return nil
}

// IsRegistered 卡片是否已註冊
func (b *Bank) IsRegistered(ctx context.Context, cardNumber string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.cards[cardNumber]
	return ok, nil
}

// Validate 驗證 PIN，成功時發出一組隨機 token
func (b *Bank) Validate(ctx context.Context, cardNumber, pin string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	card, ok := b.cards[cardNumber]
	if !ok || card.pin != pin {
		return "", false, nil
	}
	token := uuid.NewString()
	b.sessions[token] = cardNumber
	return token, true, nil
}

// ListAccounts 依 token 取得帳戶列表
func (b *Bank) ListAccounts(ctx context.Context, token string) ([]domain.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cardNumber, ok := b.sessions[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return domain.CloneAccounts(b.cards[cardNumber].accounts), nil
}

// ApplyDelta 異動帳戶餘額
//
// 流程: 驗證 token 與帳戶 -> 檢查異動後餘額 -> 寫入 WAL -> 更新記憶體
func (b *Bank) ApplyDelta(ctx context.Context, token string, accountIndex int, amount int64) (domain.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cardNumber, ok := b.sessions[token]
	if !ok {
		return domain.Account{}, domain.ErrInvalidToken
	}
	account, err := b.lookup(cardNumber, accountIndex)
	if err != nil {
		return domain.Account{}, err
	}
	if !account.Available {
		return domain.Account{}, fmt.Errorf("%w: %s", domain.ErrAccountUnavailable, account.Number)
	}
	if account.Balance+amount < 0 {
		return domain.Account{}, fmt.Errorf("%w: balance %d, delta %d", domain.ErrInsufficientBalance, account.Balance, amount)
	}

	tran := domain.NewTransaction(cardNumber, accountIndex, amount)
	if b.wal != nil {
		if err := b.wal.Write(tran); err != nil {
			b.logger.Error("wal write failed", zap.Error(err))
			return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrWALWriteFailed, err)
		}
	}
	if err := apply(account, amount); err != nil {
		return domain.Account{}, err
	}
	b.processedTransactions[tran.TransactionID] = time.Now()

	b.logger.Debug("account updated",
		zap.String("transaction_id", tran.TransactionID.String()),
		zap.Stringer("type", tran.Type()),
		zap.String("account", account.Number),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance),
	)
	return *account, nil
}

// Revoke 作廢 token
func (b *Bank) Revoke(ctx context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, token)
	return nil
}

func (b *Bank) lookup(cardNumber string, accountIndex int) (*domain.Account, error) {
	card, ok := b.cards[cardNumber]
	if !ok {
		return nil, fmt.Errorf("%w: card %s", domain.ErrAccountNotFound, domain.MaskCardNumber(cardNumber))
	}
	if accountIndex < 0 || accountIndex >= len(card.accounts) {
		return nil, fmt.Errorf("%w: index %d", domain.ErrAccountNotFound, accountIndex)
	}
	return &card.accounts[accountIndex], nil
}

func apply(account *domain.Account, amount int64) error {
	if account.Balance+amount < 0 {
		return domain.ErrInsufficientBalance
	}
	account.Balance += amount
	return nil
}

var (
	_ usecase.FinancialBackend = (*Bank)(nil)
	_ usecase.SessionRevoker   = (*Bank)(nil)
)
