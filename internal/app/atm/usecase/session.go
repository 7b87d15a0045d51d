package usecase

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

// SelectedAccount 代表「目前選擇的帳戶」
const SelectedAccount = -1

// Session 負責與銀行端溝通，保存本次交易的暫存資料
//
// 結構:
//
//	cardNumber: 讀到的卡號
//	enteredPin: 使用者輸入的 PIN
//	token: 驗證成功後銀行回傳的 session token
//	accounts: 帳戶列表快取
//	selected: 選擇的帳戶索引，-1 代表尚未選擇
type Session struct {
	backend FinancialBackend

	cardNumber string
	enteredPin string
	token      string
	accounts   []domain.Account
	selected   int
}

// NewSession 建立一個新的 Session
func NewSession(backend FinancialBackend) *Session {
	s := &Session{backend: backend}
	s.Reset()
	return s
}

// RegisterCard 記錄卡號並詢問銀行是否已註冊
func (s *Session) RegisterCard(ctx context.Context, cardNumber string) (bool, error) {
	s.cardNumber = cardNumber
	return s.backend.IsRegistered(ctx, cardNumber)
}

// ValidatePin 驗證 PIN，成功時保存 token，失敗時 token 保持空字串
func (s *Session) ValidatePin(ctx context.Context, pin string) (bool, error) {
	s.enteredPin = pin
	token, ok, err := s.backend.Validate(ctx, s.cardNumber, pin)
	if err != nil || !ok {
		s.token = ""
		return false, err
	}
	s.token = token
	return true, nil
}

// ListAccounts 以 token 取得帳戶列表並快取
func (s *Session) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.backend.ListAccounts(ctx, s.token)
	if err != nil {
		s.accounts = nil
		return nil, err
	}
	s.accounts = domain.CloneAccounts(accounts)
	return domain.CloneAccounts(s.accounts), nil
}

// SelectAccount 選擇帳戶
func (s *Session) SelectAccount(idx int) error {
	if !s.inRange(idx) {
		return fmt.Errorf("%w: select %d of %d", domain.ErrInvalidIndex, idx, len(s.accounts))
	}
	s.selected = idx
	return nil
}

// Account 取得快取中的帳戶，idx 為負數時使用目前選擇的帳戶
func (s *Session) Account(idx int) (domain.Account, error) {
	i, err := s.resolve(idx)
	if err != nil {
		return domain.Account{}, err
	}
	return s.accounts[i], nil
}

// ApplyDelta 請銀行異動帳戶餘額，成功後以銀行回傳的快照更新快取
func (s *Session) ApplyDelta(ctx context.Context, amount int64, idx int) (domain.Account, error) {
	i, err := s.resolve(idx)
	if err != nil {
		return domain.Account{}, err
	}
	account, err := s.backend.ApplyDelta(ctx, s.token, i, amount)
	if err != nil {
		return domain.Account{}, err
	}
	s.accounts[i] = account
	return account, nil
}

// Reset 清除所有暫存資料，並盡力作廢銀行端的 token
func (s *Session) Reset() {
	if s.token != "" {
		if r, ok := s.backend.(SessionRevoker); ok {
			_ = r.Revoke(context.Background(), s.token)
		}
	}
	s.cardNumber = ""
	s.enteredPin = ""
	s.token = ""
	s.accounts = nil
	s.selected = SelectedAccount
}

func (s *Session) CardNumber() string { return s.cardNumber }

func (s *Session) Token() string { return s.token }

func (s *Session) Selected() int { return s.selected }

// Accounts 回傳帳戶快取的複本
func (s *Session) Accounts() []domain.Account {
	return domain.CloneAccounts(s.accounts)
}

func (s *Session) inRange(idx int) bool {
	return idx >= 0 && idx < len(s.accounts)
}

func (s *Session) resolve(idx int) (int, error) {
	if idx < 0 {
		idx = s.selected
	}
	if !s.inRange(idx) {
		return 0, fmt.Errorf("%w: %d of %d", domain.ErrInvalidIndex, idx, len(s.accounts))
	}
	return idx, nil
}
