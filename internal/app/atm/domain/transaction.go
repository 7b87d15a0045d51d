package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型，由金額正負決定
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "deposit"
	case TransactionTypeWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// Transaction 銀行端的一筆帳戶異動 (backend delta)
type Transaction struct {
	// TransactionID: 外部追蹤號 (UUID)，重放時用來去重
	TransactionID uuid.UUID `json:"transaction_id"`
	CardNumber    string    `json:"card_number"`
	AccountIndex  int       `json:"account_index"`
	// Amount: 正數為存款，負數為提款
	Amount int64 `json:"amount"`
	// CreatedAt: unix milli
	CreatedAt int64 `json:"created_at"`
}

// NewTransaction 建立一筆新的帳戶異動
func NewTransaction(cardNumber string, accountIndex int, amount int64) *Transaction {
	return &Transaction{
		TransactionID: uuid.New(),
		CardNumber:    cardNumber,
		AccountIndex:  accountIndex,
		Amount:        amount,
		CreatedAt:     time.Now().UnixMilli(),
	}
}

// Type 依金額正負回傳交易類型
func (t *Transaction) Type() TransactionType {
	if t.Amount < 0 {
		return TransactionTypeWithdraw
	}
	return TransactionTypeDeposit
}
