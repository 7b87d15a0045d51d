package domain

import "fmt"

// Account 銀行帳戶快照，餘額以最小貨幣單位表示
type Account struct {
	Number    string `json:"number" yaml:"number"`
	Balance   int64  `json:"balance" yaml:"balance"`
	Available bool   `json:"available" yaml:"available"`
}

// Validate 檢查帳戶資料是否完整
func (a Account) Validate() error {
	if a.Number == "" {
		return fmt.Errorf("%w: empty account number", ErrInvalidAccountData)
	}
	if a.Balance < 0 {
		return fmt.Errorf("%w: negative balance %d on %s", ErrInvalidAccountData, a.Balance, a.Number)
	}
	return nil
}

// Receipt 交易收據內容
func (a Account) Receipt() string {
	return fmt.Sprintf("account=%s balance=%d", a.Number, a.Balance)
}

// Card 銀行端的卡片註冊資料
type Card struct {
	Number   string    `json:"number" yaml:"number"`
	Pin      string    `json:"pin" yaml:"pin"`
	Accounts []Account `json:"accounts" yaml:"accounts"`
}

// CloneAccounts 複製帳戶列表，避免外部改寫內部切片
func CloneAccounts(in []Account) []Account {
	if in == nil {
		return nil
	}
	out := make([]Account, len(in))
	copy(out, in)
	return out
}
