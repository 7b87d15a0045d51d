package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
	"github.com/JoeShih716/go-atm/pkg/mysql"
)

// sqlCard 對應資料庫的 cards 表
type sqlCard struct {
	Number    string `gorm:"primaryKey;size:32"`
	Pin       string `gorm:"size:16"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (*sqlCard) TableName() string {
	return "cards"
}

// sqlAccount 對應資料庫的 accounts 表，position 為帳戶在卡片下的順序
type sqlAccount struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	CardNumber string `gorm:"size:32;uniqueIndex:idx_card_position"`
	Position   int    `gorm:"uniqueIndex:idx_card_position"`
	Number     string `gorm:"size:32;uniqueIndex"`
	Balance    int64
	Available  bool
	UpdatedAt  int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() domain.Account {
	return domain.Account{
		Number:    a.Number,
		Balance:   a.Balance,
		Available: a.Available,
	}
}

// sqlSession 對應資料庫的 sessions 表
type sqlSession struct {
	Token      string `gorm:"primaryKey;size:36"`
	CardNumber string `gorm:"size:32;index"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli"`
}

func (*sqlSession) TableName() string {
	return "sessions"
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	RefID         []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.TransactionID
	CardNumber    string `gorm:"size:32;index"`
	AccountNumber string `gorm:"size:32;index"`
	Amount        int64
	Type          uint8
	CreatedAt     int64 `gorm:"autoCreateTime:milli"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// Bank 以 MySQL 為儲存的銀行端
type Bank struct {
	client *mysql.Client
	logger *zap.Logger
}

// NewBank 建立 MySQL 銀行端
func NewBank(client *mysql.Client, logger *zap.Logger) *Bank {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bank{
		client: client,
		logger: logger,
	}
}

// AutoMigrate 建立或更新資料表
func (b *Bank) AutoMigrate(ctx context.Context) error {
	return b.client.DB().WithContext(ctx).AutoMigrate(
		&sqlCard{},
		&sqlAccount{},
		&sqlSession{},
		&sqlTransaction{},
	)
}

// Seed 寫入初始卡片與帳戶，已存在的資料不會覆蓋
func (b *Bank) Seed(ctx context.Context, cards []domain.Card) error {
	return b.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, card := range cards {
			row := sqlCard{Number: card.Number, Pin: card.Pin}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
			for i, acc := range card.Accounts {
				accRow := sqlAccount{
					CardNumber: card.Number,
					Position:   i,
					Number:     acc.Number,
					Balance:    acc.Balance,
					Available:  acc.Available,
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&accRow).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// IsRegistered 卡片是否已註冊
func (b *Bank) IsRegistered(ctx context.Context, cardNumber string) (bool, error) {
	var count int64
	err := b.client.DB().WithContext(ctx).
		Model(&sqlCard{}).
		Where("number = ?", cardNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Validate 驗證 PIN，成功時建立一筆 session
func (b *Bank) Validate(ctx context.Context, cardNumber, pin string) (string, bool, error) {
	db := b.client.DB().WithContext(ctx)

	var card sqlCard
	err := db.Where("number = ?", cardNumber).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if card.Pin != pin {
		return "", false, nil
	}

	session := sqlSession{Token: uuid.NewString(), CardNumber: cardNumber}
	if err := db.Create(&session).Error; err != nil {
		return "", false, err
	}
	return session.Token, true, nil
}

// ListAccounts 依 token 取得帳戶列表
func (b *Bank) ListAccounts(ctx context.Context, token string) ([]domain.Account, error) {
	db := b.client.DB().WithContext(ctx)

	cardNumber, err := sessionCard(db, token)
	if err != nil {
		return nil, err
	}
	var rows []sqlAccount
	if err := db.Where("card_number = ?", cardNumber).Order("position").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]domain.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toDomain())
	}
	return accounts, nil
}

// ApplyDelta 在同一個 DB Transaction 內鎖定帳戶、更新餘額並寫入交易紀錄
func (b *Bank) ApplyDelta(ctx context.Context, token string, accountIndex int, amount int64) (domain.Account, error) {
	var result domain.Account
	err := b.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cardNumber, err := sessionCard(tx, token)
		if err != nil {
			return err
		}

		// 悲觀鎖
		var account sqlAccount
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("card_number = ? AND position = ?", cardNumber, accountIndex).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: index %d", domain.ErrAccountNotFound, accountIndex)
		}
		if err != nil {
			return err
		}
		if !account.Available {
			return fmt.Errorf("%w: %s", domain.ErrAccountUnavailable, account.Number)
		}
		if account.Balance+amount < 0 {
			return fmt.Errorf("%w: balance %d, delta %d", domain.ErrInsufficientBalance, account.Balance, amount)
		}

		account.Balance += amount
		if err := tx.Save(&account).Error; err != nil {
			return err
		}

		tran := domain.NewTransaction(cardNumber, accountIndex, amount)
		record := sqlTransaction{
			RefID:         tran.TransactionID[:],
			CardNumber:    cardNumber,
			AccountNumber: account.Number,
			Amount:        amount,
			Type:          uint8(tran.Type()),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		result = account.toDomain()
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	b.logger.Debug("account updated",
		zap.String("account", result.Number),
		zap.Int64("amount", amount),
		zap.Int64("balance", result.Balance),
	)
	return result, nil
}

// Revoke 刪除 session
func (b *Bank) Revoke(ctx context.Context, token string) error {
	return b.client.DB().WithContext(ctx).Where("token = ?", token).Delete(&sqlSession{}).Error
}

func sessionCard(db *gorm.DB, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	var session sqlSession
	err := db.Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return session.CardNumber, nil
}

var (
	_ usecase.FinancialBackend = (*Bank)(nil)
	_ usecase.SessionRevoker   = (*Bank)(nil)
)
