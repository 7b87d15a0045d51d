package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

// Controller 是 ATM 的核心狀態機
//
// 每個操作都先檢查目前狀態是否達到該操作要求的最低狀態，
// 再依序呼叫讀卡機、銀行端、鈔箱與印表機。
// 會讓卡片無法繼續使用的失敗一律先 Reset 再回傳錯誤；
// 格式錯誤、索引錯誤、金額錯誤則保留狀態讓使用者重試。
type Controller struct {
	session *Session
	reader  CardReader
	cashBin CashBin
	printer Printer

	cardDigits int
	pinDigits  int
	logger     *zap.Logger
	listener   func(domain.Diagnosis)

	state domain.MachineState
}

// Option 定義 Controller 的配置選項函數
type Option func(*Controller)

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCardNumberDigits 設定卡號長度
func WithCardNumberDigits(digits int) Option {
	return func(c *Controller) {
		if digits > 0 {
			c.cardDigits = digits
		}
	}
}

// WithPinNumberDigits 設定 PIN 長度
func WithPinNumberDigits(digits int) Option {
	return func(c *Controller) {
		if digits > 0 {
			c.pinDigits = digits
		}
	}
}

// WithDiagnosisListener 每次狀態變更後會收到一份機台快照
func WithDiagnosisListener(listener func(domain.Diagnosis)) Option {
	return func(c *Controller) {
		c.listener = listener
	}
}

// NewController 建立控制器，初始狀態為 NoCard
func NewController(session *Session, reader CardReader, cashBin CashBin, printer Printer, opts ...Option) *Controller {
	c := &Controller{
		session:    session,
		reader:     reader,
		cashBin:    cashBin,
		printer:    printer,
		cardDigits: domain.DefaultCardNumberDigits,
		pinDigits:  domain.DefaultPinNumberDigits,
		logger:     zap.NewNop(),
		state:      domain.StateNoCard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish()
	return c
}

// State 目前狀態
func (c *Controller) State() domain.MachineState {
	return c.state
}

// Session 回傳本機的交易暫存
func (c *Controller) Session() *Session {
	return c.session
}

// InsertCard 模擬插卡
func (c *Controller) InsertCard(cardNumber string) error {
	if err := c.guard(domain.OpInsertCard); err != nil {
		return err
	}
	c.reader.InsertCard(cardNumber)
	c.transition(domain.StateCardIn)
	return nil
}

// ReadCardNumber 讀取卡號並確認是否為已註冊的卡片
func (c *Controller) ReadCardNumber(ctx context.Context) (string, error) {
	if err := c.guard(domain.OpReadCardNumber); err != nil {
		return "", err
	}
	card := c.reader.Read()
	if !domain.IsValidNumber(card, c.cardDigits) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidCardNumber, card)
	}

	registered, err := c.session.RegisterCard(ctx, card)
	if err != nil {
		c.fail(domain.OpReadCardNumber, err)
		return "", backendError(err)
	}
	if !registered {
		c.fail(domain.OpReadCardNumber, domain.ErrUnregisteredCard)
		return "", fmt.Errorf("%w: %s", domain.ErrUnregisteredCard, domain.MaskCardNumber(card))
	}
	c.logger.Info("card registered", zap.String("card", domain.MaskCardNumber(card)))
	c.transition(domain.StateRegisteredCard)
	return card, nil
}

// ValidatePin 請銀行驗證 PIN
func (c *Controller) ValidatePin(ctx context.Context, pin string) error {
	if err := c.guard(domain.OpValidatePin); err != nil {
		return err
	}
	if !domain.IsValidNumber(pin, c.pinDigits) {
		return fmt.Errorf("%w: expected %d digits", domain.ErrInvalidPinNumber, c.pinDigits)
	}

	valid, err := c.session.ValidatePin(ctx, pin)
	if err != nil {
		c.fail(domain.OpValidatePin, err)
		return backendError(err)
	}
	if !valid {
		c.fail(domain.OpValidatePin, domain.ErrIncorrectPin)
		return domain.ErrIncorrectPin
	}
	c.transition(domain.StateValidPin)
	return nil
}

// GetAccounts 取得帳戶列表，沒有任何帳戶時退卡
func (c *Controller) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := c.guard(domain.OpGetAccounts); err != nil {
		return nil, err
	}
	accounts, err := c.session.ListAccounts(ctx)
	if err != nil {
		c.fail(domain.OpGetAccounts, err)
		return nil, backendError(err)
	}
	if len(accounts) == 0 {
		card := c.session.CardNumber()
		c.fail(domain.OpGetAccounts, domain.ErrNoAccounts)
		return nil, fmt.Errorf("%w: card=%s", domain.ErrNoAccounts, domain.MaskCardNumber(card))
	}
	c.transition(domain.StateAccountsReady)
	return accounts, nil
}

// SelectAccount 選擇要操作的帳戶
func (c *Controller) SelectAccount(idx int) error {
	if err := c.guard(domain.OpSelectAccount); err != nil {
		return err
	}
	if err := c.session.SelectAccount(idx); err != nil {
		return err
	}
	c.transition(domain.StateAccountSelected)
	return nil
}

// GetBalance 查詢餘額，印出收據後回到 NoCard
func (c *Controller) GetBalance() (int64, error) {
	if err := c.guard(domain.OpGetBalance); err != nil {
		return 0, err
	}
	account, err := c.session.Account(SelectedAccount)
	if err != nil {
		return 0, err
	}
	if err := account.Validate(); err != nil {
		return 0, err
	}
	return account.Balance, c.finish(domain.OpGetBalance, strconv.FormatInt(account.Balance, 10))
}

// Deposit 存款
//
// 先更新銀行帳戶，成功後才把點鈔盤的現金收進鈔箱；
// 銀行更新失敗時打開點鈔口把現金退還給使用者。
func (c *Controller) Deposit(ctx context.Context, amount int64) (domain.Account, error) {
	if err := c.guard(domain.OpDeposit); err != nil {
		return domain.Account{}, err
	}
	if amount <= 0 {
		return domain.Account{}, fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount)
	}

	account, err := c.session.ApplyDelta(ctx, amount, SelectedAccount)
	if err != nil {
		c.cashBin.Open()
		c.fail(domain.OpDeposit, err)
		return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrBackendUpdateFailed, err)
	}
	c.cashBin.PushMoney()
	c.logger.Info("deposit completed",
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance),
	)
	return account, c.finish(domain.OpDeposit, account.Receipt())
}

// Withdraw 提款
//
// 順序: 檢查帳戶餘額與鈔箱現金 -> 更新銀行帳戶 -> 出鈔。
// 銀行更新失敗時尚未動到現金，只需 Reset。
func (c *Controller) Withdraw(ctx context.Context, amount int64) (domain.Account, error) {
	if err := c.guard(domain.OpWithdraw); err != nil {
		return domain.Account{}, err
	}
	if amount <= 0 {
		return domain.Account{}, fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount)
	}

	current, err := c.session.Account(SelectedAccount)
	if err != nil {
		return domain.Account{}, err
	}
	if err := current.Validate(); err != nil {
		return domain.Account{}, err
	}
	if amount > current.Balance {
		c.fail(domain.OpWithdraw, domain.ErrInsufficientAccountFunds)
		return domain.Account{}, fmt.Errorf("%w: account has only %d", domain.ErrInsufficientAccountFunds, current.Balance)
	}
	if available := c.cashBin.AvailableMoney(); amount > available {
		c.fail(domain.OpWithdraw, domain.ErrInsufficientCashBinFunds)
		return domain.Account{}, fmt.Errorf("%w: cash bin has only %d", domain.ErrInsufficientCashBinFunds, available)
	}

	account, err := c.session.ApplyDelta(ctx, -amount, SelectedAccount)
	if err != nil {
		c.fail(domain.OpWithdraw, err)
		return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrBackendUpdateFailed, err)
	}
	if !c.cashBin.PopMoney(amount) {
		// 帳已扣但鈔箱出不了鈔，沖回後退卡
		if _, rerr := c.session.ApplyDelta(ctx, amount, SelectedAccount); rerr != nil {
			c.logger.Error("withdraw reversal failed",
				zap.Int64("amount", amount),
				zap.String("account", account.Number),
				zap.Error(rerr),
			)
		}
		c.fail(domain.OpWithdraw, domain.ErrInsufficientCashBinFunds)
		return domain.Account{}, fmt.Errorf("%w: dispense of %d failed", domain.ErrInsufficientCashBinFunds, amount)
	}
	c.cashBin.Open()
	c.logger.Info("withdraw completed",
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance),
	)
	return account, c.finish(domain.OpWithdraw, account.Receipt())
}

// Reset 退卡、清除暫存並回到 NoCard，可重複呼叫
func (c *Controller) Reset() {
	c.reader.Eject()
	c.session.Reset()
	c.transition(domain.StateNoCard)
}

// EnterMaintenance 退卡並停機，需由 Reset 恢復服務
func (c *Controller) EnterMaintenance() {
	c.reader.Eject()
	c.session.Reset()
	c.logger.Warn("entering maintenance")
	c.transition(domain.StateNeedMaintenance)
}

// OpenDoor 打開點鈔口
func (c *Controller) OpenDoor() {
	c.cashBin.Open()
}

// CloseDoor 關閉點鈔口
func (c *Controller) CloseDoor() {
	c.cashBin.Close()
}

// CountMoney 點鈔盤上的金額
func (c *Controller) CountMoney() int64 {
	return c.cashBin.CountMoney()
}

// Diagnose 回傳機台狀態快照
func (c *Controller) Diagnose() domain.Diagnosis {
	return domain.Diagnosis{
		State:          c.state,
		CashAvailable:  c.cashBin.AvailableMoney(),
		PaperAvailable: c.printer.AvailablePaper(),
		UpdatedAt:      time.Now(),
	}
}

// finish 印收據並 Reset，印表機失敗時仍保證 Reset
func (c *Controller) finish(op domain.Operation, receipt string) (err error) {
	defer c.Reset()
	if err = c.printer.PrintReceipt(receipt); err != nil {
		c.logger.Warn("receipt not printed",
			zap.Stringer("op", op),
			zap.Int("paper", c.printer.AvailablePaper()),
			zap.Error(err),
		)
		return fmt.Errorf("print receipt: %w", err)
	}
	return nil
}

func (c *Controller) guard(op domain.Operation) error {
	if err := domain.CheckState(op, c.state); err != nil {
		c.logger.Warn("operation rejected", zap.Stringer("op", op), zap.Error(err))
		return err
	}
	return nil
}

// fail 記錄失敗並 Reset
func (c *Controller) fail(op domain.Operation, cause error) {
	c.logger.Warn("operation failed, resetting",
		zap.Stringer("op", op),
		zap.Stringer("state", c.state),
		zap.Error(cause),
	)
	c.Reset()
}

func (c *Controller) transition(next domain.MachineState) {
	if c.state != next {
		c.logger.Debug("state transition",
			zap.Stringer("from", c.state),
			zap.Stringer("to", next),
		)
	}
	c.state = next
	c.publish()
}

func (c *Controller) publish() {
	if c.listener != nil {
		c.listener(c.Diagnose())
	}
}

// backendError 將銀行端的非業務錯誤包裝成 ErrBackendUnavailable
func backendError(err error) error {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}
