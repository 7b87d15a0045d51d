package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
)

// Config 熔斷器與逾時設定
type Config struct {
	// CallTimeout 單次呼叫銀行端的逾時
	CallTimeout time.Duration `yaml:"callTimeout"`
	// MaxRequests half-open 狀態下允許通過的請求數
	MaxRequests uint32 `yaml:"maxRequests"`
	// Interval closed 狀態下清除計數的週期，0 代表不清除
	Interval time.Duration `yaml:"interval"`
	// OpenTimeout open 狀態維持多久後進入 half-open
	OpenTimeout time.Duration `yaml:"openTimeout"`
	// ConsecutiveFailures 連續失敗幾次後熔斷
	ConsecutiveFailures uint32 `yaml:"consecutiveFailures"`
}

// DefaultConfig 預設設定
func DefaultConfig() Config {
	return Config{
		CallTimeout:         3 * time.Second,
		MaxRequests:         1,
		Interval:            time.Minute,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Backend 在任一銀行端外層加上逾時與熔斷
//
// 業務上的拒絕 (token 無效、餘額不足等) 不算失敗，不會造成熔斷。
type Backend struct {
	next    usecase.FinancialBackend
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// New 建立熔斷包裝
func New(name string, next usecase.FinancialBackend, cfg Config, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}

	b := &Backend{
		next:    next,
		timeout: cfg.CallTimeout,
		logger:  logger,
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bank-" + name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("bank circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsBusinessRejection(err)
		},
	})
	return b
}

// State 熔斷器目前狀態
func (b *Backend) State() gobreaker.State {
	return b.cb.State()
}

func (b *Backend) IsRegistered(ctx context.Context, cardNumber string) (bool, error) {
	v, err := b.execute(ctx, func(ctx context.Context) (any, error) {
		return b.next.IsRegistered(ctx, cardNumber)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

type validation struct {
	token string
	ok    bool
}

func (b *Backend) Validate(ctx context.Context, cardNumber, pin string) (string, bool, error) {
	v, err := b.execute(ctx, func(ctx context.Context) (any, error) {
		token, ok, err := b.next.Validate(ctx, cardNumber, pin)
		return validation{token: token, ok: ok}, err
	})
	if err != nil {
		return "", false, err
	}
	res := v.(validation)
	return res.token, res.ok, nil
}

func (b *Backend) ListAccounts(ctx context.Context, token string) ([]domain.Account, error) {
	v, err := b.execute(ctx, func(ctx context.Context) (any, error) {
		return b.next.ListAccounts(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Account), nil
}

func (b *Backend) ApplyDelta(ctx context.Context, token string, accountIndex int, amount int64) (domain.Account, error) {
	v, err := b.execute(ctx, func(ctx context.Context) (any, error) {
		return b.next.ApplyDelta(ctx, token, accountIndex, amount)
	})
	if err != nil {
		return domain.Account{}, err
	}
	return v.(domain.Account), nil
}

// Revoke 下游支援時才轉發，作廢失敗不影響熔斷
func (b *Backend) Revoke(ctx context.Context, token string) error {
	r, ok := b.next.(usecase.SessionRevoker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return r.Revoke(ctx, token)
}

func (b *Backend) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	v, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	return v, err
}

var (
	_ usecase.FinancialBackend = (*Backend)(nil)
	_ usecase.SessionRevoker   = (*Backend)(nil)
)
