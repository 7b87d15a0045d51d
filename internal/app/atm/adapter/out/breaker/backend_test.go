package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

// stubBackend 依設定回傳固定結果
type stubBackend struct {
	err   error
	calls int
	delay time.Duration
}

func (s *stubBackend) wait(ctx context.Context) error {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *stubBackend) IsRegistered(ctx context.Context, cardNumber string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	return cardNumber == "12345678", nil
}

func (s *stubBackend) Validate(ctx context.Context, cardNumber, pin string) (string, bool, error) {
	if err := s.wait(ctx); err != nil {
		return "", false, err
	}
	if pin != "1234" {
		return "", false, nil
	}
	return "token-1", true, nil
}

func (s *stubBackend) ListAccounts(ctx context.Context, token string) ([]domain.Account, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return []domain.Account{{Number: "11112222", Balance: 100, Available: true}}, nil
}

func (s *stubBackend) ApplyDelta(ctx context.Context, token string, idx int, amount int64) (domain.Account, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Account{}, err
	}
	return domain.Account{Number: "11112222", Balance: 100 + amount, Available: true}, nil
}

func TestPassThrough(t *testing.T) {
	ctx := context.Background()
	b := New("test", &stubBackend{}, DefaultConfig(), nil)

	ok, err := b.IsRegistered(ctx, "12345678")
	require.NoError(t, err)
	assert.True(t, ok)

	token, ok, err := b.Validate(ctx, "12345678", "1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-1", token)

	_, ok, err = b.Validate(ctx, "12345678", "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	accounts, err := b.ListAccounts(ctx, token)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	account, err := b.ApplyDelta(ctx, token, 0, -40)
	require.NoError(t, err)
	assert.Equal(t, int64(60), account.Balance)
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	stub := &stubBackend{err: errors.New("connection reset")}
	b := New("test", stub, Config{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.IsRegistered(ctx, "12345678")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrBackendUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.ApplyDelta(ctx, "token-1", 0, 10)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, stub.calls, "open breaker must not reach the bank")
}

func TestBusinessRejectionDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	stub := &stubBackend{err: domain.ErrInsufficientBalance}
	b := New("test", stub, Config{ConsecutiveFailures: 1}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.ApplyDelta(ctx, "token-1", 0, -1000)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 3, stub.calls)
}

func TestCallTimeout(t *testing.T) {
	stub := &stubBackend{delay: time.Second}
	b := New("test", stub, Config{CallTimeout: 10 * time.Millisecond}, nil)

	_, err := b.ListAccounts(context.Background(), "token-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type revokingStub struct {
	stubBackend
	revoked []string
}

func (s *revokingStub) Revoke(ctx context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

func TestRevokeForwarding(t *testing.T) {
	ctx := context.Background()

	plain := New("plain", &stubBackend{}, DefaultConfig(), nil)
	assert.NoError(t, plain.Revoke(ctx, "token-1"))

	stub := &revokingStub{}
	b := New("revoking", stub, DefaultConfig(), nil)
	require.NoError(t, b.Revoke(ctx, "token-1"))
	assert.Equal(t, []string{"token-1"}, stub.revoked)
}
