package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

func TestCardReader(t *testing.T) {
	r := NewCardReader("")
	assert.Empty(t, r.Read())

	r.InsertCard("12345678")
	assert.Equal(t, "12345678", r.Read())

	r.Eject()
	assert.Empty(t, r.Read())
}

func TestCashBinPopMoney(t *testing.T) {
	b := NewCashBin(DefaultAvailableMoney)

	require.True(t, b.PopMoney(100))
	assert.Equal(t, int64(900), b.AvailableMoney())
	assert.Equal(t, int64(100), b.CountMoney())

	b.Open()
	assert.Equal(t, DoorOpen, b.Door())
	assert.Zero(t, b.CountMoney(), "tray is emptied when the door opens")

	assert.False(t, b.PopMoney(901))
	assert.Equal(t, int64(900), b.AvailableMoney())
	assert.False(t, b.PopMoney(0))
}

func TestCashBinPushMoney(t *testing.T) {
	b := NewCashBin(1000)
	b.Open()
	b.PlaceMoney(50)
	b.Close()
	assert.Equal(t, DoorClosed, b.Door())
	assert.Equal(t, int64(50), b.CountMoney())

	require.True(t, b.PushMoney())
	assert.Equal(t, int64(1050), b.AvailableMoney())
	assert.Zero(t, b.CountMoney())
}

func TestCashBinOpenReturnsDeposit(t *testing.T) {
	b := NewCashBin(1000)
	b.PlaceMoney(30)
	b.Open()
	assert.Zero(t, b.CountMoney())
	assert.Equal(t, int64(1000), b.AvailableMoney())
}

func TestPrinter(t *testing.T) {
	p := NewPrinter(10)

	require.NoError(t, p.PrintReceipt("12345"))
	assert.Equal(t, 5, p.AvailablePaper())

	err := p.PrintReceipt("123456")
	assert.ErrorIs(t, err, domain.ErrInsufficientPrinterStock)
	assert.Equal(t, 5, p.AvailablePaper())

	require.NoError(t, p.PrintReceipt("12345"))
	assert.Zero(t, p.AvailablePaper())
	assert.Equal(t, []string{"12345", "12345"}, p.Printed())

	p.Refill(3)
	assert.Equal(t, 3, p.AvailablePaper())
}

func TestLinePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewLinePrinter(100, &buf)

	require.NoError(t, p.PrintReceipt("balance=10"))
	require.NoError(t, p.PrintReceipt("balance=20"))
	assert.Equal(t, "balance=10\nbalance=20\n", buf.String())
	assert.Equal(t, 80, p.AvailablePaper())
}
