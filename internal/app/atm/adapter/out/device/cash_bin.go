package device

import (
	"sync"

	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
)

// DoorState 點鈔口狀態
type DoorState uint8

const (
	DoorClosed DoorState = iota
	DoorOpen
)

func (d DoorState) String() string {
	if d == DoorOpen {
		return "open"
	}
	return "closed"
}

// DefaultAvailableMoney 鈔箱預設現金
const DefaultAvailableMoney int64 = 1000

// CashBin 以記憶體模擬的鈔箱
//
// 結構:
//
//	available: 鈔箱內可提領的現金
//	tray: 點鈔盤上的現金 (存入待收或提領待取)
//	door: 點鈔口狀態，打開時點鈔盤歸零
type CashBin struct {
	mu        sync.Mutex
	available int64
	tray      int64
	door      DoorState
}

// NewCashBin 建立鈔箱
func NewCashBin(available int64) *CashBin {
	if available < 0 {
		available = 0
	}
	return &CashBin{available: available}
}

func (b *CashBin) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.door = DoorOpen
	b.tray = 0
}

func (b *CashBin) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.door = DoorClosed
}

func (b *CashBin) CountMoney() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tray
}

func (b *CashBin) AvailableMoney() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *CashBin) PopMoney(amount int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount <= 0 || b.available < amount {
		return false
	}
	b.available -= amount
	b.tray = amount
	return true
}

func (b *CashBin) PushMoney() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available += b.tray
	b.tray = 0
	return true
}

// Door 點鈔口狀態
func (b *CashBin) Door() DoorState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.door
}

// PlaceMoney 模擬使用者把現金放進點鈔盤
func (b *CashBin) PlaceMoney(amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if amount < 0 {
		amount = 0
	}
	b.tray = amount
}

var _ usecase.CashBin = (*CashBin)(nil)
