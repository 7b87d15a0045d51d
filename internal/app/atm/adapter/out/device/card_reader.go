package device

import (
	"sync"

	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
)

// CardReader 以記憶體模擬的讀卡機
type CardReader struct {
	mu         sync.Mutex
	cardNumber string
}

// NewCardReader 建立讀卡機，可帶入一張已插入的卡
func NewCardReader(cardNumber string) *CardReader {
	return &CardReader{cardNumber: cardNumber}
}

func (r *CardReader) InsertCard(cardNumber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cardNumber = cardNumber
}

func (r *CardReader) Read() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cardNumber
}

func (r *CardReader) Eject() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cardNumber = ""
}

var _ usecase.CardReader = (*CardReader)(nil)
