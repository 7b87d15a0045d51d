package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
	"github.com/JoeShih716/go-atm/internal/app/atm/usecase"
)

// DefaultPaper 印表機預設紙張長度
const DefaultPaper = 1000

// Printer 收據印表機，紙張依文字長度消耗 (不算換行)
//
// out 為 nil 時只扣紙張不輸出，供測試使用；
// 帶入 io.Writer 時每張收據各佔一行。
type Printer struct {
	mu      sync.Mutex
	paper   int
	out     io.Writer
	printed []string
}

// NewPrinter 建立不輸出的印表機
func NewPrinter(paper int) *Printer {
	return &Printer{paper: paper}
}

// NewLinePrinter 建立會把收據寫到 out 的印表機
func NewLinePrinter(paper int, out io.Writer) *Printer {
	return &Printer{paper: paper, out: out}
}

func (p *Printer) AvailablePaper() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paper
}

func (p *Printer) PrintReceipt(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	length := len(text)
	if length > p.paper {
		return fmt.Errorf("%w: paper in printer %d, receipt needs %d", domain.ErrInsufficientPrinterStock, p.paper, length)
	}
	if p.out != nil {
		if _, err := fmt.Fprintln(p.out, text); err != nil {
			return fmt.Errorf("write receipt: %w", err)
		}
	}
	p.paper -= length
	p.printed = append(p.printed, text)
	return nil
}

// Refill 補紙
func (p *Printer) Refill(paper int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paper += paper
}

// Printed 已印出的收據
func (p *Printer) Printed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.printed))
	copy(out, p.printed)
	return out
}

var _ usecase.Printer = (*Printer)(nil)
