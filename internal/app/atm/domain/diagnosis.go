package domain

import "time"

// Diagnosis 機台狀態快照，供維運端查詢
type Diagnosis struct {
	State          MachineState
	CashAvailable  int64
	PaperAvailable int
	UpdatedAt      time.Time
}

// Serving 機台是否可以接受新卡片
func (d Diagnosis) Serving() bool {
	return d.State >= StateNoCard
}
