package domain

import "fmt"

// MachineState ATM 狀態，數值代表流程進度，可直接比較大小
type MachineState int

const (
	StateNeedMaintenance MachineState = -1
	StateInit            MachineState = 0
	StateNoCard          MachineState = 10
	StateCardIn          MachineState = 20
	StateRegisteredCard  MachineState = 21
	StateValidPin        MachineState = 30
	StateAccountsReady   MachineState = 40
	StateAccountSelected MachineState = 41
)

func (s MachineState) String() string {
	switch s {
	case StateNeedMaintenance:
		return "NEED_MAINTENANCE"
	case StateInit:
		return "INITIALIZING"
	case StateNoCard:
		return "NO_CARD_INSERTED"
	case StateCardIn:
		return "CARD_INSERTED"
	case StateRegisteredCard:
		return "REGISTERED_CARD"
	case StateValidPin:
		return "VALID_PIN"
	case StateAccountsReady:
		return "ACCOUNTS_READY"
	case StateAccountSelected:
		return "ACCOUNT_SELECTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Operation 控制器對外提供的操作
type Operation uint8

const (
	OpInsertCard Operation = iota + 1
	OpReadCardNumber
	OpValidatePin
	OpGetAccounts
	OpSelectAccount
	OpGetBalance
	OpDeposit
	OpWithdraw
)

func (op Operation) String() string {
	switch op {
	case OpInsertCard:
		return "InsertCard"
	case OpReadCardNumber:
		return "ReadCardNumber"
	case OpValidatePin:
		return "ValidatePin"
	case OpGetAccounts:
		return "GetAccounts"
	case OpSelectAccount:
		return "SelectAccount"
	case OpGetBalance:
		return "GetBalance"
	case OpDeposit:
		return "Deposit"
	case OpWithdraw:
		return "Withdraw"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(op))
	}
}

// requiredStates 每個操作所需的最低狀態
var requiredStates = map[Operation]MachineState{
	OpInsertCard:     StateNoCard,
	OpReadCardNumber: StateCardIn,
	OpValidatePin:    StateRegisteredCard,
	OpGetAccounts:    StateValidPin,
	OpSelectAccount:  StateAccountsReady,
	OpGetBalance:     StateAccountSelected,
	OpDeposit:        StateAccountSelected,
	OpWithdraw:       StateAccountSelected,
}

// RequiredState 回傳操作所需的最低狀態，未知操作一律視為無法執行
func RequiredState(op Operation) (MachineState, bool) {
	s, ok := requiredStates[op]
	return s, ok
}

// CheckState 檢查目前狀態是否允許執行該操作
func CheckState(op Operation, current MachineState) error {
	required, ok := RequiredState(op)
	if !ok {
		return fmt.Errorf("%w: unknown operation %s", ErrInvalidState, op)
	}
	if current < required {
		return fmt.Errorf("%w: %s requires %s, current %s", ErrInvalidState, op, required, current)
	}
	return nil
}
