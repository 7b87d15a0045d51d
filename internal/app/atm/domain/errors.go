package domain

import (
	"errors"
	"fmt"
)

// 控制器錯誤
var (
	// ErrInvalidState 目前狀態不允許此操作
	ErrInvalidState = errors.New("atm status is invalid")

	// ErrInvalidFormat 卡號或 PIN 格式錯誤
	ErrInvalidFormat = errors.New("invalid number format")

	// ErrInvalidCardNumber 卡號格式錯誤
	ErrInvalidCardNumber = fmt.Errorf("%w: card number", ErrInvalidFormat)

	// ErrInvalidPinNumber PIN 格式錯誤
	ErrInvalidPinNumber = fmt.Errorf("%w: pin number", ErrInvalidFormat)

	// ErrUnregisteredCard 卡片未註冊
	ErrUnregisteredCard = errors.New("card number is not registered")

	// ErrIncorrectPin PIN 錯誤
	ErrIncorrectPin = errors.New("pin number is incorrect")

	// ErrNoAccounts 卡片沒有任何帳戶
	ErrNoAccounts = errors.New("no account exists")

	// ErrInvalidIndex 帳戶索引超出範圍
	ErrInvalidIndex = errors.New("invalid account index")

	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientAccountFunds 帳戶餘額不足
	ErrInsufficientAccountFunds = errors.New("not enough money in account")

	// ErrInsufficientCashBinFunds 鈔箱現金不足
	ErrInsufficientCashBinFunds = errors.New("not enough money in cash bin")

	// ErrBackendUpdateFailed 銀行端更新帳戶失敗
	ErrBackendUpdateFailed = errors.New("bank update account failed")

	// ErrBackendUnavailable 銀行端無法連線或熔斷中
	ErrBackendUnavailable = errors.New("bank backend unavailable")

	// ErrInvalidAccountData 帳戶資料不完整
	ErrInvalidAccountData = errors.New("invalid account info")

	// ErrInsufficientPrinterStock 收據紙不足
	ErrInsufficientPrinterStock = errors.New("not enough paper in printer")
)

// 銀行端錯誤
var (
	// ErrInvalidToken token 無效或已過期
	ErrInvalidToken = errors.New("invalid session token")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountUnavailable 帳戶停用
	ErrAccountUnavailable = errors.New("account unavailable")

	// ErrInsufficientBalance 異動後餘額會小於 0
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCardAlreadyExists 卡片已存在
	ErrCardAlreadyExists = errors.New("card already exists")

	// ErrTransactionAlreadyProcessed 交易已處理
	ErrTransactionAlreadyProcessed = errors.New("transaction already processed")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)

// IsBusinessRejection 判斷是否為銀行端的業務拒絕 (而非連線/系統錯誤)
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAccountUnavailable) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrTransactionAlreadyProcessed)
}
