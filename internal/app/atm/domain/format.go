package domain

import "strings"

// 預設卡號與 PIN 長度
const (
	DefaultCardNumberDigits = 8
	DefaultPinNumberDigits  = 4
)

// IsValidNumber 字串必須全為數字且長度剛好為 digits
func IsValidNumber(s string, digits int) bool {
	if digits <= 0 || len(s) != digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MaskCardNumber 只保留卡號末四碼，用於 log
func MaskCardNumber(card string) string {
	if len(card) <= 4 {
		return strings.Repeat("*", len(card))
	}
	return strings.Repeat("*", len(card)-4) + card[len(card)-4:]
}
