package enums

import "fmt"

// PaymentMode maps to the payment_mode_enum enum in Postgres. Only cash sales
// affect the expected drawer balance; the rest are summarized for reporting.
type PaymentMode string

const (
	PaymentModeCash    PaymentMode = "cash"
	PaymentModeCard    PaymentMode = "card"
	PaymentModeDigital PaymentMode = "digital"
	PaymentModeOther   PaymentMode = "other"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCard,
	PaymentModeDigital,
	PaymentModeOther,
}

// IsValid reports whether the value matches the canonical payment mode enum.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
