package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPrecision is the number of decimal places kept for kilograms.
	DefaultPrecision int32 = 6
	// MaxComponents caps the number of ingredients in one formula.
	MaxComponents = 30
)

// quantityPolicy is the single rounding rule applied to every stored quantity,
// so that a debit and the matching credit cancel exactly.
type quantityPolicy struct {
	places int32
}

func (p quantityPolicy) round(value decimal.Decimal) decimal.Decimal {
	return value.Round(p.places)
}

// required scales a percentage against a batch size: batch * pct / 100.
func (p quantityPolicy) required(batch, percentage decimal.Decimal) decimal.Decimal {
	return p.round(batch.Mul(percentage).Shift(-2))
}

// ParseKg parses a user-supplied quantity such as "12.5" or "12.5 kg".
func ParseKg(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	lower := strings.ToLower(trimmed)
	if strings.HasSuffix(lower, "kg") {
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-2])
	}
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: quantity is required", ErrValidation)
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid quantity %q", ErrValidation, value)
	}
	return parsed, nil
}

// ParsePercentage parses "50" or "50%".
func ParsePercentage(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(value), "%")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: percentage is required", ErrValidation)
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid percentage %q", ErrValidation, value)
	}
	return parsed, nil
}
