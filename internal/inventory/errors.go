package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Error categories. Every error returned by the stores matches exactly one of
// them through errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate name")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStorage           = errors.New("storage error")
)

var (
	ErrEmptyName          = fmt.Errorf("%w: name is required", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrNegativeQuantity   = fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	ErrEmptyFormula       = fmt.Errorf("%w: formula needs at least one component", ErrValidation)
	ErrTooManyComponents  = fmt.Errorf("%w: formula has more than %d components", ErrValidation, MaxComponents)
	ErrDuplicateComponent = fmt.Errorf("%w: ingredient listed twice in formula", ErrValidation)

	ErrIngredientNotFound = fmt.Errorf("ingredient %w", ErrNotFound)
	ErrUnknownIngredient  = fmt.Errorf("formula references an unknown ingredient: %w", ErrNotFound)
	ErrFormulaNotFound    = fmt.Errorf("formula %w", ErrNotFound)
	ErrRecordNotFound     = fmt.Errorf("production record %w", ErrNotFound)
)

// Shortage describes one ingredient that cannot cover a production run.
type Shortage struct {
	Ingredient string
	Required   decimal.Decimal
	Available  decimal.Decimal
	Shortfall  decimal.Decimal
	// Missing is set when the ingredient no longer exists in stock.
	Missing bool
}

// InsufficientStockError lists every ingredient a production run would overdraw.
type InsufficientStockError struct {
	Product   string
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s needs %s kg, has %s kg (short %s kg)",
			s.Ingredient, s.Required, s.Available, s.Shortfall))
	}
	if e.Product == "" {
		return fmt.Sprintf("insufficient stock: %s", strings.Join(parts, "; "))
	}
	return fmt.Sprintf("insufficient stock for %s: %s", e.Product, strings.Join(parts, "; "))
}

// Is matches ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// settle passes domain errors through untouched and marks everything else,
// including driver errors surfacing from a transaction, as a storage failure.
func settle(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrStorage):
		return err
	default:
		return storageError(op, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
