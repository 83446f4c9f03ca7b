package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "rawmat/internal/log"
	"rawmat/models"
)

// UnknownSupplier is recorded for ingredients recreated by a reversal.
const UnknownSupplier = "unknown"

// IngredientStore holds stock quantities and supplier metadata.
type IngredientStore struct {
	inv *Inventory
}

// Create inserts a new ingredient. Names are unique ignoring case.
func (s *IngredientStore) Create(ctx context.Context, name string, quantity decimal.Decimal, supplier string) (*models.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if quantity.IsNegative() {
		return nil, ErrNegativeQuantity
	}

	ingredient := models.Ingredient{
		Name:       name,
		NameKey:    models.NameKey(name),
		QuantityKg: s.inv.policy.round(quantity),
		Supplier:   strings.TrimSpace(supplier),
	}

	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Ingredient{}).Where("name_key = ?", ingredient.NameKey).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("ingredient %q: %w", name, ErrDuplicate)
		}
		return tx.Create(&ingredient).Error
	})
	if err != nil {
		return nil, settle("create ingredient", err)
	}

	applog.Debug(ctx, "ingredient created", "name", ingredient.Name, "quantityKg", ingredient.QuantityKg.String())
	return &ingredient, nil
}

// Restock adds delta kilograms to an ingredient. delta must be positive.
func (s *IngredientStore) Restock(ctx context.Context, name string, delta decimal.Decimal) (*models.Ingredient, error) {
	delta = s.inv.policy.round(delta)
	if !delta.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var ingredient *models.Ingredient
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findIngredient(forUpdate(tx), name)
		if err != nil {
			return err
		}
		updated := s.inv.policy.round(found.QuantityKg.Add(delta))
		if err := setQuantity(tx, found, updated); err != nil {
			return err
		}
		ingredient = found
		return nil
	})
	if err != nil {
		return nil, settle("restock ingredient", err)
	}

	applog.Debug(ctx, "ingredient restocked", "name", ingredient.Name, "deltaKg", delta.String(), "quantityKg", ingredient.QuantityKg.String())
	return ingredient, nil
}

// Adjust overwrites the stock quantity and supplier of an ingredient, the
// correction path for stock counts that disagree with the books.
func (s *IngredientStore) Adjust(ctx context.Context, name string, quantity decimal.Decimal, supplier string) (*models.Ingredient, error) {
	if quantity.IsNegative() {
		return nil, ErrNegativeQuantity
	}
	quantity = s.inv.policy.round(quantity)

	var ingredient *models.Ingredient
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findIngredient(forUpdate(tx), name)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"quantity_kg": quantity,
			"supplier":    strings.TrimSpace(supplier),
		}
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", found.ID).Updates(updates).Error; err != nil {
			return err
		}
		found.QuantityKg = quantity
		found.Supplier = strings.TrimSpace(supplier)
		ingredient = found
		return nil
	})
	if err != nil {
		return nil, settle("adjust ingredient", err)
	}

	applog.Debug(ctx, "ingredient adjusted", "name", ingredient.Name, "quantityKg", quantity.String())
	return ingredient, nil
}

// Debit removes amount kilograms. It refuses to take stock below zero.
func (s *IngredientStore) Debit(ctx context.Context, name string, amount decimal.Decimal) error {
	amount = s.inv.policy.round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		return debit(tx, s.inv.policy, name, amount)
	})
	return settle("debit ingredient", err)
}

// Credit adds amount kilograms with no upper bound.
func (s *IngredientStore) Credit(ctx context.Context, name string, amount decimal.Decimal) error {
	amount = s.inv.policy.round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findIngredient(forUpdate(tx), name)
		if err != nil {
			return err
		}
		return setQuantity(tx, found, s.inv.policy.round(found.QuantityKg.Add(amount)))
	})
	return settle("credit ingredient", err)
}

// Delete removes an ingredient. Formulas that reference it are left alone;
// their names are returned so the caller can warn about them.
func (s *IngredientStore) Delete(ctx context.Context, name string) ([]string, error) {
	var referencing []string
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findIngredient(tx, name)
		if err != nil {
			return err
		}
		referencing, err = formulasReferencing(tx, found.NameKey)
		if err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Ingredient{}, found.ID).Error
	})
	if err != nil {
		return nil, settle("delete ingredient", err)
	}

	if len(referencing) > 0 {
		applog.Warn(ctx, "deleted ingredient still referenced by formulas", "name", name, "formulas", strings.Join(referencing, ","))
	} else {
		applog.Debug(ctx, "ingredient deleted", "name", name)
	}
	return referencing, nil
}

// Get returns the ingredient with the given name, ignoring case.
func (s *IngredientStore) Get(ctx context.Context, name string) (*models.Ingredient, error) {
	ingredient, err := findIngredient(s.inv.read(ctx), name)
	if err != nil {
		return nil, settle("get ingredient", err)
	}
	return ingredient, nil
}

// List returns all ingredients ordered by name ignoring case, then by
// insertion order.
func (s *IngredientStore) List(ctx context.Context) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if err := s.inv.read(ctx).Order("name_key asc, id asc").Find(&ingredients).Error; err != nil {
		return nil, storageError("list ingredients", err)
	}
	return ingredients, nil
}

// Search returns ingredients whose name contains query, ignoring case, in
// List order. An empty query returns everything.
func (s *IngredientStore) Search(ctx context.Context, query string) ([]models.Ingredient, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := models.NameKey(query)
	if needle == "" {
		return all, nil
	}
	matches := make([]models.Ingredient, 0, len(all))
	for _, ingredient := range all {
		if strings.Contains(ingredient.NameKey, needle) {
			matches = append(matches, ingredient)
		}
	}
	return matches, nil
}

// Sufficient reports whether the ingredient holds at least amount kilograms.
// A missing ingredient is never sufficient.
func (s *IngredientStore) Sufficient(ctx context.Context, name string, amount decimal.Decimal) (bool, error) {
	ingredient, err := findIngredient(s.inv.read(ctx), name)
	if err != nil {
		if errors.Is(err, ErrIngredientNotFound) {
			return false, nil
		}
		return false, settle("check ingredient stock", err)
	}
	return ingredient.QuantityKg.GreaterThanOrEqual(s.inv.policy.round(amount)), nil
}

func findIngredient(tx *gorm.DB, name string) (*models.Ingredient, error) {
	key := models.NameKey(name)
	if key == "" {
		return nil, ErrEmptyName
	}
	var ingredient models.Ingredient
	if err := tx.Where("name_key = ?", key).First(&ingredient).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%q: %w", strings.TrimSpace(name), ErrIngredientNotFound)
		}
		return nil, err
	}
	return &ingredient, nil
}

func setQuantity(tx *gorm.DB, ingredient *models.Ingredient, quantity decimal.Decimal) error {
	if err := tx.Model(&models.Ingredient{}).Where("id = ?", ingredient.ID).Update("quantity_kg", quantity).Error; err != nil {
		return err
	}
	ingredient.QuantityKg = quantity
	return nil
}

func debit(tx *gorm.DB, policy quantityPolicy, name string, amount decimal.Decimal) error {
	found, err := findIngredient(forUpdate(tx), name)
	if err != nil {
		return err
	}
	if amount.GreaterThan(found.QuantityKg) {
		return &InsufficientStockError{
			Shortages: []Shortage{{
				Ingredient: found.Name,
				Required:   amount,
				Available:  found.QuantityKg,
				Shortfall:  amount.Sub(found.QuantityKg),
			}},
		}
	}
	return setQuantity(tx, found, policy.round(found.QuantityKg.Sub(amount)))
}

// credit adds amount to an ingredient, recreating it with UnknownSupplier when
// it has been deleted. It reports whether the ingredient was recreated.
func credit(tx *gorm.DB, policy quantityPolicy, name string, amount decimal.Decimal) (bool, error) {
	found, err := findIngredient(forUpdate(tx), name)
	if err != nil {
		if !errors.Is(err, ErrIngredientNotFound) {
			return false, err
		}
		recreated := models.Ingredient{
			Name:       strings.TrimSpace(name),
			NameKey:    models.NameKey(name),
			QuantityKg: policy.round(amount),
			Supplier:   UnknownSupplier,
		}
		return true, tx.Create(&recreated).Error
	}
	return false, setQuantity(tx, found, policy.round(found.QuantityKg.Add(amount)))
}
