package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "rawmat/internal/log"
	"rawmat/models"
)

// Component is one (ingredient, percentage) pair submitted for a formula.
type Component struct {
	Ingredient string
	Percentage decimal.Decimal
}

// FormulaStore holds products and their component lists. Nothing here ever
// reads or writes production records.
type FormulaStore struct {
	inv *Inventory
}

// Create stores a new formula after validating its components against the
// current ingredient list.
func (s *FormulaStore) Create(ctx context.Context, name string, components []Component) (*models.Formula, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	formula := models.Formula{Name: name, NameKey: models.NameKey(name)}
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Formula{}).Where("name_key = ?", formula.NameKey).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("formula %q: %w", name, ErrDuplicate)
		}

		resolved, err := resolveComponents(tx, components)
		if err != nil {
			return err
		}
		formula.Components = resolved
		return tx.Create(&formula).Error
	})
	if err != nil {
		return nil, settle("create formula", err)
	}

	applog.Debug(ctx, "formula created", "name", formula.Name, "components", len(formula.Components))
	return &formula, nil
}

// Edit replaces the component list of an existing formula wholesale.
// Production records keep their own snapshots and are not touched.
func (s *FormulaStore) Edit(ctx context.Context, name string, components []Component) (*models.Formula, error) {
	var formula *models.Formula
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findFormula(tx, name)
		if err != nil {
			return err
		}

		resolved, err := resolveComponents(tx, components)
		if err != nil {
			return err
		}

		if err := tx.Where("formula_id = ?", found.ID).Delete(&models.FormulaComponent{}).Error; err != nil {
			return err
		}
		for i := range resolved {
			resolved[i].FormulaID = found.ID
		}
		if err := tx.Create(&resolved).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Formula{}).Where("id = ?", found.ID).Update("updated_at", s.inv.now().UTC()).Error; err != nil {
			return err
		}

		found.Components = resolved
		formula = found
		return nil
	})
	if err != nil {
		return nil, settle("edit formula", err)
	}

	applog.Debug(ctx, "formula edited", "name", formula.Name, "components", len(formula.Components))
	return formula, nil
}

// Get returns the formula with its components in order.
func (s *FormulaStore) Get(ctx context.Context, name string) (*models.Formula, error) {
	formula, err := findFormula(s.inv.read(ctx), name)
	if err != nil {
		return nil, settle("get formula", err)
	}
	return formula, nil
}

// List returns all formulas ordered by name ignoring case.
func (s *FormulaStore) List(ctx context.Context) ([]models.Formula, error) {
	var formulas []models.Formula
	err := s.inv.read(ctx).
		Preload("Components", orderComponents).
		Order("name_key asc, id asc").
		Find(&formulas).Error
	if err != nil {
		return nil, storageError("list formulas", err)
	}
	return formulas, nil
}

// Delete removes a formula and its components. Production records made from it
// keep their snapshots and stay reversible.
func (s *FormulaStore) Delete(ctx context.Context, name string) error {
	err := s.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findFormula(tx, name)
		if err != nil {
			return err
		}
		if err := tx.Where("formula_id = ?", found.ID).Delete(&models.FormulaComponent{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Formula{}, found.ID).Error
	})
	if err != nil {
		return settle("delete formula", err)
	}

	applog.Debug(ctx, "formula deleted", "name", name)
	return nil
}

func orderComponents(tx *gorm.DB) *gorm.DB {
	return tx.Order("position asc, id asc")
}

func findFormula(tx *gorm.DB, name string) (*models.Formula, error) {
	key := models.NameKey(name)
	if key == "" {
		return nil, ErrEmptyName
	}
	var formula models.Formula
	if err := tx.Preload("Components", orderComponents).Where("name_key = ?", key).First(&formula).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%q: %w", strings.TrimSpace(name), ErrFormulaNotFound)
		}
		return nil, err
	}
	return &formula, nil
}

// resolveComponents validates a component list and returns it as rows, with
// ingredient names taken from the stock table. Existence is checked only here,
// at save time.
func resolveComponents(tx *gorm.DB, components []Component) ([]models.FormulaComponent, error) {
	if len(components) == 0 {
		return nil, ErrEmptyFormula
	}
	if len(components) > MaxComponents {
		return nil, fmt.Errorf("%d components: %w", len(components), ErrTooManyComponents)
	}

	seen := make(map[string]struct{}, len(components))
	resolved := make([]models.FormulaComponent, 0, len(components))
	for i, component := range components {
		key := models.NameKey(component.Ingredient)
		if key == "" {
			return nil, fmt.Errorf("component %d: %w", i+1, ErrEmptyName)
		}
		if !component.Percentage.IsPositive() {
			return nil, fmt.Errorf("component %q: %w: percentage must be greater than zero", component.Ingredient, ErrValidation)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("component %q: %w", component.Ingredient, ErrDuplicateComponent)
		}
		seen[key] = struct{}{}

		ingredient, err := findIngredient(tx, component.Ingredient)
		if err != nil {
			if errors.Is(err, ErrIngredientNotFound) {
				return nil, fmt.Errorf("%q: %w", strings.TrimSpace(component.Ingredient), ErrUnknownIngredient)
			}
			return nil, err
		}

		resolved = append(resolved, models.FormulaComponent{
			Position:       i + 1,
			IngredientName: ingredient.Name,
			Percentage:     component.Percentage,
		})
	}
	return resolved, nil
}

// formulasReferencing lists formulas whose current definition uses the
// ingredient with the given key.
func formulasReferencing(tx *gorm.DB, key string) ([]string, error) {
	var formulas []models.Formula
	if err := tx.Preload("Components").Find(&formulas).Error; err != nil {
		return nil, err
	}

	var names []string
	for _, formula := range formulas {
		for _, component := range formula.Components {
			if models.NameKey(component.IngredientName) == key {
				names = append(names, formula.Name)
				break
			}
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return models.NameKey(names[i]) < models.NameKey(names[j])
	})
	return names, nil
}
