package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	applog "rawmat/internal/log"
	"rawmat/models"
)

// ProductionInput describes one production run.
type ProductionInput struct {
	Product     string
	BatchSizeKg decimal.Decimal
	// ProducedAt defaults to the current time when zero.
	ProducedAt  time.Time
	BatchNumber string
}

// Requirement is the dry-run view of one formula component for a batch.
type Requirement struct {
	Ingredient string
	Percentage decimal.Decimal
	Required   decimal.Decimal
	Available  decimal.Decimal
	// Missing is set when the ingredient has been deleted from stock.
	Missing    bool
	Sufficient bool
}

// Plan is the result of resolving a formula against a batch size and the
// current stock. It is what Apply debits and what a record freezes.
type Plan struct {
	Product      string
	BatchSizeKg  decimal.Decimal
	Requirements []Requirement
}

// Sufficient reports whether every ingredient can be covered.
func (p *Plan) Sufficient() bool {
	return len(p.Shortages()) == 0
}

// Shortages lists each short ingredient once, with its total requirement.
// A deleted ingredient is always short, even when its requirement rounds to 0.
func (p *Plan) Shortages() []Shortage {
	var shortages []Shortage
	for _, total := range p.totals() {
		if total.missing || total.required.GreaterThan(total.available) {
			shortages = append(shortages, Shortage{
				Ingredient: total.name,
				Required:   total.required,
				Available:  total.available,
				Shortfall:  total.required.Sub(total.available),
				Missing:    total.missing,
			})
		}
	}
	return shortages
}

type ingredientTotal struct {
	name      string
	required  decimal.Decimal
	available decimal.Decimal
	missing   bool
}

// totals folds requirements per ingredient, in first-appearance order.
func (p *Plan) totals() []*ingredientTotal {
	index := make(map[string]*ingredientTotal, len(p.Requirements))
	ordered := make([]*ingredientTotal, 0, len(p.Requirements))
	for _, req := range p.Requirements {
		key := models.NameKey(req.Ingredient)
		total, ok := index[key]
		if !ok {
			total = &ingredientTotal{
				name:      req.Ingredient,
				required:  decimal.Zero,
				available: req.Available,
				missing:   req.Missing,
			}
			index[key] = total
			ordered = append(ordered, total)
		}
		total.required = total.required.Add(req.Required)
	}
	return ordered
}

func (p *Plan) snapshot() []models.ConsumedIngredient {
	consumed := make([]models.ConsumedIngredient, 0, len(p.Requirements))
	for i, req := range p.Requirements {
		consumed = append(consumed, models.ConsumedIngredient{
			Position:       i + 1,
			IngredientName: req.Ingredient,
			Percentage:     req.Percentage,
			QuantityKg:     req.Required,
		})
	}
	return consumed
}

// Ledger turns formulas into committed, reversible stock deductions.
type Ledger struct {
	inv *Inventory
}

// Plan computes the requirements of a batch without touching stock.
func (l *Ledger) Plan(ctx context.Context, product string, batchSizeKg decimal.Decimal) (*Plan, error) {
	db := l.inv.read(ctx)
	formula, err := findFormula(db, product)
	if err != nil {
		return nil, settle("plan production", err)
	}
	batch, err := l.batchSize(batchSizeKg)
	if err != nil {
		return nil, err
	}
	plan, err := buildPlan(db, l.inv.policy, formula, batch)
	if err != nil {
		return nil, settle("plan production", err)
	}
	return plan, nil
}

// Apply debits every ingredient of the product's formula scaled to the batch
// size and records a frozen snapshot of the deduction. If any ingredient is
// short nothing is debited and an *InsufficientStockError lists all of them.
func (l *Ledger) Apply(ctx context.Context, in ProductionInput) (*models.ProductionRecord, error) {
	var record models.ProductionRecord
	err := l.inv.write(ctx, func(tx *gorm.DB) error {
		formula, err := findFormula(tx, in.Product)
		if err != nil {
			return err
		}
		batch, err := l.batchSize(in.BatchSizeKg)
		if err != nil {
			return err
		}

		plan, err := buildPlan(forUpdate(tx), l.inv.policy, formula, batch)
		if err != nil {
			return err
		}
		if shortages := plan.Shortages(); len(shortages) > 0 {
			return &InsufficientStockError{Product: formula.Name, Shortages: shortages}
		}

		for _, total := range plan.totals() {
			if err := debit(tx, l.inv.policy, total.name, total.required); err != nil {
				return err
			}
		}

		producedAt := in.ProducedAt
		if producedAt.IsZero() {
			producedAt = l.inv.now().UTC()
		}
		record = models.ProductionRecord{
			ProductName: formula.Name,
			BatchSizeKg: batch,
			ProducedAt:  producedAt,
			BatchNumber: strings.TrimSpace(in.BatchNumber),
			Consumed:    plan.snapshot(),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		var shortage *InsufficientStockError
		if errors.As(err, &shortage) {
			applog.Info(ctx, "production refused", "product", in.Product, "batchKg", in.BatchSizeKg.String(), "shortages", len(shortage.Shortages))
		}
		return nil, settle("apply production", err)
	}

	applog.Info(ctx, "production applied",
		"id", record.ID,
		"product", record.ProductName,
		"batchKg", record.BatchSizeKg.String(),
		"batchNumber", record.BatchNumber,
	)
	return &record, nil
}

// Reverse credits back exactly what the record consumed, using its frozen
// snapshot rather than the current formula, and removes the record from
// listings. Ingredients deleted since the run are recreated with
// UnknownSupplier so the stock correction always lands.
func (l *Ledger) Reverse(ctx context.Context, id uint) (*models.ProductionRecord, error) {
	var record models.ProductionRecord
	var recreated []string
	err := l.inv.write(ctx, func(tx *gorm.DB) error {
		found, err := findRecord(tx, id)
		if err != nil {
			return err
		}
		for _, line := range found.Consumed {
			created, err := credit(tx, l.inv.policy, line.IngredientName, line.QuantityKg)
			if err != nil {
				return err
			}
			if created {
				recreated = append(recreated, line.IngredientName)
			}
		}
		if err := tx.Delete(&models.ProductionRecord{}, found.ID).Error; err != nil {
			return err
		}
		record = *found
		return nil
	})
	if err != nil {
		return nil, settle("reverse production", err)
	}

	if len(recreated) > 0 {
		applog.Warn(ctx, "reversal recreated deleted ingredients", "id", id, "ingredients", strings.Join(recreated, ","))
	}
	applog.Info(ctx, "production reversed", "id", id, "product", record.ProductName, "batchKg", record.BatchSizeKg.String())
	return &record, nil
}

// Delete is the user-facing "delete production" action: the record is
// reversed and disappears from List.
func (l *Ledger) Delete(ctx context.Context, id uint) (*models.ProductionRecord, error) {
	return l.Reverse(ctx, id)
}

// Get returns a live production record with its snapshot.
func (l *Ledger) Get(ctx context.Context, id uint) (*models.ProductionRecord, error) {
	record, err := findRecord(l.inv.read(ctx), id)
	if err != nil {
		return nil, settle("get production", err)
	}
	return record, nil
}

// List returns live production records, newest production first.
func (l *Ledger) List(ctx context.Context) ([]models.ProductionRecord, error) {
	var records []models.ProductionRecord
	err := l.inv.read(ctx).
		Preload("Consumed", orderConsumed).
		Order("produced_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, storageError("list production", err)
	}
	return records, nil
}

func (l *Ledger) batchSize(value decimal.Decimal) (decimal.Decimal, error) {
	batch := l.inv.policy.round(value)
	if !batch.IsPositive() {
		return decimal.Zero, fmt.Errorf("batch size %s: %w", value, ErrInvalidAmount)
	}
	return batch, nil
}

func buildPlan(tx *gorm.DB, policy quantityPolicy, formula *models.Formula, batch decimal.Decimal) (*Plan, error) {
	plan := &Plan{
		Product:      formula.Name,
		BatchSizeKg:  batch,
		Requirements: make([]Requirement, 0, len(formula.Components)),
	}

	stock := make(map[string]*models.Ingredient, len(formula.Components))
	for _, component := range formula.Components {
		key := models.NameKey(component.IngredientName)
		ingredient, seen := stock[key]
		if !seen {
			found, err := findIngredient(tx, component.IngredientName)
			if err != nil && !errors.Is(err, ErrIngredientNotFound) {
				return nil, err
			}
			ingredient = found
			stock[key] = found
		}

		req := Requirement{
			Ingredient: component.IngredientName,
			Percentage: component.Percentage,
			Required:   policy.required(batch, component.Percentage),
			Available:  decimal.Zero,
			Missing:    ingredient == nil,
		}
		if ingredient != nil {
			req.Ingredient = ingredient.Name
			req.Available = ingredient.QuantityKg
		}
		plan.Requirements = append(plan.Requirements, req)
	}

	short := make(map[string]bool)
	for _, s := range plan.Shortages() {
		short[models.NameKey(s.Ingredient)] = true
	}
	for i := range plan.Requirements {
		plan.Requirements[i].Sufficient = !short[models.NameKey(plan.Requirements[i].Ingredient)]
	}
	return plan, nil
}

func orderConsumed(tx *gorm.DB) *gorm.DB {
	return tx.Order("position asc, id asc")
}

func findRecord(tx *gorm.DB, id uint) (*models.ProductionRecord, error) {
	var record models.ProductionRecord
	if err := tx.Preload("Consumed", orderConsumed).First(&record, id).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("#%d: %w", id, ErrRecordNotFound)
		}
		return nil, err
	}
	return &record, nil
}
