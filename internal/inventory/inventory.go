// Package inventory holds the raw-material stores and the production ledger.
//
// An Inventory is built once per process around a single *gorm.DB. Every
// mutation runs in one database transaction under the Inventory's write lock,
// which gives apply and reverse the all-or-nothing behaviour they need without
// any further coordination.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options tune an Inventory. The zero value is usable.
type Options struct {
	// Precision is the number of decimal places kept for kilograms.
	// Zero selects DefaultPrecision.
	Precision int32
	// Now supplies the production timestamp when the caller leaves it blank.
	Now func() time.Time
}

// Inventory owns the ingredient store, the formula store and the production
// ledger, all sharing one database handle and one writer lock.
type Inventory struct {
	db     *gorm.DB
	mu     sync.Mutex
	policy quantityPolicy
	now    func() time.Time

	Ingredients *IngredientStore
	Formulas    *FormulaStore
	Production  *Ledger
}

// New wires the stores around db.
func New(db *gorm.DB, opts Options) (*Inventory, error) {
	if db == nil {
		return nil, fmt.Errorf("inventory: database handle is nil")
	}

	precision := opts.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	inv := &Inventory{
		db:     db,
		policy: quantityPolicy{places: precision},
		now:    now,
	}
	inv.Ingredients = &IngredientStore{inv: inv}
	inv.Formulas = &FormulaStore{inv: inv}
	inv.Production = &Ledger{inv: inv}
	return inv, nil
}

// Precision reports the number of decimal places kept for kilograms.
func (inv *Inventory) Precision() int32 {
	return inv.policy.places
}

// DB exposes the underlying handle for maintenance tasks such as backups.
func (inv *Inventory) DB() *gorm.DB {
	return inv.db
}

// write runs fn in a transaction while holding the writer lock.
func (inv *Inventory) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.db.WithContext(ctx).Transaction(fn)
}

func (inv *Inventory) read(ctx context.Context) *gorm.DB {
	return inv.db.WithContext(ctx)
}

// forUpdate adds a row lock on dialects that support it. sqlite already
// serialises writers, so it is left untouched there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
