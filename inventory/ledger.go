/*
ledger.go - Stock-consistency rules

PURPOSE:
  The Ledger is the sole mutator of Product.StockQuantity. Purchases and
  sales are the only events that move stock, and every mutation is
  expressed as "apply signed delta atomically with the record it came
  from".

CRITICAL INVARIANTS:
  1. For every product: stock == opening balance
       + sum of purchase quantities alive
       - sum of sale quantities alive
     at every moment observable between requests.
  2. No sale commits if it would drive stock below zero. The check and
     the decrement are one atomic unit per product; concurrent sales
     against the same product behave as if serialized.
  3. Record + stock adjustment commit or fail together. Partial
     application is data corruption, not a degraded mode.

GUARDING:
  Only the sale-creation path is guarded. Deleting a purchase can
  legitimately drive stock negative when sales already consumed that
  inventory - removing history restores prior physical reality and is
  accepted as a historical correction.

ERROR CONTRACT:
  Nothing here retries. A failed compound write leaves the store exactly
  as before the call; retrying is the caller's decision.

SEE ALSO:
  - store.go: the transactional contract this leans on
  - store/sqlite/sqlite.go: the conditional-decrement implementation
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUTS
// =============================================================================

// PurchaseInput describes a purchase to record. A zero PurchaseDate
// defaults to the current time.
type PurchaseInput struct {
	SupplierID   *int64
	ProductID    int64
	Quantity     int64
	UnitCost     decimal.Decimal
	PurchaseDate time.Time
	Notes        string
}

// SaleInput describes a sale to record. A zero SaleDate defaults to the
// current time.
type SaleInput struct {
	ProductID    int64
	Quantity     int64
	UnitPrice    decimal.Decimal
	SaleDate     time.Time
	CustomerName string
	Notes        string
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger applies stock deltas atomically with the purchase/sale records
// they originate from, and rejects sales that would oversell.
type Ledger struct {
	store TxStore
	now   func() time.Time
}

// NewLedger creates a ledger over the given transactional store.
func NewLedger(store TxStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// RecordPurchase persists a purchase and increments the product's stock
// by its quantity, as one atomic unit. Fails with *NotFoundError when the
// product doesn't exist.
func (l *Ledger) RecordPurchase(ctx context.Context, in PurchaseInput) (*Purchase, error) {
	if err := validatePurchase(in); err != nil {
		return nil, err
	}

	purchase := &Purchase{
		SupplierID:   in.SupplierID,
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		UnitCost:     in.UnitCost,
		TotalCost:    in.UnitCost.Mul(decimal.NewFromInt(in.Quantity)),
		PurchaseDate: l.orNow(in.PurchaseDate),
		Notes:        in.Notes,
	}

	err := l.store.WithTx(ctx, func(s LedgerStore) error {
		product, err := s.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return &NotFoundError{Entity: "product", ID: in.ProductID}
		}
		if err := s.InsertPurchase(ctx, purchase); err != nil {
			return err
		}
		return s.AdjustStock(ctx, in.ProductID, in.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// RecordSale checks availability, persists the sale, and decrements the
// product's stock, all as one atomic unit per product. Fails with
// *InsufficientStockError when quantity exceeds available stock; a
// missing product counts as zero stock and yields the same error.
func (l *Ledger) RecordSale(ctx context.Context, in SaleInput) (*Sale, error) {
	if err := validateSale(in); err != nil {
		return nil, err
	}

	sale := &Sale{
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		TotalPrice:   in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity)),
		SaleDate:     l.orNow(in.SaleDate),
		CustomerName: in.CustomerName,
		Notes:        in.Notes,
	}

	err := l.store.WithTx(ctx, func(s LedgerStore) error {
		// The conditional decrement is the race-free form of
		// check-then-write: it only applies when the result stays
		// non-negative, atomically.
		if err := s.DecrementStock(ctx, in.ProductID, in.Quantity); err != nil {
			return err
		}
		return s.InsertSale(ctx, sale)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// DeletePurchase removes the purchase and decrements the product's stock
// by the original quantity, reversing the increment. Unguarded: this may
// drive stock negative when the inventory was sold in the meantime.
func (l *Ledger) DeletePurchase(ctx context.Context, id int64) error {
	return l.store.WithTx(ctx, func(s LedgerStore) error {
		purchase, err := s.GetPurchase(ctx, id)
		if err != nil {
			return err
		}
		if purchase == nil {
			return &NotFoundError{Entity: "purchase", ID: id}
		}
		if err := s.DeletePurchaseRow(ctx, id); err != nil {
			return err
		}
		return s.AdjustStock(ctx, purchase.ProductID, -purchase.Quantity)
	})
}

// DeleteSale removes the sale and increments the product's stock by the
// original quantity, reversing the decrement.
func (l *Ledger) DeleteSale(ctx context.Context, id int64) error {
	return l.store.WithTx(ctx, func(s LedgerStore) error {
		sale, err := s.GetSale(ctx, id)
		if err != nil {
			return err
		}
		if sale == nil {
			return &NotFoundError{Entity: "sale", ID: id}
		}
		if err := s.DeleteSaleRow(ctx, id); err != nil {
			return err
		}
		return s.AdjustStock(ctx, sale.ProductID, sale.Quantity)
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

func validatePurchase(in PurchaseInput) error {
	if in.ProductID <= 0 {
		return &ValidationError{Field: "product_id", Message: "required"}
	}
	if in.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if in.UnitCost.IsNegative() {
		return &ValidationError{Field: "unit_cost", Message: "must not be negative"}
	}
	return nil
}

func validateSale(in SaleInput) error {
	if in.ProductID <= 0 {
		return &ValidationError{Field: "product_id", Message: "required"}
	}
	if in.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if in.UnitPrice.IsNegative() {
		return &ValidationError{Field: "unit_price", Message: "must not be negative"}
	}
	return nil
}

func (l *Ledger) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return l.now().UTC()
	}
	return t
}
