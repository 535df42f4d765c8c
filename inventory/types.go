/*
Package inventory provides the core stock management domain.

PURPOSE:
  This package contains the entities, the record store contract, and the
  stock ledger - the one piece of this system with real invariants. Every
  change to a product's stock quantity flows through the ledger as a signed
  delta applied together with the purchase or sale record that caused it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: catalog entry carrying the guarded StockQuantity counter
  - Purchase/Sale: immutable stock movement records (create/delete only)
  - Category/Supplier/Expense: plain CRUD entities with no stock effect
  - DateRange: inclusive calendar-date window for report filtering

DESIGN PRINCIPLES:
  1. Precision: monetary values use decimal.Decimal, never float64.
     Rounding happens at the API boundary only.
  2. Weak references: category_id/supplier_id/product_id may point at
     deleted rows. They are resolved to optional display names at read
     time and never enforced as hard constraints.
  3. Immutability: purchases and sales are never updated, only deleted.
     Deletion reverses the original stock delta.

SEE ALSO:
  - ledger.go: stock mutation rules
  - store.go: persistence contract
  - errors.go: error taxonomy
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG ENTITIES
// =============================================================================

// Category groups products. Deleting a category never cascades; products
// keep a dangling reference that resolves to a null name on read.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Supplier is a purchase source. Same dangling-reference-on-delete
// behavior as Category.
type Supplier struct {
	ID            int64
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	CreatedAt     time.Time
}

// Product is a catalog entry. StockQuantity is owned by the Ledger: no
// other code path may write it. It must never go negative through a sale.
type Product struct {
	ID            int64
	Name          string
	SKU           string
	CategoryID    *int64 // weak reference, nil when uncategorized
	Description   string
	UnitPrice     decimal.Decimal
	StockQuantity int64
	ReorderLevel  int64
	CreatedAt     time.Time

	// CategoryName is resolved at read time from the weak reference.
	// Empty when the category was deleted or never set.
	CategoryName string
}

// Deficit is how far below the reorder threshold the product sits.
// Negative values mean the product is short; the low-stock report
// orders by this ascending.
func (p Product) Deficit() int64 {
	return p.StockQuantity - p.ReorderLevel
}

// =============================================================================
// STOCK MOVEMENT RECORDS
// =============================================================================

// Purchase records incoming stock. Immutable once created except via
// delete, which reverses the stock increment.
type Purchase struct {
	ID           int64
	SupplierID   *int64 // weak reference, nil for ad-hoc purchases
	ProductID    int64
	Quantity     int64
	UnitCost     decimal.Decimal
	TotalCost    decimal.Decimal // Quantity * UnitCost, fixed at creation
	PurchaseDate time.Time
	Notes        string

	// Resolved display names (may be empty for dangling references).
	ProductName  string
	SupplierName string
}

// Sale records outgoing stock. Immutable once created except via delete,
// which reverses the stock decrement.
type Sale struct {
	ID           int64
	ProductID    int64
	Quantity     int64
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal // Quantity * UnitPrice, fixed at creation
	SaleDate     time.Time
	CustomerName string
	Notes        string

	ProductName string
}

// Expense is fully independent of stock. Category here is free text, not
// a Category reference.
type Expense struct {
	ID          int64
	Category    string
	Description string
	Amount      decimal.Decimal
	ExpenseDate time.Time
	Notes       string
}

// =============================================================================
// DATE RANGE
// =============================================================================

// DateRange is an inclusive pair of calendar dates. Filtering compares the
// entity's own date column truncated to the day, so a record at 23:59 on
// the end date is still inside the range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from calendar dates, normalizing both ends
// to midnight UTC.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: day(start), End: day(end)}
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Valid reports whether the range is well-formed (end not before start).
func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
