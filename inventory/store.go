/*
store.go - Persistence contract for the record store

PURPOSE:
  Defines the interface between domain logic and the database. The six
  entity tables live behind this contract; implementations exist for
  SQLite (store/sqlite) and memory (inventory/store).

STOCK OWNERSHIP:
  Product.StockQuantity is only reachable through AdjustStock and
  DecrementStock. Catalog writes (CreateProduct aside, which sets the
  opening balance) never touch it - UpdateProduct explicitly excludes the
  stock column so the ledger stays the sole mutator.

ATOMIC COMPOUND WRITES:
  TxStore.WithTx runs a function against a transaction-scoped LedgerStore.
  Either everything inside commits or nothing does. The ledger uses this
  for its record-write + stock-adjustment pairs; a failure between the two
  halves must leave the store exactly as before the call.

CONDITIONAL DECREMENT:
  DecrementStock is the guarded path: it applies the decrement only when
  the result stays non-negative, atomically with the check. A missing
  product reads as zero available. This is what makes concurrent sales
  against one product safe.

SEE ALSO:
  - ledger.go: the only caller of the stock primitives
  - store/sqlite/sqlite.go: production implementation
  - inventory/store/memory.go: in-memory implementation for tests
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER STORE - The subset available inside a transaction
// =============================================================================

// LedgerStore exposes the operations a compound ledger write needs.
// WithTx hands an implementation scoped to one database transaction.
type LedgerStore interface {
	// GetProduct returns the product or nil when absent.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// InsertPurchase persists a purchase row and fills p.ID.
	InsertPurchase(ctx context.Context, p *Purchase) error

	// InsertSale persists a sale row and fills s.ID.
	InsertSale(ctx context.Context, s *Sale) error

	// GetPurchase returns the purchase or nil when absent.
	GetPurchase(ctx context.Context, id int64) (*Purchase, error)

	// GetSale returns the sale or nil when absent.
	GetSale(ctx context.Context, id int64) (*Sale, error)

	// DeletePurchaseRow removes the row only. Stock reversal is the
	// ledger's job, inside the same transaction.
	DeletePurchaseRow(ctx context.Context, id int64) error

	// DeleteSaleRow removes the row only.
	DeleteSaleRow(ctx context.Context, id int64) error

	// AdjustStock applies a signed delta unconditionally. Used for
	// purchase increments and delete reversals; may go negative.
	AdjustStock(ctx context.Context, productID, delta int64) error

	// DecrementStock subtracts quantity only if the result stays
	// non-negative, as one atomic conditional update. Returns
	// *InsufficientStockError otherwise (missing product = zero stock).
	DecrementStock(ctx context.Context, productID, quantity int64) error
}

// =============================================================================
// STORE - Full record store
// =============================================================================

// Store is the full record store: catalog CRUD, movement history reads,
// and the report scans, on top of the ledger subset.
type Store interface {
	LedgerStore

	// Categories
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int64) error

	// Suppliers
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, s *Supplier) error
	UpdateSupplier(ctx context.Context, s *Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error

	// Products. search filters by substring on name or SKU; empty means
	// all. CreateProduct sets the opening stock balance; UpdateProduct
	// never writes StockQuantity.
	ListProducts(ctx context.Context, search string) ([]Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// Movement history, newest first, display names resolved.
	ListPurchases(ctx context.Context) ([]Purchase, error)
	ListSales(ctx context.Context) ([]Sale, error)

	// Expenses
	ListExpenses(ctx context.Context) ([]Expense, error)
	CreateExpense(ctx context.Context, e *Expense) error
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id int64) error

	ReportStore
}

// TxStore is a Store that can run compound writes atomically.
type TxStore interface {
	Store

	// WithTx executes fn against a transaction-scoped LedgerStore.
	// If fn returns an error the transaction rolls back and the error is
	// returned unchanged.
	WithTx(ctx context.Context, fn func(LedgerStore) error) error
}

// =============================================================================
// REPORT STORE - Read-only scans for the aggregation engine
// =============================================================================

// ProductSales is one row of the sales-by-product report.
type ProductSales struct {
	ProductName   string
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
}

// Summary holds the independent counts and sums of the dashboard view.
// Every field defaults to zero when its table is empty.
type Summary struct {
	Products       int64
	TotalStock     int64
	Categories     int64
	Suppliers      int64
	SalesCount     int64
	SalesRevenue   decimal.Decimal
	PurchasesCount int64
	PurchasesCost  decimal.Decimal
	ExpensesCount  int64
	ExpensesAmount decimal.Decimal
}

// ReportStore provides the read-only scans behind the aggregation engine.
// A nil range means all time. Amounts accumulate in full precision.
type ReportStore interface {
	// SumSales totals Sale.TotalPrice over the range.
	SumSales(ctx context.Context, r *DateRange) (decimal.Decimal, error)

	// SumPurchases totals Purchase.TotalCost over the range.
	SumPurchases(ctx context.Context, r *DateRange) (decimal.Decimal, error)

	// SumExpenses totals Expense.Amount over the range.
	SumExpenses(ctx context.Context, r *DateRange) (decimal.Decimal, error)

	// LowStockProducts returns products at or below their reorder level,
	// most deficient first.
	LowStockProducts(ctx context.Context) ([]Product, error)

	// SalesGroupedByProduct groups sales in the range per product,
	// highest revenue first. Products without sales are omitted.
	SalesGroupedByProduct(ctx context.Context, r *DateRange) ([]ProductSales, error)

	// SummaryCounts returns the dashboard counts and sums.
	SummaryCounts(ctx context.Context) (*Summary, error)
}
