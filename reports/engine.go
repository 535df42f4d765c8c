/*
engine.go - Derived reporting over the record store

PURPOSE:
  Computes read-only aggregates from the raw records. Reports never
  mutate state and never cache: every call is a fresh derivation, so a
  report is always consistent with the records at the moment it runs.

REPORTS:
  ProfitAndLoss:
    - revenue (sales), cost of goods (purchases), operating expenses
    - gross profit = revenue - cost of goods
    - net profit   = gross profit - expenses
    - optional inclusive date range; each component defaults to zero
      when no records match

  LowStock:
    - products at or below their reorder level
    - most urgent first (largest shortfall below reorder level)

  SalesByProduct:
    - per-product quantity and revenue, highest revenue first
    - sales referencing deleted products are omitted

  Summary:
    - entity counts, total units on hand, all-time money totals

MONEY:
  All arithmetic is decimal.Decimal. Rounding to cents happens only at
  the presentation layer, never here.

SEE ALSO:
  - inventory/store.go: ReportStore, the scan primitives this consumes
  - api/handlers.go: the report endpoints
*/
package reports

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/inventory"
)

// ProfitAndLoss is the income statement over a period.
type ProfitAndLoss struct {
	Revenue     decimal.Decimal
	CostOfGoods decimal.Decimal
	Expenses    decimal.Decimal
	GrossProfit decimal.Decimal
	NetProfit   decimal.Decimal
	Period      *inventory.DateRange
}

// Engine derives reports from a ReportStore.
type Engine struct {
	store inventory.ReportStore
}

// NewEngine creates a report engine over the given store.
func NewEngine(store inventory.ReportStore) *Engine {
	return &Engine{store: store}
}

// ProfitAndLoss computes revenue, cost of goods and expenses over the
// optional period. A nil period means all time.
func (e *Engine) ProfitAndLoss(ctx context.Context, period *inventory.DateRange) (*ProfitAndLoss, error) {
	revenue, err := e.store.SumSales(ctx, period)
	if err != nil {
		return nil, err
	}
	cost, err := e.store.SumPurchases(ctx, period)
	if err != nil {
		return nil, err
	}
	expenses, err := e.store.SumExpenses(ctx, period)
	if err != nil {
		return nil, err
	}

	gross := revenue.Sub(cost)
	return &ProfitAndLoss{
		Revenue:     revenue,
		CostOfGoods: cost,
		Expenses:    expenses,
		GrossProfit: gross,
		NetProfit:   gross.Sub(expenses),
		Period:      period,
	}, nil
}

// LowStock returns products at or below their reorder level, most
// urgent first.
func (e *Engine) LowStock(ctx context.Context) ([]inventory.Product, error) {
	return e.store.LowStockProducts(ctx)
}

// SalesByProduct returns per-product sales totals over the optional
// period, highest revenue first.
func (e *Engine) SalesByProduct(ctx context.Context, period *inventory.DateRange) ([]inventory.ProductSales, error) {
	return e.store.SalesGroupedByProduct(ctx, period)
}

// Summary returns the dashboard counts and all-time totals.
func (e *Engine) Summary(ctx context.Context) (*inventory.Summary, error) {
	return e.store.SummaryCounts(ctx)
}
