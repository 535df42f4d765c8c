package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/inventory/store"
	"github.com/warp/stock-engine/reports"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newEngine(t *testing.T) (*reports.Engine, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return reports.NewEngine(m), m
}

func seedSale(t *testing.T, m *store.Memory, productID int64, qty int64, total string, date time.Time) {
	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)
	s := inventory.Sale{ProductID: productID, Quantity: qty, TotalPrice: amount, SaleDate: date}
	require.NoError(t, m.InsertSale(context.Background(), &s))
}

func seedPurchase(t *testing.T, m *store.Memory, productID int64, qty int64, total string, date time.Time) {
	amount, err := decimal.NewFromString(total)
	require.NoError(t, err)
	p := inventory.Purchase{ProductID: productID, Quantity: qty, TotalCost: amount, PurchaseDate: date}
	require.NoError(t, m.InsertPurchase(context.Background(), &p))
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// =============================================================================
// PROFIT AND LOSS
// =============================================================================

func TestEngine_ProfitAndLoss(t *testing.T) {
	// GIVEN: Sales of 10x3 and 5x2, purchases of 6x5, expenses of 4
	// WHEN: Computing the all-time income statement
	// THEN: revenue 40, cost 30, gross 10, net 6

	engine, m := newEngine(t)
	ctx := context.Background()

	p := inventory.Product{Name: "Widget"}
	require.NoError(t, m.CreateProduct(ctx, &p))

	now := time.Now().UTC()
	seedSale(t, m, p.ID, 3, "30", now)
	seedSale(t, m, p.ID, 2, "10", now)
	seedPurchase(t, m, p.ID, 5, "30", now)
	require.NoError(t, m.CreateExpense(ctx, &inventory.Expense{
		Category: "Rent", Amount: dec("4"), ExpenseDate: now,
	}))

	pl, err := engine.ProfitAndLoss(ctx, nil)
	require.NoError(t, err)

	assert.True(t, pl.Revenue.Equal(dec("40")), "revenue %s", pl.Revenue)
	assert.True(t, pl.CostOfGoods.Equal(dec("30")), "cost %s", pl.CostOfGoods)
	assert.True(t, pl.Expenses.Equal(dec("4")), "expenses %s", pl.Expenses)
	assert.True(t, pl.GrossProfit.Equal(dec("10")), "gross %s", pl.GrossProfit)
	assert.True(t, pl.NetProfit.Equal(dec("6")), "net %s", pl.NetProfit)
}

func TestEngine_ProfitAndLoss_Empty_AllZero(t *testing.T) {
	engine, _ := newEngine(t)

	pl, err := engine.ProfitAndLoss(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, pl.Revenue.IsZero())
	assert.True(t, pl.CostOfGoods.IsZero())
	assert.True(t, pl.Expenses.IsZero())
	assert.True(t, pl.GrossProfit.IsZero())
	assert.True(t, pl.NetProfit.IsZero())
}

func TestEngine_ProfitAndLoss_NegativeNet(t *testing.T) {
	// A loss must come out negative, not clamped.
	engine, m := newEngine(t)
	ctx := context.Background()

	p := inventory.Product{Name: "Widget"}
	require.NoError(t, m.CreateProduct(ctx, &p))

	now := time.Now().UTC()
	seedSale(t, m, p.ID, 1, "10", now)
	seedPurchase(t, m, p.ID, 1, "25", now)

	pl, err := engine.ProfitAndLoss(ctx, nil)
	require.NoError(t, err)
	assert.True(t, pl.GrossProfit.Equal(dec("-15")), "gross %s", pl.GrossProfit)
	assert.True(t, pl.NetProfit.Equal(dec("-15")))
}

func TestEngine_ProfitAndLoss_RespectsPeriod(t *testing.T) {
	engine, m := newEngine(t)
	ctx := context.Background()

	p := inventory.Product{Name: "Widget"}
	require.NoError(t, m.CreateProduct(ctx, &p))

	march := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	seedSale(t, m, p.ID, 1, "100", march)
	seedSale(t, m, p.ID, 1, "7", april)

	r := inventory.NewDateRange(
		time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC))

	pl, err := engine.ProfitAndLoss(ctx, &r)
	require.NoError(t, err)
	assert.True(t, pl.Revenue.Equal(dec("100")), "revenue %s", pl.Revenue)
	assert.Equal(t, &r, pl.Period)
}

// =============================================================================
// LOW STOCK
// =============================================================================

func TestEngine_LowStock_MostUrgentFirst(t *testing.T) {
	// Deficits: a=-1, b=-3, c=0. Expected order: b, a, c.
	engine, m := newEngine(t)
	ctx := context.Background()

	for _, p := range []inventory.Product{
		{Name: "a", StockQuantity: 4, ReorderLevel: 5},
		{Name: "b", StockQuantity: 2, ReorderLevel: 5},
		{Name: "c", StockQuantity: 5, ReorderLevel: 5},
		{Name: "fine", StockQuantity: 50, ReorderLevel: 5},
	} {
		p := p
		require.NoError(t, m.CreateProduct(ctx, &p))
	}

	low, err := engine.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 3)
	assert.Equal(t, "b", low[0].Name)
	assert.Equal(t, "a", low[1].Name)
	assert.Equal(t, "c", low[2].Name)
}

// =============================================================================
// SALES BY PRODUCT
// =============================================================================

func TestEngine_SalesByProduct_RevenueDescending(t *testing.T) {
	engine, m := newEngine(t)
	ctx := context.Background()

	small := inventory.Product{Name: "Small"}
	big := inventory.Product{Name: "Big"}
	require.NoError(t, m.CreateProduct(ctx, &small))
	require.NoError(t, m.CreateProduct(ctx, &big))

	now := time.Now().UTC()
	seedSale(t, m, small.ID, 5, "25", now)
	seedSale(t, m, big.ID, 1, "90", now)

	rows, err := engine.SalesByProduct(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Big", rows[0].ProductName)
	assert.Equal(t, "Small", rows[1].ProductName)
	assert.Equal(t, int64(5), rows[1].TotalQuantity)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestEngine_Summary(t *testing.T) {
	engine, m := newEngine(t)
	ctx := context.Background()

	p := inventory.Product{Name: "Widget", StockQuantity: 6}
	require.NoError(t, m.CreateProduct(ctx, &p))
	seedSale(t, m, p.ID, 1, "12.50", time.Now().UTC())

	sum, err := engine.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Products)
	assert.Equal(t, int64(6), sum.TotalStock)
	assert.Equal(t, int64(1), sum.SalesCount)
	assert.True(t, sum.SalesRevenue.Equal(dec("12.50")))
}
