package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*inventory.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return inventory.NewLedger(store), store
}

func createProduct(t *testing.T, store inventory.Store, name string, stock, reorder int64) *inventory.Product {
	p := &inventory.Product{
		Name:          name,
		UnitPrice:     decimal.NewFromFloat(9.99),
		StockQuantity: stock,
		ReorderLevel:  reorder,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func saleOf(productID, quantity int64, price float64) inventory.SaleInput {
	return inventory.SaleInput{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.NewFromFloat(price),
	}
}

func stockOf(t *testing.T, store inventory.Store, productID int64) int64 {
	p, err := store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.StockQuantity
}

// =============================================================================
// PURCHASE TESTS
// =============================================================================

func TestLedger_RecordPurchase_IncrementsStock(t *testing.T) {
	// GIVEN: A product with 1 unit on hand
	// WHEN: Recording a purchase of 10 units at 2.50
	// THEN: Stock is 11 and the record carries total cost 25.00

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 1, 0)

	purchase, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
		ProductID: p.ID,
		Quantity:  10,
		UnitCost:  decimal.NewFromFloat(2.50),
	})
	require.NoError(t, err)

	assert.True(t, purchase.TotalCost.Equal(decimal.NewFromFloat(25.00)),
		"total cost should be 25.00, got %s", purchase.TotalCost)
	assert.Equal(t, int64(11), stockOf(t, store, p.ID))
	assert.NotZero(t, purchase.ID)
}

func TestLedger_RecordPurchase_UnknownProduct_Rejected(t *testing.T) {
	// GIVEN: No product with id 999
	// WHEN: Recording a purchase against it
	// THEN: Not-found error and no purchase row is written

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
		ProductID: 999,
		Quantity:  5,
		UnitCost:  decimal.NewFromFloat(1.00),
	})
	assert.True(t, inventory.IsNotFound(err), "expected not-found, got %v", err)

	purchases, err := store.ListPurchases(ctx)
	require.NoError(t, err)
	assert.Empty(t, purchases, "rejected purchase must leave no record")
}

func TestLedger_RecordPurchase_DefaultsDateToNow(t *testing.T) {
	ledger, store := newTestLedger(t)
	p := createProduct(t, store, "Widget", 0, 0)

	purchase, err := ledger.RecordPurchase(context.Background(), inventory.PurchaseInput{
		ProductID: p.ID,
		Quantity:  1,
		UnitCost:  decimal.NewFromFloat(1.00),
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), purchase.PurchaseDate, time.Minute)
}

func TestLedger_DeletePurchase_ReversesStock(t *testing.T) {
	// GIVEN: A recorded purchase of 10 units on top of 1
	// WHEN: Deleting the purchase
	// THEN: Stock is back to 1 and the record is gone

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 1, 0)

	purchase, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
		ProductID: p.ID,
		Quantity:  10,
		UnitCost:  decimal.NewFromFloat(2.50),
	})
	require.NoError(t, err)
	require.Equal(t, int64(11), stockOf(t, store, p.ID))

	require.NoError(t, ledger.DeletePurchase(ctx, purchase.ID))

	assert.Equal(t, int64(1), stockOf(t, store, p.ID))
	purchases, err := store.ListPurchases(ctx)
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestLedger_DeletePurchase_Missing_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.DeletePurchase(context.Background(), 42)
	assert.True(t, inventory.IsNotFound(err))
}

func TestLedger_DeletePurchase_MayDriveStockNegative(t *testing.T) {
	// GIVEN: Purchase of 10 onto empty stock, then a sale of 8
	// WHEN: Deleting the purchase
	// THEN: The unguarded reversal leaves stock at 2 - 10 = -8; the
	//       history is still internally consistent

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 0, 0)

	purchase, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
		ProductID: p.ID, Quantity: 10, UnitCost: decimal.NewFromFloat(1),
	})
	require.NoError(t, err)

	_, err = ledger.RecordSale(ctx, saleOf(p.ID, 8, 5))
	require.NoError(t, err)
	require.Equal(t, int64(2), stockOf(t, store, p.ID))

	require.NoError(t, ledger.DeletePurchase(ctx, purchase.ID))
	assert.Equal(t, int64(-8), stockOf(t, store, p.ID))
}

// =============================================================================
// SALE TESTS
// =============================================================================

func TestLedger_RecordSale_DecrementsStock(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 10, 0)

	sale, err := ledger.RecordSale(ctx, saleOf(p.ID, 3, 4.00))
	require.NoError(t, err)

	assert.True(t, sale.TotalPrice.Equal(decimal.NewFromFloat(12.00)))
	assert.Equal(t, int64(7), stockOf(t, store, p.ID))
}

func TestLedger_RecordSale_InsufficientStock_Rejected(t *testing.T) {
	// GIVEN: 3 units on hand
	// WHEN: Selling 5
	// THEN: InsufficientStockError with the observed balance; nothing
	//       written, stock untouched

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 3, 0)

	_, err := ledger.RecordSale(ctx, saleOf(p.ID, 5, 4.00))

	var insuffErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insuffErr)
	assert.Equal(t, p.ID, insuffErr.ProductID)
	assert.Equal(t, int64(5), insuffErr.Requested)
	assert.Equal(t, int64(3), insuffErr.Available)

	assert.Equal(t, int64(3), stockOf(t, store, p.ID))
	sales, err := store.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestLedger_RecordSale_ExactStock_Allowed(t *testing.T) {
	// Selling exactly what is on hand drains stock to zero.
	ledger, store := newTestLedger(t)
	p := createProduct(t, store, "Widget", 4, 0)

	_, err := ledger.RecordSale(context.Background(), saleOf(p.ID, 4, 1.00))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stockOf(t, store, p.ID))
}

func TestLedger_RecordSale_UnknownProduct_TreatedAsEmpty(t *testing.T) {
	// A sale against a product that does not exist reads as zero stock.
	ledger, _ := newTestLedger(t)

	_, err := ledger.RecordSale(context.Background(), saleOf(999, 1, 1.00))

	var insuffErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insuffErr)
	assert.Equal(t, int64(0), insuffErr.Available)
}

func TestLedger_DeleteSale_RestoresStock(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 10, 0)

	sale, err := ledger.RecordSale(ctx, saleOf(p.ID, 4, 2.00))
	require.NoError(t, err)
	require.Equal(t, int64(6), stockOf(t, store, p.ID))

	require.NoError(t, ledger.DeleteSale(ctx, sale.ID))
	assert.Equal(t, int64(10), stockOf(t, store, p.ID))
}

func TestLedger_DeleteSale_Missing_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.DeleteSale(context.Background(), 42)
	assert.True(t, inventory.IsNotFound(err))
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestLedger_Validation(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 10, 0)

	cases := []struct {
		name string
		run  func() error
	}{
		{"sale with zero quantity", func() error {
			_, err := ledger.RecordSale(ctx, saleOf(p.ID, 0, 1.00))
			return err
		}},
		{"sale with negative quantity", func() error {
			_, err := ledger.RecordSale(ctx, saleOf(p.ID, -2, 1.00))
			return err
		}},
		{"sale with negative price", func() error {
			_, err := ledger.RecordSale(ctx, saleOf(p.ID, 1, -1.00))
			return err
		}},
		{"sale without product", func() error {
			_, err := ledger.RecordSale(ctx, saleOf(0, 1, 1.00))
			return err
		}},
		{"purchase with zero quantity", func() error {
			_, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
				ProductID: p.ID, Quantity: 0, UnitCost: decimal.NewFromFloat(1),
			})
			return err
		}},
		{"purchase with negative cost", func() error {
			_, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
				ProductID: p.ID, Quantity: 1, UnitCost: decimal.NewFromFloat(-1),
			})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			assert.True(t, errors.Is(err, inventory.ErrValidation),
				"expected validation error, got %v", err)
		})
	}

	// No side effects from any rejected input.
	assert.Equal(t, int64(10), stockOf(t, store, p.ID))
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestLedger_ConcurrentSales_NeverOversell(t *testing.T) {
	// GIVEN: 5 units on hand
	// WHEN: 20 goroutines each try to sell 1 unit at once
	// THEN: Exactly 5 succeed, stock ends at 0, and the sale count
	//       matches the stock consumed

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 5, 0)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.RecordSale(ctx, saleOf(p.ID, 1, 1.00))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, inventory.ErrInsufficientStock),
				"losers must fail with insufficient stock, got %v", err)
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, int64(0), stockOf(t, store, p.ID))

	sales, err := store.ListSales(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 5)
}

func TestLedger_ConcurrentSales_BigRequests_OneWinner(t *testing.T) {
	// GIVEN: 5 units on hand
	// WHEN: Two concurrent sales of 4 units each
	// THEN: One succeeds, one is rejected, stock ends at 1

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 5, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.RecordSale(ctx, saleOf(p.ID, 4, 1.00))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), stockOf(t, store, p.ID))
}

func TestLedger_ConcurrentMixedTraffic_BalancesOut(t *testing.T) {
	// Interleaved purchases and sales must land on the exact arithmetic
	// sum regardless of scheduling.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
				ProductID: p.ID, Quantity: 3, UnitCost: decimal.NewFromFloat(1),
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := ledger.RecordSale(ctx, saleOf(p.ID, 2, 2.00))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 100 + 10*3 - 10*2
	assert.Equal(t, int64(110), stockOf(t, store, p.ID))
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestLedger_LowStockAfterSale_ThenOversellRejected(t *testing.T) {
	// GIVEN: Stock 5, reorder level 2
	// WHEN: Selling 4
	// THEN: The product shows up in the low-stock report; a second sale
	//       of 4 is rejected and stock stays at 1

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 5, 2)

	_, err := ledger.RecordSale(ctx, saleOf(p.ID, 4, 3.00))
	require.NoError(t, err)
	require.Equal(t, int64(1), stockOf(t, store, p.ID))

	low, err := store.LowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)

	_, err = ledger.RecordSale(ctx, saleOf(p.ID, 4, 3.00))
	assert.True(t, errors.Is(err, inventory.ErrInsufficientStock))
	assert.Equal(t, int64(1), stockOf(t, store, p.ID))
}

func TestLedger_PurchaseSaleDeleteRoundTrip(t *testing.T) {
	// The full life of a stock movement: record, consume, reverse.
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 0, 0)

	purchase, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
		ProductID: p.ID, Quantity: 6, UnitCost: decimal.NewFromFloat(2),
	})
	require.NoError(t, err)

	sale, err := ledger.RecordSale(ctx, saleOf(p.ID, 2, 5.00))
	require.NoError(t, err)
	require.Equal(t, int64(4), stockOf(t, store, p.ID))

	require.NoError(t, ledger.DeleteSale(ctx, sale.ID))
	require.Equal(t, int64(6), stockOf(t, store, p.ID))

	require.NoError(t, ledger.DeletePurchase(ctx, purchase.ID))
	assert.Equal(t, int64(0), stockOf(t, store, p.ID))
}

func TestLedger_StockMatchesMovementHistory(t *testing.T) {
	// Invariant: stock = opening + purchases - sales, checked after a
	// burst of mixed operations with some deletes.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	p := createProduct(t, store, "Widget", 7, 0)

	for i := 0; i < 5; i++ {
		_, err := ledger.RecordPurchase(ctx, inventory.PurchaseInput{
			ProductID: p.ID, Quantity: int64(i + 1), UnitCost: decimal.NewFromFloat(1),
		})
		require.NoError(t, err)
	}
	sale, err := ledger.RecordSale(ctx, saleOf(p.ID, 9, 2.00))
	require.NoError(t, err)
	require.NoError(t, ledger.DeleteSale(ctx, sale.ID))
	_, err = ledger.RecordSale(ctx, saleOf(p.ID, 4, 2.00))
	require.NoError(t, err)

	purchases, err := store.ListPurchases(ctx)
	require.NoError(t, err)
	sales, err := store.ListSales(ctx)
	require.NoError(t, err)

	var purchased, sold int64
	for _, pu := range purchases {
		purchased += pu.Quantity
	}
	for _, s := range sales {
		sold += s.Quantity
	}
	assert.Equal(t, int64(7)+purchased-sold, stockOf(t, store, p.ID),
		"stock must equal opening + purchases - sales")
}

// =============================================================================
// ATOMICITY (FAULT INJECTION)
// =============================================================================

// faultyStore fails a chosen ledger primitive mid-transaction to prove
// the compound write rolls back as a unit.
type faultyStore struct {
	inventory.TxStore
	failInsertPurchase bool
	failAdjust         bool
}

type faultyLedgerStore struct {
	inventory.LedgerStore
	parent *faultyStore
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(inventory.LedgerStore) error) error {
	return f.TxStore.WithTx(ctx, func(ls inventory.LedgerStore) error {
		return fn(&faultyLedgerStore{LedgerStore: ls, parent: f})
	})
}

func (f *faultyLedgerStore) InsertPurchase(ctx context.Context, p *inventory.Purchase) error {
	if f.parent.failInsertPurchase {
		return fmt.Errorf("disk full")
	}
	return f.LedgerStore.InsertPurchase(ctx, p)
}

func (f *faultyLedgerStore) AdjustStock(ctx context.Context, productID, delta int64) error {
	if f.parent.failAdjust {
		return fmt.Errorf("disk full")
	}
	return f.LedgerStore.AdjustStock(ctx, productID, delta)
}

func TestLedger_PurchaseRollsBackWhenRecordWriteFails(t *testing.T) {
	// GIVEN: The purchase row insert fails mid-transaction
	// WHEN: Recording a purchase
	// THEN: Stock is unchanged and no purchase row exists

	base, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })

	p := createProduct(t, base, "Widget", 5, 0)

	faulty := &faultyStore{TxStore: base, failInsertPurchase: true}
	ledger := inventory.NewLedger(faulty)

	_, err = ledger.RecordPurchase(context.Background(), inventory.PurchaseInput{
		ProductID: p.ID, Quantity: 10, UnitCost: decimal.NewFromFloat(1),
	})
	require.Error(t, err)

	assert.Equal(t, int64(5), stockOf(t, base, p.ID))
	purchases, err := base.ListPurchases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestLedger_PurchaseRollsBackWhenStockWriteFails(t *testing.T) {
	// GIVEN: The stock adjustment fails after the row insert succeeded
	// WHEN: Recording a purchase
	// THEN: The already-inserted row is rolled back too

	base, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })

	p := createProduct(t, base, "Widget", 5, 0)

	faulty := &faultyStore{TxStore: base, failAdjust: true}
	ledger := inventory.NewLedger(faulty)

	_, err = ledger.RecordPurchase(context.Background(), inventory.PurchaseInput{
		ProductID: p.ID, Quantity: 10, UnitCost: decimal.NewFromFloat(1),
	})
	require.Error(t, err)

	assert.Equal(t, int64(5), stockOf(t, base, p.ID))
	purchases, err := base.ListPurchases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, purchases, "partial transaction must not persist")
}
