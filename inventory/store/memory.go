// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a map-backed inventory.TxStore. WithTx simulates transactions
// with a snapshot taken before the function runs and restored on error, so
// compound-write atomicity is real even without a database.
type Memory struct {
	mu sync.RWMutex

	categories map[int64]inventory.Category
	suppliers  map[int64]inventory.Supplier
	products   map[int64]inventory.Product
	purchases  map[int64]inventory.Purchase
	sales      map[int64]inventory.Sale
	expenses   map[int64]inventory.Expense

	seq map[string]int64
}

var _ inventory.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		categories: make(map[int64]inventory.Category),
		suppliers:  make(map[int64]inventory.Supplier),
		products:   make(map[int64]inventory.Product),
		purchases:  make(map[int64]inventory.Purchase),
		sales:      make(map[int64]inventory.Sale),
		expenses:   make(map[int64]inventory.Expense),
		seq:        make(map[string]int64),
	}
}

func (m *Memory) nextID(table string) int64 {
	m.seq[table]++
	return m.seq[table]
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock, against a view that
// bypasses locking. On error the pre-call snapshot is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(inventory.LedgerStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	categories map[int64]inventory.Category
	suppliers  map[int64]inventory.Supplier
	products   map[int64]inventory.Product
	purchases  map[int64]inventory.Purchase
	sales      map[int64]inventory.Sale
	expenses   map[int64]inventory.Expense
	seq        map[string]int64
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		categories: cloneMap(m.categories),
		suppliers:  cloneMap(m.suppliers),
		products:   cloneMap(m.products),
		purchases:  cloneMap(m.purchases),
		sales:      cloneMap(m.sales),
		expenses:   cloneMap(m.expenses),
		seq:        cloneMap(m.seq),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.categories = s.categories
	m.suppliers = s.suppliers
	m.products = s.products
	m.purchases = s.purchases
	m.sales = s.sales
	m.expenses = s.expenses
	m.seq = s.seq
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// txView forwards to the parent's locked internals. Only valid while the
// parent's write lock is held by WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) GetProduct(ctx context.Context, id int64) (*inventory.Product, error) {
	return tv.parent.getProductLocked(id), nil
}

func (tv *txView) InsertPurchase(ctx context.Context, p *inventory.Purchase) error {
	return tv.parent.insertPurchaseLocked(p)
}

func (tv *txView) InsertSale(ctx context.Context, s *inventory.Sale) error {
	return tv.parent.insertSaleLocked(s)
}

func (tv *txView) GetPurchase(ctx context.Context, id int64) (*inventory.Purchase, error) {
	return tv.parent.getPurchaseLocked(id), nil
}

func (tv *txView) GetSale(ctx context.Context, id int64) (*inventory.Sale, error) {
	return tv.parent.getSaleLocked(id), nil
}

func (tv *txView) DeletePurchaseRow(ctx context.Context, id int64) error {
	delete(tv.parent.purchases, id)
	return nil
}

func (tv *txView) DeleteSaleRow(ctx context.Context, id int64) error {
	delete(tv.parent.sales, id)
	return nil
}

func (tv *txView) AdjustStock(ctx context.Context, productID, delta int64) error {
	return tv.parent.adjustStockLocked(productID, delta)
}

func (tv *txView) DecrementStock(ctx context.Context, productID, quantity int64) error {
	return tv.parent.decrementStockLocked(productID, quantity)
}

// =============================================================================
// LEDGER PRIMITIVES
// =============================================================================

func (m *Memory) GetProduct(_ context.Context, id int64) (*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProductLocked(id), nil
}

func (m *Memory) getProductLocked(id int64) *inventory.Product {
	p, ok := m.products[id]
	if !ok {
		return nil
	}
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			p.CategoryName = c.Name
		}
	}
	return &p
}

func (m *Memory) InsertPurchase(_ context.Context, p *inventory.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPurchaseLocked(p)
}

func (m *Memory) insertPurchaseLocked(p *inventory.Purchase) error {
	p.ID = m.nextID("purchases")
	m.purchases[p.ID] = *p
	return nil
}

func (m *Memory) InsertSale(_ context.Context, s *inventory.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertSaleLocked(s)
}

func (m *Memory) insertSaleLocked(s *inventory.Sale) error {
	s.ID = m.nextID("sales")
	m.sales[s.ID] = *s
	return nil
}

func (m *Memory) GetPurchase(_ context.Context, id int64) (*inventory.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPurchaseLocked(id), nil
}

func (m *Memory) getPurchaseLocked(id int64) *inventory.Purchase {
	p, ok := m.purchases[id]
	if !ok {
		return nil
	}
	return &p
}

func (m *Memory) GetSale(_ context.Context, id int64) (*inventory.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSaleLocked(id), nil
}

func (m *Memory) getSaleLocked(id int64) *inventory.Sale {
	s, ok := m.sales[id]
	if !ok {
		return nil
	}
	return &s
}

func (m *Memory) DeletePurchaseRow(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.purchases, id)
	return nil
}

func (m *Memory) DeleteSaleRow(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sales, id)
	return nil
}

func (m *Memory) AdjustStock(_ context.Context, productID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustStockLocked(productID, delta)
}

// adjustStockLocked is a no-op for missing products, matching an UPDATE
// that affects zero rows - delete reversals against a deleted product
// must still succeed.
func (m *Memory) adjustStockLocked(productID, delta int64) error {
	p, ok := m.products[productID]
	if !ok {
		return nil
	}
	p.StockQuantity += delta
	m.products[productID] = p
	return nil
}

func (m *Memory) DecrementStock(_ context.Context, productID, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrementStockLocked(productID, quantity)
}

func (m *Memory) decrementStockLocked(productID, quantity int64) error {
	p, ok := m.products[productID]
	if !ok {
		return &inventory.InsufficientStockError{ProductID: productID, Requested: quantity, Available: 0}
	}
	if p.StockQuantity < quantity {
		return &inventory.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.StockQuantity}
	}
	p.StockQuantity -= quantity
	m.products[productID] = p
	return nil
}

// =============================================================================
// CATALOG CRUD
// =============================================================================

func (m *Memory) ListCategories(_ context.Context) ([]inventory.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateCategory(_ context.Context, c *inventory.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.nextID("categories")
	c.CreatedAt = time.Now().UTC()
	m.categories[c.ID] = *c
	return nil
}

func (m *Memory) UpdateCategory(_ context.Context, c *inventory.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.categories[c.ID]
	if !ok {
		return nil
	}
	existing.Name = c.Name
	existing.Description = c.Description
	m.categories[c.ID] = existing
	return nil
}

// DeleteCategory never cascades; products keep their dangling reference.
func (m *Memory) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	return nil
}

func (m *Memory) ListSuppliers(_ context.Context) ([]inventory.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateSupplier(_ context.Context, s *inventory.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.nextID("suppliers")
	s.CreatedAt = time.Now().UTC()
	m.suppliers[s.ID] = *s
	return nil
}

func (m *Memory) UpdateSupplier(_ context.Context, s *inventory.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.suppliers[s.ID]
	if !ok {
		return nil
	}
	existing.Name = s.Name
	existing.ContactPerson = s.ContactPerson
	existing.Email = s.Email
	existing.Phone = s.Phone
	existing.Address = s.Address
	m.suppliers[s.ID] = existing
	return nil
}

func (m *Memory) DeleteSupplier(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.suppliers, id)
	return nil
}

func (m *Memory) ListProducts(_ context.Context, search string) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(search)
	out := make([]inventory.Product, 0, len(m.products))
	for id := range m.products {
		p := *m.getProductLocked(id)
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.SKU), needle) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateProduct(_ context.Context, p *inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextID("products")
	p.CreatedAt = time.Now().UTC()
	m.products[p.ID] = *p
	return nil
}

// UpdateProduct rewrites catalog fields only. StockQuantity is owned by
// the ledger and keeps its current value.
func (m *Memory) UpdateProduct(_ context.Context, p *inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[p.ID]
	if !ok {
		return nil
	}
	existing.Name = p.Name
	existing.SKU = p.SKU
	existing.CategoryID = p.CategoryID
	existing.Description = p.Description
	existing.UnitPrice = p.UnitPrice
	existing.ReorderLevel = p.ReorderLevel
	m.products[p.ID] = existing
	return nil
}

func (m *Memory) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *Memory) ListPurchases(_ context.Context) ([]inventory.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Purchase, 0, len(m.purchases))
	for _, p := range m.purchases {
		if prod, ok := m.products[p.ProductID]; ok {
			p.ProductName = prod.Name
		}
		if p.SupplierID != nil {
			if sup, ok := m.suppliers[*p.SupplierID]; ok {
				p.SupplierName = sup.Name
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
			return out[i].PurchaseDate.After(out[j].PurchaseDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) ListSales(_ context.Context) ([]inventory.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		if prod, ok := m.products[s.ProductID]; ok {
			s.ProductName = prod.Name
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SaleDate.Equal(out[j].SaleDate) {
			return out[i].SaleDate.After(out[j].SaleDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) ListExpenses(_ context.Context) ([]inventory.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Expense, 0, len(m.expenses))
	for _, e := range m.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpenseDate.Equal(out[j].ExpenseDate) {
			return out[i].ExpenseDate.After(out[j].ExpenseDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateExpense(_ context.Context, e *inventory.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID("expenses")
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = time.Now().UTC()
	}
	m.expenses[e.ID] = *e
	return nil
}

func (m *Memory) UpdateExpense(_ context.Context, e *inventory.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.expenses[e.ID]
	if !ok {
		return nil
	}
	existing.Category = e.Category
	existing.Description = e.Description
	existing.Amount = e.Amount
	existing.ExpenseDate = e.ExpenseDate
	existing.Notes = e.Notes
	m.expenses[e.ID] = existing
	return nil
}

func (m *Memory) DeleteExpense(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expenses, id)
	return nil
}

// =============================================================================
// REPORT SCANS
// =============================================================================

func (m *Memory) SumSales(_ context.Context, r *inventory.DateRange) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, s := range m.sales {
		if r == nil || r.Contains(s.SaleDate) {
			total = total.Add(s.TotalPrice)
		}
	}
	return total, nil
}

func (m *Memory) SumPurchases(_ context.Context, r *inventory.DateRange) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, p := range m.purchases {
		if r == nil || r.Contains(p.PurchaseDate) {
			total = total.Add(p.TotalCost)
		}
	}
	return total, nil
}

func (m *Memory) SumExpenses(_ context.Context, r *inventory.DateRange) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, e := range m.expenses {
		if r == nil || r.Contains(e.ExpenseDate) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (m *Memory) LowStockProducts(_ context.Context) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []inventory.Product
	for id, p := range m.products {
		if p.StockQuantity <= p.ReorderLevel {
			out = append(out, *m.getProductLocked(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deficit() < out[j].Deficit() })
	return out, nil
}

func (m *Memory) SalesGroupedByProduct(_ context.Context, r *inventory.DateRange) ([]inventory.ProductSales, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grouped := make(map[int64]*inventory.ProductSales)
	for _, s := range m.sales {
		if r != nil && !r.Contains(s.SaleDate) {
			continue
		}
		// Inner-join semantics: sales of deleted products are omitted.
		prod, ok := m.products[s.ProductID]
		if !ok {
			continue
		}
		g, ok := grouped[s.ProductID]
		if !ok {
			g = &inventory.ProductSales{ProductName: prod.Name, TotalRevenue: decimal.Zero}
			grouped[s.ProductID] = g
		}
		g.TotalQuantity += s.Quantity
		g.TotalRevenue = g.TotalRevenue.Add(s.TotalPrice)
	}

	out := make([]inventory.ProductSales, 0, len(grouped))
	for _, g := range grouped {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
	})
	return out, nil
}

func (m *Memory) SummaryCounts(_ context.Context) (*inventory.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := &inventory.Summary{
		Products:       int64(len(m.products)),
		Categories:     int64(len(m.categories)),
		Suppliers:      int64(len(m.suppliers)),
		SalesCount:     int64(len(m.sales)),
		PurchasesCount: int64(len(m.purchases)),
		ExpensesCount:  int64(len(m.expenses)),
		SalesRevenue:   decimal.Zero,
		PurchasesCost:  decimal.Zero,
		ExpensesAmount: decimal.Zero,
	}
	for _, p := range m.products {
		sum.TotalStock += p.StockQuantity
	}
	for _, s := range m.sales {
		sum.SalesRevenue = sum.SalesRevenue.Add(s.TotalPrice)
	}
	for _, p := range m.purchases {
		sum.PurchasesCost = sum.PurchasesCost.Add(p.TotalCost)
	}
	for _, e := range m.expenses {
		sum.ExpensesAmount = sum.ExpensesAmount.Add(e.Amount)
	}
	return sum, nil
}
