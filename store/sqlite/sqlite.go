/*
Package sqlite provides the SQLite-backed implementation of the record store.

PURPOSE:
  Implements inventory.TxStore using database/sql. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  categories, suppliers, products:  catalog
  purchases, sales:                 stock movement records
  expenses:                         independent of stock

WEAK REFERENCES:
  category_id, supplier_id and product_id are plain columns with no
  foreign-key constraints: catalog deletes succeed even with dependents.
  Display names are resolved by LEFT JOIN and come back empty for
  dangling references.

STOCK SAFETY:
  DecrementStock runs a single conditional update:

    UPDATE products SET stock_quantity = stock_quantity - ?
    WHERE id = ? AND stock_quantity >= ?

  Zero rows affected means the sale must be rejected. Combined with the
  store-level write lock this serializes check-and-write per product, so
  concurrent sales can never oversell.

MONEY:
  Monetary columns are TEXT holding decimal strings. Aggregates are
  accumulated in Go with decimal.Decimal, never summed as floats.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  // Use with ledger
  ledger := inventory.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/ledger.go: Compound operations built on WithTx
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ inventory.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The write lock serializes mutations; a single connection keeps
	// in-memory databases coherent across the pool.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		contact_person TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		created_at TEXT NOT NULL
	);

	-- category_id is a weak reference: no FK constraint, resolved by
	-- LEFT JOIN at read time.
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sku TEXT UNIQUE,
		category_id INTEGER,
		description TEXT,
		unit_price TEXT NOT NULL DEFAULT '0',
		stock_quantity INTEGER NOT NULL DEFAULT 0,
		reorder_level INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);

	CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		supplier_id INTEGER,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		unit_cost TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		purchase_date TEXT NOT NULL,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_product ON purchases(product_id);
	CREATE INDEX IF NOT EXISTS idx_purchases_date ON purchases(purchase_date);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		sale_date TEXT NOT NULL,
		customer_name TEXT,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sales_product ON sales(product_id);
	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);

	CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		expense_date TEXT NOT NULL,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(expense_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so row helpers work
// inside and outside transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS (inventory.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. The LedgerStore
// passed to fn routes every statement through the transaction, so the
// record write and the stock adjustment commit or roll back as one unit.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.LedgerStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &inventory.StorageError{Op: "begin tx", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txLedgerStore{q: sqlTx, parent: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &inventory.StorageError{Op: "commit tx", Err: err}
	}
	return nil
}

type txLedgerStore struct {
	q      *sql.Tx
	parent *Store
}

func (ts *txLedgerStore) GetProduct(ctx context.Context, id int64) (*inventory.Product, error) {
	return ts.parent.getProduct(ctx, ts.q, id)
}

func (ts *txLedgerStore) InsertPurchase(ctx context.Context, p *inventory.Purchase) error {
	return ts.parent.insertPurchase(ctx, ts.q, p)
}

func (ts *txLedgerStore) InsertSale(ctx context.Context, sale *inventory.Sale) error {
	return ts.parent.insertSale(ctx, ts.q, sale)
}

func (ts *txLedgerStore) GetPurchase(ctx context.Context, id int64) (*inventory.Purchase, error) {
	return ts.parent.getPurchase(ctx, ts.q, id)
}

func (ts *txLedgerStore) GetSale(ctx context.Context, id int64) (*inventory.Sale, error) {
	return ts.parent.getSale(ctx, ts.q, id)
}

func (ts *txLedgerStore) DeletePurchaseRow(ctx context.Context, id int64) error {
	return ts.parent.deleteRow(ctx, ts.q, "purchases", id)
}

func (ts *txLedgerStore) DeleteSaleRow(ctx context.Context, id int64) error {
	return ts.parent.deleteRow(ctx, ts.q, "sales", id)
}

func (ts *txLedgerStore) AdjustStock(ctx context.Context, productID, delta int64) error {
	return ts.parent.adjustStock(ctx, ts.q, productID, delta)
}

func (ts *txLedgerStore) DecrementStock(ctx context.Context, productID, quantity int64) error {
	return ts.parent.decrementStock(ctx, ts.q, productID, quantity)
}

// =============================================================================
// STOCK PRIMITIVES
// =============================================================================

func (s *Store) AdjustStock(ctx context.Context, productID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStock(ctx, s.db, productID, delta)
}

// adjustStock applies a signed delta without any guard. Zero rows
// affected (product deleted since) is not an error: reversals against a
// deleted product must still succeed.
func (s *Store) adjustStock(ctx context.Context, q querier, productID, delta int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + ? WHERE id = ?",
		delta, productID)
	if err != nil {
		return &inventory.StorageError{Op: "adjust stock", Err: err}
	}
	return nil
}

func (s *Store) DecrementStock(ctx context.Context, productID, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decrementStock(ctx, s.db, productID, quantity)
}

// decrementStock is the guarded path: the availability check and the
// write are one conditional UPDATE, so two concurrent sales can never
// both succeed against stock that only covers one of them.
func (s *Store) decrementStock(ctx context.Context, q querier, productID, quantity int64) error {
	res, err := q.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?",
		quantity, productID, quantity)
	if err != nil {
		return &inventory.StorageError{Op: "decrement stock", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &inventory.StorageError{Op: "decrement stock", Err: err}
	}
	if affected == 0 {
		var available int64
		err := q.QueryRowContext(ctx,
			"SELECT stock_quantity FROM products WHERE id = ?", productID,
		).Scan(&available)
		if err != nil && err != sql.ErrNoRows {
			return &inventory.StorageError{Op: "decrement stock", Err: err}
		}
		// Missing product reads as zero available.
		return &inventory.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `p.id, p.name, p.sku, p.category_id, p.description,
	p.unit_price, p.stock_quantity, p.reorder_level, p.created_at, c.name`

func (s *Store) GetProduct(ctx context.Context, id int64) (*inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) getProduct(ctx context.Context, q querier, id int64) (*inventory.Product, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &inventory.StorageError{Op: "get product", Err: err}
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, search string) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id`
	var args []any
	if search != "" {
		query += ` WHERE p.name LIKE ? OR p.sku LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY p.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list products", Err: err}
	}
	defer rows.Close()

	var products []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, &inventory.StorageError{Op: "scan product", Err: err}
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, p *inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, sku, category_id, description, unit_price, stock_quantity, reorder_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, nullString(p.SKU), nullInt(p.CategoryID), p.Description,
		p.UnitPrice.String(), p.StockQuantity, p.ReorderLevel,
		p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return &inventory.StorageError{Op: "create product", Err: err}
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// UpdateProduct rewrites catalog fields only. The stock_quantity column
// is deliberately absent from the SET clause: the ledger is the sole
// stock mutator.
func (s *Store) UpdateProduct(ctx context.Context, p *inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, sku = ?, category_id = ?, description = ?, unit_price = ?, reorder_level = ?
		WHERE id = ?`,
		p.Name, nullString(p.SKU), nullInt(p.CategoryID), p.Description,
		p.UnitPrice.String(), p.ReorderLevel, p.ID)
	if err != nil {
		return &inventory.StorageError{Op: "update product", Err: err}
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return &inventory.StorageError{Op: "delete product", Err: err}
	}
	return nil
}

func scanProduct(row interface{ Scan(...any) error }) (*inventory.Product, error) {
	var (
		p            inventory.Product
		sku          sql.NullString
		categoryID   sql.NullInt64
		description  sql.NullString
		unitPrice    string
		createdAt    string
		categoryName sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &sku, &categoryID, &description,
		&unitPrice, &p.StockQuantity, &p.ReorderLevel, &createdAt, &categoryName)
	if err != nil {
		return nil, err
	}

	p.SKU = sku.String
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	p.Description = description.String
	p.UnitPrice = parseDecimal(unitPrice)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.CategoryName = categoryName.String
	return &p, nil
}

// =============================================================================
// PURCHASES
// =============================================================================

func (s *Store) InsertPurchase(ctx context.Context, p *inventory.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPurchase(ctx, s.db, p)
}

func (s *Store) insertPurchase(ctx context.Context, q querier, p *inventory.Purchase) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO purchases (supplier_id, product_id, quantity, unit_cost, total_cost, purchase_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullInt(p.SupplierID), p.ProductID, p.Quantity,
		p.UnitCost.String(), p.TotalCost.String(),
		p.PurchaseDate.UTC().Format(time.RFC3339), p.Notes)
	if err != nil {
		return &inventory.StorageError{Op: "insert purchase", Err: err}
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, id int64) (*inventory.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPurchase(ctx, s.db, id)
}

func (s *Store) DeletePurchaseRow(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRow(ctx, s.db, "purchases", id)
}

func (s *Store) getPurchase(ctx context.Context, q querier, id int64) (*inventory.Purchase, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, supplier_id, product_id, quantity, unit_cost, total_cost, purchase_date, notes
		FROM purchases WHERE id = ?`, id)

	var (
		p            inventory.Purchase
		supplierID   sql.NullInt64
		unitCost     string
		totalCost    string
		purchaseDate string
		notes        sql.NullString
	)
	err := row.Scan(&p.ID, &supplierID, &p.ProductID, &p.Quantity,
		&unitCost, &totalCost, &purchaseDate, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &inventory.StorageError{Op: "get purchase", Err: err}
	}

	if supplierID.Valid {
		id := supplierID.Int64
		p.SupplierID = &id
	}
	p.UnitCost = parseDecimal(unitCost)
	p.TotalCost = parseDecimal(totalCost)
	p.PurchaseDate, _ = time.Parse(time.RFC3339, purchaseDate)
	p.Notes = notes.String
	return &p, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]inventory.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pu.id, pu.supplier_id, pu.product_id, pu.quantity, pu.unit_cost,
		       pu.total_cost, pu.purchase_date, pu.notes, pr.name, su.name
		FROM purchases pu
		LEFT JOIN products pr ON pu.product_id = pr.id
		LEFT JOIN suppliers su ON pu.supplier_id = su.id
		ORDER BY pu.purchase_date DESC, pu.id DESC`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list purchases", Err: err}
	}
	defer rows.Close()

	var purchases []inventory.Purchase
	for rows.Next() {
		var (
			p            inventory.Purchase
			supplierID   sql.NullInt64
			unitCost     string
			totalCost    string
			purchaseDate string
			notes        sql.NullString
			productName  sql.NullString
			supplierName sql.NullString
		)
		err := rows.Scan(&p.ID, &supplierID, &p.ProductID, &p.Quantity,
			&unitCost, &totalCost, &purchaseDate, &notes, &productName, &supplierName)
		if err != nil {
			return nil, &inventory.StorageError{Op: "scan purchase", Err: err}
		}
		if supplierID.Valid {
			id := supplierID.Int64
			p.SupplierID = &id
		}
		p.UnitCost = parseDecimal(unitCost)
		p.TotalCost = parseDecimal(totalCost)
		p.PurchaseDate, _ = time.Parse(time.RFC3339, purchaseDate)
		p.Notes = notes.String
		p.ProductName = productName.String
		p.SupplierName = supplierName.String
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// =============================================================================
// SALES
// =============================================================================

func (s *Store) InsertSale(ctx context.Context, sale *inventory.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSale(ctx, s.db, sale)
}

func (s *Store) insertSale(ctx context.Context, q querier, sale *inventory.Sale) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO sales (product_id, quantity, unit_price, total_price, sale_date, customer_name, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ProductID, sale.Quantity,
		sale.UnitPrice.String(), sale.TotalPrice.String(),
		sale.SaleDate.UTC().Format(time.RFC3339), sale.CustomerName, sale.Notes)
	if err != nil {
		return &inventory.StorageError{Op: "insert sale", Err: err}
	}
	sale.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*inventory.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSale(ctx, s.db, id)
}

func (s *Store) DeleteSaleRow(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRow(ctx, s.db, "sales", id)
}

func (s *Store) getSale(ctx context.Context, q querier, id int64) (*inventory.Sale, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, product_id, quantity, unit_price, total_price, sale_date, customer_name, notes
		FROM sales WHERE id = ?`, id)

	var (
		sale         inventory.Sale
		unitPrice    string
		totalPrice   string
		saleDate     string
		customerName sql.NullString
		notes        sql.NullString
	)
	err := row.Scan(&sale.ID, &sale.ProductID, &sale.Quantity,
		&unitPrice, &totalPrice, &saleDate, &customerName, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &inventory.StorageError{Op: "get sale", Err: err}
	}

	sale.UnitPrice = parseDecimal(unitPrice)
	sale.TotalPrice = parseDecimal(totalPrice)
	sale.SaleDate, _ = time.Parse(time.RFC3339, saleDate)
	sale.CustomerName = customerName.String
	sale.Notes = notes.String
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]inventory.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.product_id, s.quantity, s.unit_price, s.total_price,
		       s.sale_date, s.customer_name, s.notes, p.name
		FROM sales s
		LEFT JOIN products p ON s.product_id = p.id
		ORDER BY s.sale_date DESC, s.id DESC`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list sales", Err: err}
	}
	defer rows.Close()

	var sales []inventory.Sale
	for rows.Next() {
		var (
			sale         inventory.Sale
			unitPrice    string
			totalPrice   string
			saleDate     string
			customerName sql.NullString
			notes        sql.NullString
			productName  sql.NullString
		)
		err := rows.Scan(&sale.ID, &sale.ProductID, &sale.Quantity,
			&unitPrice, &totalPrice, &saleDate, &customerName, &notes, &productName)
		if err != nil {
			return nil, &inventory.StorageError{Op: "scan sale", Err: err}
		}
		sale.UnitPrice = parseDecimal(unitPrice)
		sale.TotalPrice = parseDecimal(totalPrice)
		sale.SaleDate, _ = time.Parse(time.RFC3339, saleDate)
		sale.CustomerName = customerName.String
		sale.Notes = notes.String
		sale.ProductName = productName.String
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, &inventory.StorageError{Op: "list categories", Err: err}
	}
	defer rows.Close()

	var categories []inventory.Category
	for rows.Next() {
		var (
			c           inventory.Category
			description sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&c.ID, &c.Name, &description, &createdAt); err != nil {
			return nil, &inventory.StorageError{Op: "scan category", Err: err}
		}
		c.Description = description.String
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c *inventory.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, description, created_at) VALUES (?, ?, ?)",
		c.Name, c.Description, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return &inventory.StorageError{Op: "create category", Err: err}
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *inventory.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, description = ? WHERE id = ?",
		c.Name, c.Description, c.ID)
	if err != nil {
		return &inventory.StorageError{Op: "update category", Err: err}
	}
	return nil
}

// DeleteCategory never cascades: products referencing the category keep a
// dangling category_id that resolves to an empty name.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return &inventory.StorageError{Op: "delete category", Err: err}
	}
	return nil
}

// =============================================================================
// SUPPLIERS
// =============================================================================

func (s *Store) ListSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, contact_person, email, phone, address, created_at FROM suppliers ORDER BY name")
	if err != nil {
		return nil, &inventory.StorageError{Op: "list suppliers", Err: err}
	}
	defer rows.Close()

	var suppliers []inventory.Supplier
	for rows.Next() {
		var (
			sup                            inventory.Supplier
			contact, email, phone, address sql.NullString
			createdAt                      string
		)
		if err := rows.Scan(&sup.ID, &sup.Name, &contact, &email, &phone, &address, &createdAt); err != nil {
			return nil, &inventory.StorageError{Op: "scan supplier", Err: err}
		}
		sup.ContactPerson = contact.String
		sup.Email = email.String
		sup.Phone = phone.String
		sup.Address = address.String
		sup.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, sup *inventory.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (name, contact_person, email, phone, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sup.Name, sup.ContactPerson, sup.Email, sup.Phone, sup.Address,
		sup.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return &inventory.StorageError{Op: "create supplier", Err: err}
	}
	sup.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sup *inventory.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE suppliers SET name = ?, contact_person = ?, email = ?, phone = ?, address = ?
		WHERE id = ?`,
		sup.Name, sup.ContactPerson, sup.Email, sup.Phone, sup.Address, sup.ID)
	if err != nil {
		return &inventory.StorageError{Op: "update supplier", Err: err}
	}
	return nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = ?", id)
	if err != nil {
		return &inventory.StorageError{Op: "delete supplier", Err: err}
	}
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) ListExpenses(ctx context.Context) ([]inventory.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, description, amount, expense_date, notes
		FROM expenses ORDER BY expense_date DESC, id DESC`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "list expenses", Err: err}
	}
	defer rows.Close()

	var expenses []inventory.Expense
	for rows.Next() {
		var (
			e                  inventory.Expense
			description, notes sql.NullString
			amount             string
			expenseDate        string
		)
		if err := rows.Scan(&e.ID, &e.Category, &description, &amount, &expenseDate, &notes); err != nil {
			return nil, &inventory.StorageError{Op: "scan expense", Err: err}
		}
		e.Description = description.String
		e.Amount = parseDecimal(amount)
		e.ExpenseDate, _ = time.Parse(time.RFC3339, expenseDate)
		e.Notes = notes.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e *inventory.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (category, description, amount, expense_date, notes)
		VALUES (?, ?, ?, ?, ?)`,
		e.Category, e.Description, e.Amount.String(),
		e.ExpenseDate.UTC().Format(time.RFC3339), e.Notes)
	if err != nil {
		return &inventory.StorageError{Op: "create expense", Err: err}
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) UpdateExpense(ctx context.Context, e *inventory.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE expenses SET category = ?, description = ?, amount = ?, expense_date = ?, notes = ?
		WHERE id = ?`,
		e.Category, e.Description, e.Amount.String(),
		e.ExpenseDate.UTC().Format(time.RFC3339), e.Notes, e.ID)
	if err != nil {
		return &inventory.StorageError{Op: "update expense", Err: err}
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return &inventory.StorageError{Op: "delete expense", Err: err}
	}
	return nil
}

// =============================================================================
// REPORT SCANS (inventory.ReportStore)
// =============================================================================

// sumColumn loads a monetary column and accumulates it as decimal in Go.
// SQL SUM is avoided on purpose: the column stores decimal strings, and
// aggregation must keep full precision.
func (s *Store) sumColumn(ctx context.Context, table, column, dateColumn string, r *inventory.DateRange) (decimal.Decimal, error) {
	query := "SELECT " + column + " FROM " + table
	var args []any
	if r != nil {
		query += " WHERE date(" + dateColumn + ") BETWEEN ? AND ?"
		args = append(args, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, &inventory.StorageError{Op: "sum " + table, Err: err}
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return decimal.Zero, &inventory.StorageError{Op: "sum " + table, Err: err}
		}
		total = total.Add(parseDecimal(v))
	}
	return total, rows.Err()
}

func (s *Store) SumSales(ctx context.Context, r *inventory.DateRange) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumColumn(ctx, "sales", "total_price", "sale_date", r)
}

func (s *Store) SumPurchases(ctx context.Context, r *inventory.DateRange) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumColumn(ctx, "purchases", "total_cost", "purchase_date", r)
}

func (s *Store) SumExpenses(ctx context.Context, r *inventory.DateRange) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumColumn(ctx, "expenses", "amount", "expense_date", r)
}

func (s *Store) LowStockProducts(ctx context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.stock_quantity <= p.reorder_level
		ORDER BY (p.stock_quantity - p.reorder_level) ASC`)
	if err != nil {
		return nil, &inventory.StorageError{Op: "low stock products", Err: err}
	}
	defer rows.Close()

	var products []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, &inventory.StorageError{Op: "scan product", Err: err}
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) SalesGroupedByProduct(ctx context.Context, r *inventory.DateRange) ([]inventory.ProductSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Inner join: sales of deleted products are omitted, never rendered
	// as nameless rows. Grouping happens in Go so revenue stays decimal.
	query := `
		SELECT s.product_id, p.name, s.quantity, s.total_price
		FROM sales s
		JOIN products p ON s.product_id = p.id`
	var args []any
	if r != nil {
		query += " WHERE date(s.sale_date) BETWEEN ? AND ?"
		args = append(args, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &inventory.StorageError{Op: "sales by product", Err: err}
	}
	defer rows.Close()

	grouped := make(map[int64]*inventory.ProductSales)
	var order []int64
	for rows.Next() {
		var (
			productID  int64
			name       string
			quantity   int64
			totalPrice string
		)
		if err := rows.Scan(&productID, &name, &quantity, &totalPrice); err != nil {
			return nil, &inventory.StorageError{Op: "sales by product", Err: err}
		}
		g, ok := grouped[productID]
		if !ok {
			g = &inventory.ProductSales{ProductName: name, TotalRevenue: decimal.Zero}
			grouped[productID] = g
			order = append(order, productID)
		}
		g.TotalQuantity += quantity
		g.TotalRevenue = g.TotalRevenue.Add(parseDecimal(totalPrice))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]inventory.ProductSales, 0, len(order))
	for _, id := range order {
		out = append(out, *grouped[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
	})
	return out, nil
}

func (s *Store) SummaryCounts(ctx context.Context) (*inventory.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &inventory.Summary{
		SalesRevenue:   decimal.Zero,
		PurchasesCost:  decimal.Zero,
		ExpensesAmount: decimal.Zero,
	}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(stock_quantity), 0) FROM products",
	).Scan(&sum.Products, &sum.TotalStock)
	if err != nil {
		return nil, &inventory.StorageError{Op: "summary products", Err: err}
	}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM categories", &sum.Categories},
		{"SELECT COUNT(*) FROM suppliers", &sum.Suppliers},
		{"SELECT COUNT(*) FROM sales", &sum.SalesCount},
		{"SELECT COUNT(*) FROM purchases", &sum.PurchasesCount},
		{"SELECT COUNT(*) FROM expenses", &sum.ExpensesCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, &inventory.StorageError{Op: "summary counts", Err: err}
		}
	}

	if sum.SalesRevenue, err = s.sumColumn(ctx, "sales", "total_price", "sale_date", nil); err != nil {
		return nil, err
	}
	if sum.PurchasesCost, err = s.sumColumn(ctx, "purchases", "total_cost", "purchase_date", nil); err != nil {
		return nil, err
	}
	if sum.ExpensesAmount, err = s.sumColumn(ctx, "expenses", "amount", "expense_date", nil); err != nil {
		return nil, err
	}
	return sum, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

func (s *Store) deleteRow(ctx context.Context, q querier, table string, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return &inventory.StorageError{Op: "delete from " + table, Err: err}
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"sales", "purchases", "expenses", "products", "suppliers", "categories"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
