/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Internally every amount is decimal.Decimal. DTOs render money as JSON
  numbers rounded to two decimal places at this boundary only; nothing
  upstream ever rounds.

DATES:
  Record dates accept and emit YYYY-MM-DD. created_at timestamps emit
  RFC3339.

VALIDATION:
  Validation is done in handlers and the ledger, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/reports"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CategoryRequest is the request to create or update a category.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SupplierDTO represents a supplier in API responses.
type SupplierDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// SupplierRequest is the request to create or update a supplier.
type SupplierRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku,omitempty"`
	CategoryID    *int64  `json:"category_id"`
	CategoryName  string  `json:"category_name,omitempty"`
	Description   string  `json:"description,omitempty"`
	UnitPrice     float64 `json:"unit_price"`
	StockQuantity int64   `json:"stock_quantity"`
	ReorderLevel  int64   `json:"reorder_level"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// ProductRequest is the request to create or update a product.
// stock_quantity is honored on create only; updates never touch stock.
type ProductRequest struct {
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	CategoryID    *int64  `json:"category_id"`
	Description   string  `json:"description"`
	UnitPrice     float64 `json:"unit_price"`
	StockQuantity int64   `json:"stock_quantity"`
	ReorderLevel  int64   `json:"reorder_level"`
}

// PurchaseDTO represents a purchase record in API responses.
type PurchaseDTO struct {
	ID           int64   `json:"id"`
	SupplierID   *int64  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name,omitempty"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name,omitempty"`
	Quantity     int64   `json:"quantity"`
	UnitCost     float64 `json:"unit_cost"`
	TotalCost    float64 `json:"total_cost"`
	PurchaseDate string  `json:"purchase_date"`
	Notes        string  `json:"notes,omitempty"`
}

// PurchaseRequest is the request to record a purchase.
type PurchaseRequest struct {
	SupplierID   *int64  `json:"supplier_id"`
	ProductID    int64   `json:"product_id"`
	Quantity     int64   `json:"quantity"`
	UnitCost     float64 `json:"unit_cost"`
	PurchaseDate string  `json:"purchase_date"`
	Notes        string  `json:"notes"`
}

// SaleDTO represents a sale record in API responses.
type SaleDTO struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name,omitempty"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
	SaleDate     string  `json:"sale_date"`
	CustomerName string  `json:"customer_name,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// SaleRequest is the request to record a sale.
type SaleRequest struct {
	ProductID    int64   `json:"product_id"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	SaleDate     string  `json:"sale_date"`
	CustomerName string  `json:"customer_name"`
	Notes        string  `json:"notes"`
}

// ExpenseDTO represents an expense in API responses.
type ExpenseDTO struct {
	ID          int64   `json:"id"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	ExpenseDate string  `json:"expense_date"`
	Notes       string  `json:"notes,omitempty"`
}

// ExpenseRequest is the request to create or update an expense.
type ExpenseRequest struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	ExpenseDate string  `json:"expense_date"`
	Notes       string  `json:"notes"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// ProfitLossDTO is the income statement response.
type ProfitLossDTO struct {
	Revenue     float64 `json:"revenue"`
	CostOfGoods float64 `json:"cost_of_goods"`
	Expenses    float64 `json:"expenses"`
	GrossProfit float64 `json:"gross_profit"`
	NetProfit   float64 `json:"net_profit"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
}

// ProductSalesDTO is one row of the sales-by-product report.
type ProductSalesDTO struct {
	ProductName   string  `json:"product_name"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// SummaryDTO is the dashboard summary response.
type SummaryDTO struct {
	Products       int64   `json:"products"`
	TotalStock     int64   `json:"total_stock"`
	Categories     int64   `json:"categories"`
	Suppliers      int64   `json:"suppliers"`
	SalesCount     int64   `json:"sales_count"`
	SalesRevenue   float64 `json:"sales_revenue"`
	PurchasesCount int64   `json:"purchases_count"`
	PurchasesCost  float64 `json:"purchases_cost"`
	ExpensesCount  int64   `json:"expenses_count"`
	ExpensesAmount float64 `json:"expenses_amount"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// money renders a decimal amount as a JSON number rounded to cents.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func toCategoryDTO(c inventory.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

func toSupplierDTO(s inventory.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:            s.ID,
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTO(p inventory.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		CategoryID:    p.CategoryID,
		CategoryName:  p.CategoryName,
		Description:   p.Description,
		UnitPrice:     money(p.UnitPrice),
		StockQuantity: p.StockQuantity,
		ReorderLevel:  p.ReorderLevel,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func toPurchaseDTO(p inventory.Purchase) PurchaseDTO {
	return PurchaseDTO{
		ID:           p.ID,
		SupplierID:   p.SupplierID,
		SupplierName: p.SupplierName,
		ProductID:    p.ProductID,
		ProductName:  p.ProductName,
		Quantity:     p.Quantity,
		UnitCost:     money(p.UnitCost),
		TotalCost:    money(p.TotalCost),
		PurchaseDate: p.PurchaseDate.Format("2006-01-02"),
		Notes:        p.Notes,
	}
}

func toSaleDTO(s inventory.Sale) SaleDTO {
	return SaleDTO{
		ID:           s.ID,
		ProductID:    s.ProductID,
		ProductName:  s.ProductName,
		Quantity:     s.Quantity,
		UnitPrice:    money(s.UnitPrice),
		TotalPrice:   money(s.TotalPrice),
		SaleDate:     s.SaleDate.Format("2006-01-02"),
		CustomerName: s.CustomerName,
		Notes:        s.Notes,
	}
}

func toExpenseDTO(e inventory.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Category:    e.Category,
		Description: e.Description,
		Amount:      money(e.Amount),
		ExpenseDate: e.ExpenseDate.Format("2006-01-02"),
		Notes:       e.Notes,
	}
}

func toProfitLossDTO(pl *reports.ProfitAndLoss) ProfitLossDTO {
	dto := ProfitLossDTO{
		Revenue:     money(pl.Revenue),
		CostOfGoods: money(pl.CostOfGoods),
		Expenses:    money(pl.Expenses),
		GrossProfit: money(pl.GrossProfit),
		NetProfit:   money(pl.NetProfit),
	}
	if pl.Period != nil {
		dto.StartDate = pl.Period.Start.Format("2006-01-02")
		dto.EndDate = pl.Period.End.Format("2006-01-02")
	}
	return dto
}

func toSummaryDTO(s *inventory.Summary) SummaryDTO {
	return SummaryDTO{
		Products:       s.Products,
		TotalStock:     s.TotalStock,
		Categories:     s.Categories,
		Suppliers:      s.Suppliers,
		SalesCount:     s.SalesCount,
		SalesRevenue:   money(s.SalesRevenue),
		PurchasesCount: s.PurchasesCount,
		PurchasesCost:  money(s.PurchasesCost),
		ExpensesCount:  s.ExpensesCount,
		ExpensesAmount: money(s.ExpensesAmount),
	}
}
