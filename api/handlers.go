/*
handlers.go - HTTP API handlers for the stock management system

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Catalog:
    GET    /api/categories             List categories
    POST   /api/categories             Create category
    PUT    /api/categories/{id}        Update category
    DELETE /api/categories/{id}        Delete category (never cascades)
    (suppliers: same shape)

  Products:
    GET    /api/products               List products (?search= filters)
    GET    /api/products/{id}          Get product
    POST   /api/products               Create product (opening stock)
    PUT    /api/products/{id}          Update product (stock untouched)
    DELETE /api/products/{id}          Delete product

  Stock movements:
    GET    /api/purchases              List purchases
    POST   /api/purchases              Record purchase (stock +qty)
    DELETE /api/purchases/{id}         Delete purchase (stock -qty)
    GET    /api/sales                  List sales
    POST   /api/sales                  Record sale (guarded stock -qty)
    DELETE /api/sales/{id}             Delete sale (stock +qty)

  Expenses:
    GET/POST /api/expenses, PUT/DELETE /api/expenses/{id}

  Reports:
    GET /api/reports/profit-loss       ?start_date=&end_date= optional
    GET /api/reports/low-stock
    GET /api/reports/sales-by-product  ?start_date=&end_date= optional
    GET /api/reports/summary

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, insufficient stock, invalid input
  - 404: Record not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - inventory/ledger.go: The compound stock operations
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/logging"
	"github.com/warp/stock-engine/metrics"
	"github.com/warp/stock-engine/reports"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   inventory.TxStore
	Ledger  *inventory.Ledger
	Reports *reports.Engine
}

// NewHandler creates a new handler over the given store.
func NewHandler(store inventory.TxStore) *Handler {
	return &Handler{
		Store:   store,
		Ledger:  inventory.NewLedger(store),
		Reports: reports.NewEngine(store),
	}
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a new category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	c := inventory.Category{Name: req.Name, Description: req.Description}
	if err := h.Store.CreateCategory(r.Context(), &c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(c))
}

// UpdateCategory updates a category. Updating a missing id is a no-op.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := inventory.Category{ID: id, Name: req.Name, Description: req.Description}
	if err := h.Store.UpdateCategory(r.Context(), &c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(c))
}

// DeleteCategory deletes a category. Idempotent; never cascades to
// products.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

// ListSuppliers returns all suppliers.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.Store.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list suppliers", err)
		return
	}

	dtos := make([]SupplierDTO, len(suppliers))
	for i, s := range suppliers {
		dtos[i] = toSupplierDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSupplier creates a new supplier.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	s := inventory.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}
	if err := h.Store.CreateSupplier(r.Context(), &s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSupplierDTO(s))
}

// UpdateSupplier updates a supplier. Updating a missing id is a no-op.
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s := inventory.Supplier{
		ID:            id,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}
	if err := h.Store.UpdateSupplier(r.Context(), &s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update supplier", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(s))
}

// DeleteSupplier deletes a supplier. Idempotent; purchase history keeps
// the dangling supplier_id.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteSupplier(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete supplier", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns products, optionally filtered by ?search= on
// name or SKU.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// CreateProduct creates a product with an opening stock balance.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	p := inventory.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		UnitPrice:     decimal.NewFromFloat(req.UnitPrice),
		StockQuantity: req.StockQuantity,
		ReorderLevel:  req.ReorderLevel,
	}
	if err := h.Store.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct updates catalog fields. Stock is owned by the ledger and
// cannot be set here; stock_quantity in the body is ignored.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p := inventory.Product{
		ID:           id,
		Name:         req.Name,
		SKU:          req.SKU,
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		UnitPrice:    decimal.NewFromFloat(req.UnitPrice),
		ReorderLevel: req.ReorderLevel,
	}
	if err := h.Store.UpdateProduct(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update product", err)
		return
	}

	// Re-read so the response carries the authoritative stock balance.
	updated, err := h.Store.GetProduct(r.Context(), id)
	if err != nil || updated == nil {
		writeJSON(w, http.StatusOK, toProductDTO(p))
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*updated))
}

// DeleteProduct deletes a product. Idempotent; purchase and sale history
// survive with dangling product_ids.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// PURCHASE HANDLERS
// =============================================================================

// ListPurchases returns purchase history, newest first.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.Store.ListPurchases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list purchases", err)
		return
	}

	dtos := make([]PurchaseDTO, len(purchases))
	for i, p := range purchases {
		dtos[i] = toPurchaseDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePurchase records a purchase and increments stock atomically.
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	purchaseDate, ok := parseDate(w, req.PurchaseDate, "purchase_date")
	if !ok {
		return
	}

	purchase, err := h.Ledger.RecordPurchase(r.Context(), inventory.PurchaseInput{
		SupplierID:   req.SupplierID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		UnitCost:     decimal.NewFromFloat(req.UnitCost),
		PurchaseDate: purchaseDate,
		Notes:        req.Notes,
	})
	if err != nil {
		writeDomainError(w, "Failed to record purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseDTO(*purchase))
}

// DeletePurchase deletes a purchase and reverses its stock increment.
func (h *Handler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.DeletePurchase(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete purchase", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns sale history, newest first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}

	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSale records a sale. The stock decrement is conditional: a sale
// that would push stock negative is rejected with 400 and no record is
// written.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saleDate, ok := parseDate(w, req.SaleDate, "sale_date")
	if !ok {
		return
	}

	sale, err := h.Ledger.RecordSale(r.Context(), inventory.SaleInput{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		UnitPrice:    decimal.NewFromFloat(req.UnitPrice),
		SaleDate:     saleDate,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			metrics.SaleRejections.Inc()
			logging.L().Warn("sale rejected",
				zap.Int64("product_id", req.ProductID),
				zap.Int64("quantity", req.Quantity))
		}
		writeDomainError(w, "Failed to record sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*sale))
}

// DeleteSale deletes a sale and restores its stock.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteSale(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete sale", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns expenses, newest first.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense creates an expense. Expenses never touch stock.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required", nil)
		return
	}

	expenseDate, ok := parseDate(w, req.ExpenseDate, "expense_date")
	if !ok {
		return
	}

	e := inventory.Expense{
		Category:    req.Category,
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount),
		ExpenseDate: expenseDate,
		Notes:       req.Notes,
	}
	if err := h.Store.CreateExpense(r.Context(), &e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// UpdateExpense updates an expense. Updating a missing id is a no-op.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	expenseDate, ok := parseDate(w, req.ExpenseDate, "expense_date")
	if !ok {
		return
	}

	e := inventory.Expense{
		ID:          id,
		Category:    req.Category,
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount),
		ExpenseDate: expenseDate,
		Notes:       req.Notes,
	}
	if err := h.Store.UpdateExpense(r.Context(), &e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

// DeleteExpense deletes an expense. Idempotent.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ProfitLoss returns the income statement, optionally scoped to an
// inclusive ?start_date=&end_date= range.
func (h *Handler) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	period, ok := queryRange(w, r)
	if !ok {
		return
	}

	pl, err := h.Reports.ProfitAndLoss(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute profit/loss", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfitLossDTO(pl))
}

// LowStock returns products at or below their reorder level, most
// urgent first.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Reports.LowStock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute low stock", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SalesByProduct returns per-product sales totals, highest revenue
// first.
func (h *Handler) SalesByProduct(w http.ResponseWriter, r *http.Request) {
	period, ok := queryRange(w, r)
	if !ok {
		return
	}

	rows, err := h.Reports.SalesByProduct(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute sales by product", err)
		return
	}

	dtos := make([]ProductSalesDTO, len(rows))
	for i, row := range rows {
		dtos[i] = ProductSalesDTO{
			ProductName:   row.ProductName,
			TotalQuantity: row.TotalQuantity,
			TotalRevenue:  money(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Summary returns the dashboard summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Reports.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// =============================================================================
// HELPERS
// =============================================================================

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// parseDate parses an optional YYYY-MM-DD field. Empty means zero time,
// which the ledger defaults to now.
func parseDate(w http.ResponseWriter, value, field string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+field+" format (use YYYY-MM-DD)", err)
		return time.Time{}, false
	}
	return t, true
}

// queryRange parses optional ?start_date=&end_date= into a DateRange.
// Both must be present together; nil means all time.
func queryRange(w http.ResponseWriter, r *http.Request) (*inventory.DateRange, bool) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	if start == "" && end == "" {
		return nil, true
	}
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start_date and end_date must be provided together", nil)
		return nil, false
	}

	startT, err := time.Parse("2006-01-02", start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return nil, false
	}
	endT, err := time.Parse("2006-01-02", end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return nil, false
	}

	dr := inventory.NewDateRange(startT, endT)
	if !dr.Valid() {
		writeError(w, http.StatusBadRequest, "end_date must not be before start_date", nil)
		return nil, false
	}
	return &dr, true
}

// writeDomainError maps ledger errors to HTTP statuses: not found to
// 404, validation and insufficient stock to 400, everything else 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case inventory.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	// 4xx details help the caller fix the request. Server-side failures
	// stay in the logs: the wrapped driver error never reaches clients.
	if err != nil {
		if status < http.StatusInternalServerError {
			resp.Details = err.Error()
		} else {
			logging.L().Error(message, zap.Error(err))
		}
	}
	writeJSON(w, status, resp)
}
