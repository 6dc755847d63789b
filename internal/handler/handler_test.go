package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/receipt"
	"go-udhar-pos/internal/repository/memory"
	"go-udhar-pos/internal/service"
	"go-udhar-pos/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	app   *fiber.App
	store *store.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("JWT_SECRET", "handler-test")
	ctx := context.Background()
	log := zap.NewNop()

	mem := memory.New()
	st := store.New()
	require.NoError(t, st.Load(ctx, mem.Products(), mem.Invoices()))

	catalog := service.NewCatalogService(st, mem.Products(), nil, log)
	settlement := service.NewSettlementService(st, mem.Products(), mem.Invoices(), nil, log)
	ledger := service.NewLedgerService(st, mem.Invoices(), nil, log)
	carts := service.NewCartService(st, settlement)
	auth := service.NewAuthService(mem.Users(), log)
	users := service.NewUserService(mem.Users(), log)

	require.NoError(t, users.EnsureAdmin(ctx, "admin", "admin123"))
	_, err := users.CreateUser(ctx, &service.CreateUserRequest{Username: "bilal", Password: "secret1", Name: "Bilal", Role: model.RoleStaff}, model.Identity{Name: "test"})
	require.NoError(t, err)

	products := NewProductHandler(catalog)
	cart := NewCartHandler(carts)
	invoices := NewInvoiceHandler(settlement, receipt.NewRenderer(receipt.StoreInfo{Name: "Test Store"}, nil))
	udhar := NewUdharHandler(ledger)
	authHandler := NewAuthHandler(auth)
	reports := NewReportHandler(service.NewReportService(st, mem.Movements(), nil))

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.RequireAuth(auth))
	adminOnly := middleware.RequireAdmin()
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/products", adminOnly, products.CreateProduct)
	protected.Get("/products/:id/units", products.GetUnitOptions)
	protected.Post("/cart/items", cart.AddItem)
	protected.Get("/cart", cart.GetCart)
	protected.Post("/checkout", cart.Checkout)
	protected.Get("/invoices/:id/receipt", invoices.GetReceipt)
	protected.Delete("/invoices/:id", adminOnly, invoices.DeleteInvoice)
	protected.Get("/udhar", udhar.GetOutstanding)
	protected.Post("/udhar/:id/payments", udhar.CollectPayment)
	protected.Get("/products/:id/movements", reports.GetProductMovements)
	protected.Get("/reports/stock-movement", reports.GetStockMovement)

	return &testApp{app: app, store: st}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp service.LoginResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Token
}

func TestAuthRequired(t *testing.T) {
	a := newTestApp(t)

	status, _ := a.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "bilal", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	token := a.login(t, "bilal", "secret1")
	status, body := a.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var who model.Identity
	require.NoError(t, json.Unmarshal(body, &who))
	assert.Equal(t, "Bilal", who.Name)
	assert.Equal(t, model.RoleStaff, who.Role)

	status, _ = a.do(t, http.MethodPost, "/api/v1/products", token, model.Product{Name: "Rice", UnitLabel: model.UnitKg})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSaleAndCollectionFlow(t *testing.T) {
	a := newTestApp(t)
	admin := a.login(t, "admin", "admin123")
	staff := a.login(t, "bilal", "secret1")

	status, body := a.do(t, http.MethodPost, "/api/v1/products", admin, model.Product{
		Name: "Basmati Rice", Category: model.CategoryLoose, CostPrice: 800, SellPrice: 1000, Stock: 10, UnitLabel: model.UnitKg,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		Data model.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	productID := created.Data.ID

	status, _ = a.do(t, http.MethodPost, "/api/v1/cart/items", staff, service.AddItemRequest{ProductID: productID, UnitLabel: "20 Kg"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = a.do(t, http.MethodPost, "/api/v1/cart/items", staff, service.AddItemRequest{ProductID: productID, UnitLabel: "2 Kg"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, _ = a.do(t, http.MethodPost, "/api/v1/checkout", staff, service.CheckoutRequest{Mode: model.PaymentPartial, CashReceived: 500})
	assert.Equal(t, http.StatusBadRequest, status)

	due := a.store.Products()[0].CreatedAt.AddDate(0, 0, 7)
	status, body = a.do(t, http.MethodPost, "/api/v1/checkout", staff, service.CheckoutRequest{
		Mode:         model.PaymentPartial,
		Customer:     model.Customer{Name: "Ahmed", Phone: "0300-1234567"},
		DueDate:      &due,
		CashReceived: 500,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var checkout struct {
		Data service.CheckoutResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &checkout))
	inv := checkout.Data.Invoice
	assert.Equal(t, 2000.0, inv.Total)
	assert.Equal(t, 1500.0, inv.Remaining)
	assert.Equal(t, "Bilal", inv.UserName)

	status, body = a.do(t, http.MethodGet, "/api/v1/cart", staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"total":0`)

	status, body = a.do(t, http.MethodGet, "/api/v1/udhar?q=ahmed", staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"total_receivable":1500`)

	path := "/api/v1/udhar/1/payments"
	status, _ = a.do(t, http.MethodPost, path, staff, map[string]float64{"amount": 2000})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(t, http.MethodPost, path, staff, map[string]float64{"amount": 600})
	require.Equal(t, http.StatusOK, status, string(body))
	stored, ok := a.store.Invoice(1)
	require.True(t, ok)
	assert.Equal(t, 900.0, stored.Remaining)

	status, body = a.do(t, http.MethodGet, "/api/v1/invoices/1/receipt", staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "Remaining (Udhar):"))
	assert.Contains(t, string(body), "Rs 900.00")

	status, _ = a.do(t, http.MethodGet, "/api/v1/invoices/abc/receipt", staff, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = a.do(t, http.MethodGet, "/api/v1/invoices/99/receipt", staff, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodDelete, "/api/v1/invoices/1", staff, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = a.do(t, http.MethodDelete, "/api/v1/invoices/1", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10.0, a.store.Products()[0].Stock)

	status, body = a.do(t, http.MethodGet, "/api/v1/products/"+productID.String()+"/movements", staff, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var history struct {
		Data []model.StockMovement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.Data, 3)
	assert.Equal(t, model.RestoreReference(1, 0), history.Data[0].Reference)
	assert.Equal(t, model.SaleReference(1, 0), history.Data[1].Reference)
	assert.Equal(t, model.MovementIn, history.Data[2].Type)

	status, body = a.do(t, http.MethodGet, "/api/v1/reports/stock-movement?days=3", staff, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"period":3`)
}
