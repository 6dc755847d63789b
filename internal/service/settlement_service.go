package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultStockRetries    = 3
	defaultStockRetryDelay = 100 * time.Millisecond
)

type CheckoutRequest struct {
	Mode         model.PaymentType `json:"mode"`
	Customer     model.Customer    `json:"customer"`
	DueDate      *time.Time        `json:"due_date"`
	CashReceived float64           `json:"cash_received"`
}

// StockFailure records a stock adjustment that could not be applied after the
// invoice was already committed.
type StockFailure struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Delta     float64 `json:"delta"`
	Error     string  `json:"error"`
}

type CheckoutResult struct {
	Invoice       model.Invoice  `json:"invoice"`
	StockFailures []StockFailure `json:"stock_failures,omitempty"`
}

type SettlementService interface {
	// ListInvoices returns invoices newest first, optionally only those with
	// the given status.
	ListInvoices(status model.InvoiceStatus) []model.Invoice
	GetInvoice(id uint) (*model.Invoice, error)
	Checkout(ctx context.Context, cart *Cart, req CheckoutRequest, who model.Identity) (*CheckoutResult, error)
	DeleteInvoice(ctx context.Context, id uint, who model.Identity) ([]StockFailure, error)
}

type settlementService struct {
	store       *store.Store
	productRepo repository.ProductRepository
	invoiceRepo repository.InvoiceRepository
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time

	stockRetries    int
	stockRetryDelay time.Duration

	// held from the stock check until the sold quantities are written, so a
	// second cashier checks against the stock the first one left
	checkoutMu sync.Mutex
}

func NewSettlementService(st *store.Store, pRepo repository.ProductRepository, iRepo repository.InvoiceRepository, notifier Notifier, log *zap.Logger) SettlementService {
	return &settlementService{
		store:           st,
		productRepo:     pRepo,
		invoiceRepo:     iRepo,
		notifier:        notifierOrNop(notifier),
		log:             log,
		now:             time.Now,
		stockRetries:    defaultStockRetries,
		stockRetryDelay: defaultStockRetryDelay,
	}
}

func (s *settlementService) ListInvoices(status model.InvoiceStatus) []model.Invoice {
	all := s.store.Invoices()
	if status == "" {
		return all
	}
	out := make([]model.Invoice, 0, len(all))
	for _, inv := range all {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out
}

func (s *settlementService) GetInvoice(id uint) (*model.Invoice, error) {
	inv, ok := s.store.Invoice(id)
	if !ok {
		return nil, notFoundError("get invoice", "invoice %d", id)
	}
	return &inv, nil
}

// Checkout turns the cart into an invoice. Every validation and stock check
// runs before anything is written. The invoice insert is the commit point:
// once it succeeds the sale stands, and stock decrements that fail afterwards
// are logged and reported in the result instead of undoing the invoice.
func (s *settlementService) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest, who model.Identity) (*CheckoutResult, error) {
	const op = "checkout"
	if cart == nil || cart.IsEmpty() {
		return nil, validationError(op, "cart is empty")
	}
	if !req.Mode.Valid() {
		return nil, validationError(op, "unknown payment mode %q", req.Mode)
	}

	customer := model.Customer{
		Name:  strings.TrimSpace(req.Customer.Name),
		Phone: strings.TrimSpace(req.Customer.Phone),
	}
	if req.Mode != model.PaymentCash {
		if customer.Name == "" || customer.Phone == "" {
			return nil, validationError(op, "customer name and phone are required for %s sales", req.Mode)
		}
		if req.DueDate == nil {
			return nil, validationError(op, "due date is required for %s sales", req.Mode)
		}
	} else if customer.Name == "" {
		customer.Name = model.WalkInCustomer
	}

	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	lines := cart.Lines()
	if err := s.checkStock(op, lines); err != nil {
		return nil, err
	}

	total := cart.Total()
	paid, remaining := split(req.Mode, total, req.CashReceived)

	inv := model.Invoice{
		Date:        s.now(),
		Customer:    customer,
		Items:       snapshot(lines),
		Subtotal:    total,
		Total:       total,
		PaymentType: req.Mode,
		Paid:        paid,
		Remaining:   remaining,
		Status:      model.StatusFor(remaining),
		History:     []model.PaymentHistoryEntry{},
		UserName:    who.Name,
	}
	if req.Mode != model.PaymentCash {
		due := *req.DueDate
		inv.DueDate = &due
	}

	if err := s.invoiceRepo.Insert(ctx, &inv); err != nil {
		return nil, persistenceError(op, err)
	}

	// The sale is committed. Follow-up writes must not be cut short by the
	// caller going away.
	ctx = context.WithoutCancel(ctx)

	result := &CheckoutResult{Invoice: inv}
	for i, line := range lines {
		change := repository.StockChange{
			ProductID: line.ProductID,
			Delta:     -line.BaseQty,
			Type:      model.MovementOut,
			Reference: model.SaleReference(inv.ID, i),
			Note:      fmt.Sprintf("invoice #%d", inv.ID),
			By:        who.Name,
		}
		if f := s.applyStock(ctx, change, line.Name); f != nil {
			result.StockFailures = append(result.StockFailures, *f)
		}
	}

	if err := s.store.UpsertInvoice(inv); err != nil {
		s.log.Error("store rejected new invoice", zap.Uint("invoice_id", inv.ID), zap.Error(err))
	}
	cart.Clear()

	s.log.Info("invoice created",
		zap.Uint("invoice_id", inv.ID),
		zap.String("mode", string(inv.PaymentType)),
		zap.Float64("total", inv.Total),
		zap.Float64("remaining", inv.Remaining),
		zap.String("user", who.Name),
		zap.Int("stock_failures", len(result.StockFailures)),
	)

	s.notifier.Publish("invoice_update", "invoice_created", map[string]interface{}{
		"invoice": invoicePayload(inv),
		"user":    userPayload(who),
		"message": fmt.Sprintf("%s recorded invoice #%d for %s", who.Name, inv.ID, inv.Customer.Name),
	})
	return result, nil
}

// DeleteInvoice removes the invoice and puts its quantities back on the
// shelf. Products that no longer exist are skipped.
func (s *settlementService) DeleteInvoice(ctx context.Context, id uint, who model.Identity) ([]StockFailure, error) {
	const op = "delete invoice"
	inv, ok := s.store.Invoice(id)
	if !ok {
		return nil, notFoundError(op, "invoice %d", id)
	}

	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.store.RemoveInvoice(id)
			return nil, notFoundError(op, "invoice %d", id)
		}
		return nil, persistenceError(op, err)
	}
	s.store.RemoveInvoice(id)

	ctx = context.WithoutCancel(ctx)

	var failures []StockFailure
	for i, item := range inv.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			s.log.Debug("skip restore for item without product id", zap.Uint("invoice_id", id), zap.String("item", item.Name))
			continue
		}
		if _, ok := s.store.Product(pid); !ok {
			continue
		}
		change := repository.StockChange{
			ProductID: pid,
			Delta:     item.BaseQty,
			Type:      model.MovementIn,
			Reference: model.RestoreReference(id, i),
			Note:      fmt.Sprintf("invoice #%d deleted", id),
			By:        who.Name,
		}
		if f := s.applyStock(ctx, change, item.Name); f != nil {
			failures = append(failures, *f)
		}
	}

	s.log.Info("invoice deleted",
		zap.Uint("invoice_id", id),
		zap.String("user", who.Name),
		zap.Int("stock_failures", len(failures)),
	)

	s.notifier.Publish("invoice_update", "invoice_deleted", map[string]interface{}{
		"invoice": map[string]interface{}{"id": id, "customer": inv.Customer.Name, "total": inv.Total},
		"user":    userPayload(who),
		"message": fmt.Sprintf("%s deleted invoice #%d", who.Name, id),
	})
	return failures, nil
}

// checkStock compares the combined quantity per product against the current
// catalog. Lines for the same product in different units count together.
func (s *settlementService) checkStock(op string, lines []CartLine) error {
	need := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, l := range lines {
		if _, seen := need[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		need[l.ProductID] += l.BaseQty
	}
	for _, id := range order {
		p, ok := s.store.Product(id)
		if !ok {
			return notFoundError(op, "product %s", id)
		}
		if p.Stock < need[id] {
			return stockError(op, "%s: available %g %s, cart holds %g", p.Name, p.Stock, p.UnitLabel, need[id])
		}
	}
	return nil
}

// applyStock writes a stock change through persistence and mirrors the
// resulting level into the store. A non-nil result means the change was not
// applied.
func (s *settlementService) applyStock(ctx context.Context, change repository.StockChange, name string) *StockFailure {
	stock, err := s.adjustWithRetry(ctx, change)
	if err != nil {
		if change.Delta > 0 && errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		s.log.Error("stock adjustment failed",
			zap.String("product_id", change.ProductID.String()),
			zap.String("product", name),
			zap.String("reference", change.Reference),
			zap.Float64("delta", change.Delta),
			zap.Error(err),
		)
		return &StockFailure{ProductID: change.ProductID.String(), Name: name, Delta: change.Delta, Error: err.Error()}
	}
	s.store.SetStock(change.ProductID, stock)
	return nil
}

// adjustWithRetry resends the same change, reference included, so an attempt
// that committed but reported an error is not applied twice.
func (s *settlementService) adjustWithRetry(ctx context.Context, change repository.StockChange) (float64, error) {
	var lastErr error
	for attempt := 1; attempt <= s.stockRetries; attempt++ {
		stock, err := s.productRepo.AdjustStock(ctx, change)
		if err == nil {
			return stock, nil
		}
		lastErr = err
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrNegativeStock) {
			return 0, err
		}
		if attempt == s.stockRetries {
			break
		}
		s.log.Warn("retrying stock adjustment",
			zap.String("product_id", change.ProductID.String()),
			zap.String("reference", change.Reference),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt) * s.stockRetryDelay):
		}
	}
	return 0, lastErr
}

// split returns paid and remaining for a checkout mode.
func split(mode model.PaymentType, total, cash float64) (paid, remaining float64) {
	switch mode {
	case model.PaymentCredit:
		return 0, total
	case model.PaymentPartial:
		paid = cash
		if paid < 0 {
			paid = 0
		}
		if paid > total {
			paid = total
		}
		return paid, total - paid
	default:
		return total, 0
	}
}

func snapshot(lines []CartLine) []model.InvoiceItem {
	items := make([]model.InvoiceItem, 0, len(lines))
	for _, l := range lines {
		cost := l.CostPerBase
		items = append(items, model.InvoiceItem{
			ProductID:    l.ProductID.String(),
			Name:         l.Name,
			UnitLabel:    l.UnitLabel,
			Units:        l.Units,
			BaseQty:      l.BaseQty,
			PricePerBase: l.PricePerBase,
			CostPerBase:  &cost,
		})
	}
	return items
}

func invoicePayload(inv model.Invoice) map[string]interface{} {
	return map[string]interface{}{
		"id":           inv.ID,
		"customer":     inv.Customer.Name,
		"total":        inv.Total,
		"paid":         inv.Paid,
		"remaining":    inv.Remaining,
		"status":       inv.Status,
		"payment_type": inv.PaymentType,
	}
}
