package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LedgerService interface {
	// ListOutstanding returns unpaid invoices, oldest first. A non-empty
	// search matches customer name, phone or invoice id.
	ListOutstanding(search string) []model.Invoice
	CollectPayment(ctx context.Context, id uint, amount float64, who model.Identity) (*model.Invoice, error)
	ListOverdue(now time.Time) []model.Invoice
	TotalReceivable() float64
}

type ledgerService struct {
	store       *store.Store
	invoiceRepo repository.InvoiceRepository
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time

	// collections on this process are serialized so two payments against the
	// same invoice cannot both read the old balance
	mu sync.Mutex
}

func NewLedgerService(st *store.Store, iRepo repository.InvoiceRepository, notifier Notifier, log *zap.Logger) LedgerService {
	return &ledgerService{
		store:       st,
		invoiceRepo: iRepo,
		notifier:    notifierOrNop(notifier),
		log:         log,
		now:         time.Now,
	}
}

func (s *ledgerService) ListOutstanding(search string) []model.Invoice {
	return Outstanding(s.store.Invoices(), search)
}

// CollectPayment records a payment against an invoice's outstanding balance.
// Persistence is written first; the store only changes once it succeeded.
func (s *ledgerService) CollectPayment(ctx context.Context, id uint, amount float64, who model.Identity) (*model.Invoice, error) {
	const op = "collect payment"
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.store.Invoice(id)
	if !ok {
		return nil, notFoundError(op, "invoice %d", id)
	}
	if amount <= 0 {
		return nil, validationError(op, "amount must be positive, got %v", amount)
	}
	if amount > inv.Remaining {
		return nil, validationError(op, "amount %v exceeds remaining balance %v", amount, inv.Remaining)
	}

	// the balance is always re-derived from the total so repeated small
	// collections cannot drift paid + remaining away from it
	paid := decimal.NewFromFloat(inv.Paid).Add(decimal.NewFromFloat(amount))
	updated := inv
	updated.Paid = paid.InexactFloat64()
	updated.Remaining = decimal.NewFromFloat(inv.Total).Sub(paid).InexactFloat64()
	updated.Status = model.StatusFor(updated.Remaining)
	updated.History = append(append([]model.PaymentHistoryEntry(nil), inv.History...), model.PaymentHistoryEntry{
		Date:       s.now(),
		Amount:     amount,
		RecordedBy: who.Name,
	})

	err := s.invoiceRepo.UpdatePayment(ctx, id, repository.PaymentUpdate{
		Paid:      updated.Paid,
		Remaining: updated.Remaining,
		Status:    updated.Status,
		History:   updated.History,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(op, "invoice %d", id)
		}
		return nil, persistenceError(op, err)
	}
	if err := s.store.UpsertInvoice(updated); err != nil {
		s.log.Error("store rejected collected invoice", zap.Uint("invoice_id", id), zap.Error(err))
	}

	s.log.Info("payment collected",
		zap.Uint("invoice_id", id),
		zap.Float64("amount", amount),
		zap.Float64("remaining", updated.Remaining),
		zap.String("recorded_by", who.Name),
	)

	s.notifier.Publish("udhar_update", "payment_collected", map[string]interface{}{
		"invoice": invoicePayload(updated),
		"amount":  amount,
		"user":    userPayload(who),
		"message": fmt.Sprintf("%s collected %g from %s on invoice #%d", who.Name, amount, updated.Customer.Name, id),
	})
	return &updated, nil
}

func (s *ledgerService) ListOverdue(now time.Time) []model.Invoice {
	return Overdue(s.store.Invoices(), now)
}

func (s *ledgerService) TotalReceivable() float64 {
	return TotalReceivable(s.store.Invoices())
}

// Outstanding filters invoices with a balance left and orders them oldest
// first, ties broken by id.
func Outstanding(invoices []model.Invoice, search string) []model.Invoice {
	term := strings.ToLower(strings.TrimSpace(search))
	var out []model.Invoice
	for _, inv := range invoices {
		if inv.Remaining <= 0 {
			continue
		}
		if term != "" && !matches(inv, term) {
			continue
		}
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Overdue is the outstanding subset whose due date has passed.
func Overdue(invoices []model.Invoice, now time.Time) []model.Invoice {
	var out []model.Invoice
	for _, inv := range Outstanding(invoices, "") {
		if inv.IsOverdue(now) {
			out = append(out, inv)
		}
	}
	return out
}

func TotalReceivable(invoices []model.Invoice) float64 {
	var total float64
	for _, inv := range invoices {
		total += inv.Remaining
	}
	return total
}

func matches(inv model.Invoice, term string) bool {
	return strings.Contains(strings.ToLower(inv.Customer.Name), term) ||
		strings.Contains(strings.ToLower(inv.Customer.Phone), term) ||
		strings.Contains(strconv.FormatUint(uint64(inv.ID), 10), term)
}
