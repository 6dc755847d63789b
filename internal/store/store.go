// Package store holds the process-wide view of the catalog and invoices.
//
// The store is constructed once, loaded from persistence, and then mutated
// only through engine calls or out-of-band change events. It never talks to
// persistence after Load.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidRecord = errors.New("invalid record")

// balanceTolerance absorbs float noise in paid + remaining; anything under
// half a paisa.
var balanceTolerance = decimal.New(5, -3)

type Store struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
	invoices map[uint]model.Invoice
}

func New() *Store {
	return &Store{
		products: make(map[uuid.UUID]model.Product),
		invoices: make(map[uint]model.Invoice),
	}
}

// Load replaces the store contents with what persistence currently holds.
func (s *Store) Load(ctx context.Context, products repository.ProductRepository, invoices repository.InvoiceRepository) error {
	ps, err := products.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	invs, err := invoices.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = make(map[uuid.UUID]model.Product, len(ps))
	for _, p := range ps {
		s.products[p.ID] = p
	}
	s.invoices = make(map[uint]model.Invoice, len(invs))
	for _, inv := range invs {
		s.invoices[inv.ID] = normalize(inv)
	}
	return nil
}

// Products returns all products ordered by name.
func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *Store) Product(id uuid.UUID) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok
}

// UpsertProduct inserts or replaces a product. Negative stock is rejected.
func (s *Store) UpsertProduct(p model.Product) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("%w: product without id", ErrInvalidRecord)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: product %s has negative stock %v", ErrInvalidRecord, p.ID, p.Stock)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

// SetStock overwrites the stock of a known product.
func (s *Store) SetStock(id uuid.UUID, stock float64) bool {
	if stock < 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false
	}
	p.Stock = stock
	s.products[id] = p
	return true
}

func (s *Store) RemoveProduct(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// Invoices returns all invoices newest first (descending id).
func (s *Store) Invoices() []model.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) Invoice(id uint) (model.Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return model.Invoice{}, false
	}
	return inv.Clone(), true
}

// UpsertInvoice inserts or replaces an invoice, re-deriving its status from
// the outstanding balance. Amounts must be non-negative and paid plus
// remaining must equal the total.
func (s *Store) UpsertInvoice(inv model.Invoice) error {
	if inv.ID == 0 {
		return fmt.Errorf("%w: invoice without id", ErrInvalidRecord)
	}
	if err := checkBalance(inv); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.invoices[inv.ID]; ok && inv.Paid < prev.Paid {
		return fmt.Errorf("%w: invoice %d paid would decrease from %v to %v", ErrInvalidRecord, inv.ID, prev.Paid, inv.Paid)
	}
	s.invoices[inv.ID] = normalize(inv.Clone())
	return nil
}

func (s *Store) RemoveInvoice(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invoices, id)
}

func checkBalance(inv model.Invoice) error {
	if inv.Total < 0 || inv.Paid < 0 || inv.Remaining < 0 {
		return fmt.Errorf("%w: invoice %d has a negative amount (total %v, paid %v, remaining %v)",
			ErrInvalidRecord, inv.ID, inv.Total, inv.Paid, inv.Remaining)
	}
	diff := decimal.NewFromFloat(inv.Paid).
		Add(decimal.NewFromFloat(inv.Remaining)).
		Sub(decimal.NewFromFloat(inv.Total))
	if diff.Abs().GreaterThan(balanceTolerance) {
		return fmt.Errorf("%w: invoice %d paid %v + remaining %v does not match total %v",
			ErrInvalidRecord, inv.ID, inv.Paid, inv.Remaining, inv.Total)
	}
	return nil
}

func normalize(inv model.Invoice) model.Invoice {
	inv.Status = model.StatusFor(inv.Remaining)
	return inv
}
