// Package memory is an in-process implementation of the repository
// interfaces, used when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu            sync.RWMutex
	products      map[uuid.UUID]model.Product
	invoices      map[uint]model.Invoice
	users         map[uuid.UUID]model.User
	movements     []model.StockMovement
	references    map[string]bool
	nextInvoiceID uint
	now           func() time.Time
}

func New() *Store {
	return &Store{
		products:      make(map[uuid.UUID]model.Product),
		invoices:      make(map[uint]model.Invoice),
		users:         make(map[uuid.UUID]model.User),
		references:    make(map[string]bool),
		nextInvoiceID: 1,
		now:           time.Now,
	}
}

// Products exposes the store as a repository.ProductRepository.
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

// Invoices exposes the store as a repository.InvoiceRepository.
func (s *Store) Invoices() repository.InvoiceRepository { return invoiceRepo{s} }

// Users exposes the store as a repository.UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Movements exposes the store as a repository.MovementRepository.
func (s *Store) Movements() repository.MovementRepository { return movementRepo{s} }

// record appends a movement. Callers hold s.mu.
func (s *Store) record(change repository.StockChange, stockAfter float64) {
	m := model.StockMovement{
		ProductID:  change.ProductID,
		Type:       change.Type,
		Delta:      change.Delta,
		StockAfter: stockAfter,
		Reference:  change.Reference,
		Note:       change.Note,
	}
	m.ID = uuid.New()
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	m.CreatedBy = change.By
	s.movements = append(s.movements, m)
	s.references[change.Reference] = true
}

type productRepo struct{ s *Store }

func (r productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) Create(ctx context.Context, product *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := r.s.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.s.products[product.ID] = *product
	if product.Stock > 0 {
		r.s.record(repository.StockChange{
			ProductID: product.ID,
			Delta:     product.Stock,
			Type:      model.MovementIn,
			Reference: model.OpeningReference(product.ID),
			Note:      "opening stock",
			By:        product.CreatedBy,
		}, product.Stock)
	}
	return nil
}

func (r productRepo) Update(ctx context.Context, product *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.products[product.ID]
	if !ok {
		return repository.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	product.CreatedBy = existing.CreatedBy
	product.UpdatedAt = r.s.now()
	r.s.products[product.ID] = *product
	if delta := product.Stock - existing.Stock; delta != 0 {
		r.s.record(repository.StockChange{
			ProductID: product.ID,
			Delta:     delta,
			Type:      model.MovementAdjust,
			Reference: model.AdjustReference(),
			Note:      "manual edit",
			By:        product.UpdatedBy,
		}, product.Stock)
	}
	return nil
}

func (r productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r productRepo) AdjustStock(ctx context.Context, change repository.StockChange) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[change.ProductID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if r.s.references[change.Reference] {
		return p.Stock, nil
	}
	newStock := p.Stock + change.Delta
	if newStock < 0 {
		return p.Stock, repository.ErrNegativeStock
	}
	p.Stock = newStock
	p.UpdatedBy = change.By
	p.UpdatedAt = r.s.now()
	r.s.products[change.ProductID] = p
	r.s.record(change, newStock)
	return newStock, nil
}

type movementRepo struct{ s *Store }

func (r movementRepo) FindBetween(ctx context.Context, from, to time.Time) ([]model.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.StockMovement
	for _, m := range r.s.movements {
		if !m.CreatedAt.Before(from) && m.CreatedAt.Before(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r movementRepo) FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []model.StockMovement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		if r.s.movements[i].ProductID != productID {
			continue
		}
		out = append(out, r.s.movements[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) FindAll(ctx context.Context) ([]model.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Invoice, 0, len(r.s.invoices))
	for _, inv := range r.s.invoices {
		out = append(out, inv.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r invoiceRepo) FindByID(ctx context.Context, id uint) (*model.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := inv.Clone()
	return &out, nil
}

func (r invoiceRepo) Insert(ctx context.Context, invoice *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	invoice.ID = r.s.nextInvoiceID
	r.s.nextInvoiceID++
	now := r.s.now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	r.s.invoices[invoice.ID] = invoice.Clone()
	return nil
}

func (r invoiceRepo) UpdatePayment(ctx context.Context, id uint, update repository.PaymentUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Paid = update.Paid
	inv.Remaining = update.Remaining
	inv.Status = update.Status
	inv.History = append([]model.PaymentHistoryEntry(nil), update.History...)
	inv.UpdatedAt = r.s.now()
	r.s.invoices[id] = inv
	return nil
}

func (r invoiceRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.invoices[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.invoices, id)
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r userRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hashedPassword
	r.s.users[userID] = u
	return nil
}

func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}
