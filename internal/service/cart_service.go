package service

import (
	"context"
	"sync"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/store"
	"go-udhar-pos/pkg/validator"

	"github.com/google/uuid"
)

// CartView is the cart as returned to clients.
type CartView struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}

// AddItemRequest picks either a preset unit by label or a custom quantity.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	UnitLabel string    `json:"unit_label"`
	CustomQty float64   `json:"custom_qty"`
}

type CartService interface {
	Get(session string) CartView
	Add(session string, req AddItemRequest) (CartView, error)
	Update(session string, index, delta int) (CartView, error)
	Clear(session string)
	Checkout(ctx context.Context, session string, req CheckoutRequest, who model.Identity) (*CheckoutResult, error)
}

type cartService struct {
	store      *store.Store
	settlement SettlementService

	mu       sync.Mutex
	sessions map[string]*cartSession
}

type cartSession struct {
	mu   sync.Mutex
	cart *Cart
}

// NewCartService keeps one cart per session (the acting user's id).
func NewCartService(st *store.Store, settlement SettlementService) CartService {
	return &cartService{
		store:      st,
		settlement: settlement,
		sessions:   make(map[string]*cartSession),
	}
}

// session returns the locked cart for a session; callers must unlock it.
func (s *cartService) session(id string) *cartSession {
	s.mu.Lock()
	cs, ok := s.sessions[id]
	if !ok {
		cs = &cartSession{cart: NewCart(s.store)}
		s.sessions[id] = cs
	}
	s.mu.Unlock()

	cs.mu.Lock()
	return cs
}

func (s *cartService) Get(session string) CartView {
	cs := s.session(session)
	defer cs.mu.Unlock()
	return view(cs.cart)
}

func (s *cartService) Add(session string, req AddItemRequest) (CartView, error) {
	const op = "add to cart"
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return CartView{}, validationError(op, "field '%s' failed on tag '%s'", errs[0].FailedField, errs[0].Tag)
	}
	product, ok := s.store.Product(req.ProductID)
	if !ok {
		return CartView{}, notFoundError(op, "product %s", req.ProductID)
	}
	unit, err := resolveUnit(product, req)
	if err != nil {
		return CartView{}, err
	}

	cs := s.session(session)
	defer cs.mu.Unlock()
	if err := cs.cart.AddToCart(product, unit); err != nil {
		return CartView{}, err
	}
	return view(cs.cart), nil
}

func (s *cartService) Update(session string, index, delta int) (CartView, error) {
	cs := s.session(session)
	defer cs.mu.Unlock()
	if err := cs.cart.UpdateQuantity(index, delta); err != nil {
		return CartView{}, err
	}
	return view(cs.cart), nil
}

func (s *cartService) Clear(session string) {
	cs := s.session(session)
	defer cs.mu.Unlock()
	cs.cart.Clear()
}

// Checkout settles the session's cart. The cart is held for the whole call so
// it cannot change between validation and commit.
func (s *cartService) Checkout(ctx context.Context, session string, req CheckoutRequest, who model.Identity) (*CheckoutResult, error) {
	cs := s.session(session)
	defer cs.mu.Unlock()
	return s.settlement.Checkout(ctx, cs.cart, req, who)
}

func resolveUnit(p model.Product, req AddItemRequest) (UnitSelection, error) {
	if req.CustomQty != 0 {
		return CustomUnit(p, req.CustomQty)
	}
	for _, u := range UnitOptions(p) {
		if u.Label == req.UnitLabel {
			return u, nil
		}
	}
	return UnitSelection{}, validationError("add to cart", "unknown unit %q for %s", req.UnitLabel, p.Name)
}

func view(c *Cart) CartView {
	lines := c.Lines()
	if lines == nil {
		lines = []CartLine{}
	}
	return CartView{Lines: lines, Total: c.Total()}
}
