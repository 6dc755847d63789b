package service

import (
	"context"
	"errors"
	"fmt"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/store"
	"go-udhar-pos/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CatalogService interface {
	ListProducts() []model.Product
	GetProduct(id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, req *model.Product, who model.Identity) error
	UpdateProduct(ctx context.Context, id uuid.UUID, req *model.Product, who model.Identity) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, who model.Identity) error
	LowStock() []model.Product
	UnitOptions(id uuid.UUID) ([]UnitSelection, error)
}

type catalogService struct {
	store       *store.Store
	productRepo repository.ProductRepository
	notifier    Notifier
	log         *zap.Logger
}

func NewCatalogService(st *store.Store, pRepo repository.ProductRepository, notifier Notifier, log *zap.Logger) CatalogService {
	return &catalogService{
		store:       st,
		productRepo: pRepo,
		notifier:    notifierOrNop(notifier),
		log:         log,
	}
}

func (s *catalogService) ListProducts() []model.Product {
	return s.store.Products()
}

func (s *catalogService) GetProduct(id uuid.UUID) (*model.Product, error) {
	p, ok := s.store.Product(id)
	if !ok {
		return nil, notFoundError("get product", "product %s", id)
	}
	return &p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req *model.Product, who model.Identity) error {
	const op = "create product"
	if err := validateProduct(op, req); err != nil {
		return err
	}

	req.CreatedBy = who.Name
	req.UpdatedBy = who.Name
	if err := s.productRepo.Create(ctx, req); err != nil {
		return persistenceError(op, err)
	}
	if err := s.store.UpsertProduct(*req); err != nil {
		s.log.Error("store rejected created product", zap.String("product_id", req.ID.String()), zap.Error(err))
	}

	s.notifier.Publish("stock_update", "product_created", map[string]interface{}{
		"product": productPayload(*req),
		"user":    userPayload(who),
		"message": fmt.Sprintf("%s created product '%s'", who.Name, req.Name),
	})
	return nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *model.Product, who model.Identity) (*model.Product, error) {
	const op = "update product"
	existing, ok := s.store.Product(id)
	if !ok {
		return nil, notFoundError(op, "product %s", id)
	}
	if err := validateProduct(op, req); err != nil {
		return nil, err
	}

	updated := existing
	updated.Name = req.Name
	updated.Category = req.Category
	updated.CostPrice = req.CostPrice
	updated.SellPrice = req.SellPrice
	updated.Stock = req.Stock
	updated.UnitLabel = req.UnitLabel
	updated.LowStockThreshold = req.LowStockThreshold
	updated.UpdatedBy = who.Name

	if err := s.productRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(op, "product %s", id)
		}
		return nil, persistenceError(op, err)
	}
	if err := s.store.UpsertProduct(updated); err != nil {
		s.log.Error("store rejected updated product", zap.String("product_id", id.String()), zap.Error(err))
	}

	s.notifier.Publish("stock_update", "product_updated", map[string]interface{}{
		"product":   productPayload(updated),
		"old_stock": existing.Stock,
		"user":      userPayload(who),
		"message":   fmt.Sprintf("%s updated product '%s'", who.Name, updated.Name),
	})
	return &updated, nil
}

// DeleteProduct removes a product from the catalog. Invoices keep their own
// snapshot of the item, so nothing else is touched.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID, who model.Identity) error {
	const op = "delete product"
	existing, ok := s.store.Product(id)
	if !ok {
		return notFoundError(op, "product %s", id)
	}
	if err := s.productRepo.Delete(ctx, id, who.Name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.store.RemoveProduct(id)
			return notFoundError(op, "product %s", id)
		}
		return persistenceError(op, err)
	}
	s.store.RemoveProduct(id)

	s.notifier.Publish("stock_update", "product_deleted", map[string]interface{}{
		"product": map[string]interface{}{"id": id, "name": existing.Name},
		"user":    userPayload(who),
		"message": fmt.Sprintf("%s deleted product '%s'", who.Name, existing.Name),
	})
	return nil
}

// LowStock lists products at or below their effective threshold.
func (s *catalogService) LowStock() []model.Product {
	return LowStock(s.store.Products())
}

func (s *catalogService) UnitOptions(id uuid.UUID) ([]UnitSelection, error) {
	p, ok := s.store.Product(id)
	if !ok {
		return nil, notFoundError("unit options", "product %s", id)
	}
	return UnitOptions(p), nil
}

// LowStock filters products with the same rule the dashboard counts with.
func LowStock(products []model.Product) []model.Product {
	var out []model.Product
	for i := range products {
		if products[i].IsLowStock() {
			out = append(out, products[i])
		}
	}
	return out
}

func validateProduct(op string, p *model.Product) error {
	if errs := validator.ValidateStruct(p); len(errs) > 0 {
		first := errs[0]
		return validationError(op, "field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	return nil
}

func productPayload(p model.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID,
		"name":       p.Name,
		"category":   p.Category,
		"stock":      p.Stock,
		"unit_label": p.UnitLabel,
		"sell_price": p.SellPrice,
	}
}

func userPayload(who model.Identity) map[string]interface{} {
	return map[string]interface{}{
		"id":   who.ID,
		"name": who.Name,
		"role": who.Role,
	}
}
