package repository

import (
	"context"

	"go-udhar-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	// AdjustStock applies change and returns the resulting stock level.
	AdjustStock(ctx context.Context, change StockChange) (float64, error)
}

// StockChange is one stock movement to apply. A change whose Reference is
// already recorded is skipped and the current level is returned, so a
// caller may resend it after an ambiguous failure.
type StockChange struct {
	ProductID uuid.UUID
	Delta     float64
	Type      model.MovementType
	Reference string
	Note      string
	By        string
}

func (c StockChange) movement(stockAfter float64) *model.StockMovement {
	m := &model.StockMovement{
		ProductID:  c.ProductID,
		Type:       c.Type,
		Delta:      c.Delta,
		StockAfter: stockAfter,
		Reference:  c.Reference,
		Note:       c.Note,
	}
	m.CreatedBy = c.By
	return m
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// Create inserts the product and records its opening stock as an IN movement.
func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return translate(err)
		}
		if product.Stock <= 0 {
			return nil
		}
		opening := StockChange{
			ProductID: product.ID,
			Delta:     product.Stock,
			Type:      model.MovementIn,
			Reference: model.OpeningReference(product.ID),
			Note:      "opening stock",
			By:        product.CreatedBy,
		}
		return tx.Create(opening.movement(product.Stock)).Error
	})
}

// Update overwrites the editable fields. A changed stock level is recorded as
// an ADJUST movement.
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", product.ID).Error; err != nil {
			return translate(err)
		}

		err := tx.Model(&model.Product{}).
			Where("id = ?", product.ID).
			Select("name", "category", "cost_price", "sell_price", "stock", "unit_label", "low_stock_threshold", "updated_by").
			Updates(product).Error
		if err != nil {
			return err
		}

		delta := product.Stock - current.Stock
		if delta == 0 {
			return nil
		}
		adjust := StockChange{
			ProductID: product.ID,
			Delta:     delta,
			Type:      model.MovementAdjust,
			Reference: model.AdjustReference(),
			Note:      "manual edit",
			By:        product.UpdatedBy,
		}
		return tx.Create(adjust.movement(product.Stock)).Error
	})
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AdjustStock locks the product row for the duration of the update so that
// concurrent sales and restorations serialize per product. The movement is
// written in the same transaction, which makes a resent change a no-op.
func (r *productRepo) AdjustStock(ctx context.Context, change StockChange) (float64, error) {
	var newStock float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", change.ProductID).Error; err != nil {
			return translate(err)
		}

		var seen int64
		if err := tx.Unscoped().Model(&model.StockMovement{}).Where("reference = ?", change.Reference).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			newStock = product.Stock
			return nil
		}

		newStock = product.Stock + change.Delta
		if newStock < 0 {
			return ErrNegativeStock
		}

		err := tx.Model(&model.Product{}).
			Where("id = ?", change.ProductID).
			Updates(map[string]interface{}{
				"stock":      newStock,
				"updated_by": change.By,
			}).Error
		if err != nil {
			return err
		}
		return translate(tx.Create(change.movement(newStock)).Error)
	})
	return newStock, err
}
