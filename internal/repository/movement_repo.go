package repository

import (
	"context"
	"time"

	"go-udhar-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementRepository reads the stock movement log. Movements are written by
// ProductRepository alongside the stock change they describe.
type MovementRepository interface {
	// FindBetween returns movements created in [from, to), oldest first.
	FindBetween(ctx context.Context, from, to time.Time) ([]model.StockMovement, error)
	// FindByProduct returns the latest movements of one product, newest first.
	FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error)
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

func (r *movementRepo) FindBetween(ctx context.Context, from, to time.Time) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&movements).Error
	return movements, err
}

func (r *movementRepo) FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	q := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&movements).Error
	return movements, err
}
