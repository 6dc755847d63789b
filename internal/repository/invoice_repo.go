package repository

import (
	"context"

	"go-udhar-pos/internal/model"

	"gorm.io/gorm"
)

// PaymentUpdate is the set of fields a collection is allowed to change.
type PaymentUpdate struct {
	Paid      float64
	Remaining float64
	Status    model.InvoiceStatus
	History   []model.PaymentHistoryEntry
}

type InvoiceRepository interface {
	FindAll(ctx context.Context) ([]model.Invoice, error)
	FindByID(ctx context.Context, id uint) (*model.Invoice, error)
	// Insert persists the invoice and assigns its ID.
	Insert(ctx context.Context, invoice *model.Invoice) error
	UpdatePayment(ctx context.Context, id uint, update PaymentUpdate) error
	Delete(ctx context.Context, id uint) error
}

type invoiceRepo struct {
	db *gorm.DB
}

func NewInvoiceRepo(db *gorm.DB) InvoiceRepository {
	return &invoiceRepo{db}
}

func (r *invoiceRepo) FindAll(ctx context.Context) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).Order("id DESC").Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, translate(err)
	}
	return &invoice, nil
}

func (r *invoiceRepo) Insert(ctx context.Context, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepo) UpdatePayment(ctx context.Context, id uint, update PaymentUpdate) error {
	res := r.db.WithContext(ctx).Model(&model.Invoice{ID: id}).
		Select("paid", "remaining", "status", "history").
		Updates(&model.Invoice{
			Paid:      update.Paid,
			Remaining: update.Remaining,
			Status:    update.Status,
			History:   update.History,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Invoice{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
