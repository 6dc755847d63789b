package store

import (
	"fmt"

	"go-udhar-pos/internal/model"

	"github.com/google/uuid"
)

// Apply merges an out-of-band change into the store using the same upsert
// and remove operations the engines use.
func (s *Store) Apply(evt model.ChangeEvent) error {
	switch evt.Entity {
	case model.EntityProducts:
		return s.applyProduct(evt)
	case model.EntityInvoices:
		return s.applyInvoice(evt)
	default:
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidRecord, evt.Entity)
	}
}

func (s *Store) applyProduct(evt model.ChangeEvent) error {
	switch evt.Op {
	case model.OpInsert, model.OpUpdate:
		if evt.Product == nil {
			return fmt.Errorf("%w: %s event without product", ErrInvalidRecord, evt.Op)
		}
		// A soft delete arrives as an update with deleted_at set.
		if evt.Product.DeletedAt.Valid {
			s.RemoveProduct(evt.Product.ID)
			return nil
		}
		return s.UpsertProduct(*evt.Product)
	case model.OpDelete:
		id, err := uuid.Parse(evt.ProductID)
		if err != nil {
			return fmt.Errorf("%w: product id %q", ErrInvalidRecord, evt.ProductID)
		}
		s.RemoveProduct(id)
		return nil
	}
	return fmt.Errorf("%w: unknown op %q", ErrInvalidRecord, evt.Op)
}

func (s *Store) applyInvoice(evt model.ChangeEvent) error {
	switch evt.Op {
	case model.OpInsert, model.OpUpdate:
		if evt.Invoice == nil {
			return fmt.Errorf("%w: %s event without invoice", ErrInvalidRecord, evt.Op)
		}
		return s.UpsertInvoice(*evt.Invoice)
	case model.OpDelete:
		s.RemoveInvoice(evt.InvoiceID)
		return nil
	}
	return fmt.Errorf("%w: unknown op %q", ErrInvalidRecord, evt.Op)
}
