package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-udhar-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMalformed = errors.New("malformed change notification")

// Notification is a decoded change. Partial events carry only the record key
// and have to be completed from persistence before they are applied.
type Notification struct {
	Event   model.ChangeEvent
	Partial bool
}

type envelope struct {
	Entity  model.Entity    `json:"entity"`
	Op      model.ChangeOp  `json:"op"`
	Partial bool            `json:"partial"`
	Record  json.RawMessage `json:"record"`
}

// productRow mirrors the products table as emitted by row_to_json.
type productRow struct {
	ID                uuid.UUID  `json:"id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at"`
	CreatedBy         string     `json:"created_by"`
	UpdatedBy         string     `json:"updated_by"`
	DeletedBy         string     `json:"deleted_by"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	CostPrice         float64    `json:"cost_price"`
	SellPrice         float64    `json:"sell_price"`
	Stock             float64    `json:"stock"`
	UnitLabel         string     `json:"unit_label"`
	LowStockThreshold *float64   `json:"low_stock_threshold"`
}

func (r productRow) toModel() *model.Product {
	p := &model.Product{
		Name:              r.Name,
		Category:          r.Category,
		CostPrice:         r.CostPrice,
		SellPrice:         r.SellPrice,
		Stock:             r.Stock,
		UnitLabel:         r.UnitLabel,
		LowStockThreshold: r.LowStockThreshold,
	}
	p.ID = r.ID
	p.CreatedAt = r.CreatedAt
	p.UpdatedAt = r.UpdatedAt
	p.CreatedBy = r.CreatedBy
	p.UpdatedBy = r.UpdatedBy
	p.DeletedBy = r.DeletedBy
	if r.DeletedAt != nil {
		p.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return p
}

// invoiceRow mirrors the invoices table; the embedded customer is flattened
// into prefixed columns.
type invoiceRow struct {
	ID            uint                        `json:"id"`
	Date          time.Time                   `json:"date"`
	CustomerName  string                      `json:"customer_name"`
	CustomerPhone string                      `json:"customer_phone"`
	Items         []model.InvoiceItem         `json:"items"`
	Subtotal      float64                     `json:"subtotal"`
	Total         float64                     `json:"total"`
	PaymentType   model.PaymentType           `json:"payment_type"`
	Paid          float64                     `json:"paid"`
	Remaining     float64                     `json:"remaining"`
	Status        model.InvoiceStatus         `json:"status"`
	History       []model.PaymentHistoryEntry `json:"history"`
	DueDate       *time.Time                  `json:"due_date"`
	UserName      string                      `json:"user_name"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func (r invoiceRow) toModel() *model.Invoice {
	return &model.Invoice{
		ID:          r.ID,
		Date:        r.Date,
		Customer:    model.Customer{Name: r.CustomerName, Phone: r.CustomerPhone},
		Items:       r.Items,
		Subtotal:    r.Subtotal,
		Total:       r.Total,
		PaymentType: r.PaymentType,
		Paid:        r.Paid,
		Remaining:   r.Remaining,
		Status:      r.Status,
		History:     r.History,
		DueDate:     r.DueDate,
		UserName:    r.UserName,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Decode turns a NOTIFY payload into a change event.
func Decode(payload []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Op {
	case model.OpInsert, model.OpUpdate, model.OpDelete:
	default:
		return Notification{}, fmt.Errorf("%w: unknown op %q", ErrMalformed, env.Op)
	}
	if len(env.Record) == 0 {
		return Notification{}, fmt.Errorf("%w: missing record", ErrMalformed)
	}

	n := Notification{Event: model.ChangeEvent{Entity: env.Entity, Op: env.Op}}
	keyOnly := env.Partial || env.Op == model.OpDelete

	switch env.Entity {
	case model.EntityProducts:
		if keyOnly {
			var key struct {
				ID uuid.UUID `json:"id"`
			}
			if err := json.Unmarshal(env.Record, &key); err != nil {
				return Notification{}, fmt.Errorf("%w: product key: %v", ErrMalformed, err)
			}
			n.Event.ProductID = key.ID.String()
			n.Partial = env.Partial && env.Op != model.OpDelete
			return n, nil
		}
		var row productRow
		if err := json.Unmarshal(env.Record, &row); err != nil {
			return Notification{}, fmt.Errorf("%w: product: %v", ErrMalformed, err)
		}
		n.Event.Product = row.toModel()
		n.Event.ProductID = row.ID.String()

	case model.EntityInvoices:
		if keyOnly {
			var key struct {
				ID uint `json:"id"`
			}
			if err := json.Unmarshal(env.Record, &key); err != nil {
				return Notification{}, fmt.Errorf("%w: invoice key: %v", ErrMalformed, err)
			}
			n.Event.InvoiceID = key.ID
			n.Partial = env.Partial && env.Op != model.OpDelete
			return n, nil
		}
		var row invoiceRow
		if err := json.Unmarshal(env.Record, &row); err != nil {
			return Notification{}, fmt.Errorf("%w: invoice: %v", ErrMalformed, err)
		}
		n.Event.Invoice = row.toModel()
		n.Event.InvoiceID = row.ID

	default:
		return Notification{}, fmt.Errorf("%w: unknown entity %q", ErrMalformed, env.Entity)
	}
	return n, nil
}
