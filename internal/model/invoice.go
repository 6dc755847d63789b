package model

import "time"

type PaymentType string

const (
	PaymentCash    PaymentType = "cash"
	PaymentCredit  PaymentType = "credit"
	PaymentPartial PaymentType = "partial"
)

// Valid reports whether t is one of the supported checkout modes.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCash, PaymentCredit, PaymentPartial:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	StatusPaid    InvoiceStatus = "Paid"
	StatusPending InvoiceStatus = "Pending"
)

// WalkInCustomer is recorded on cash sales made without customer details.
const WalkInCustomer = "Walk-in Customer"

type Customer struct {
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Phone string `gorm:"type:varchar(30)" json:"phone"`
}

// InvoiceItem is a frozen snapshot of a cart line at sale time. It is not a
// live reference to the product.
type InvoiceItem struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	UnitLabel    string  `json:"unit_label"`
	Units        int     `json:"units"`
	BaseQty      float64 `json:"base_qty"`
	PricePerBase float64 `json:"price_per_base"`
	// CostPerBase is nil on invoices recorded before costs were snapshotted.
	CostPerBase *float64 `json:"cost_per_base,omitempty"`
}

// LineTotal is the sell amount of the item.
func (i InvoiceItem) LineTotal() float64 {
	return i.PricePerBase * i.BaseQty
}

type PaymentHistoryEntry struct {
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	RecordedBy string    `json:"recorded_by,omitempty"`
}

type Invoice struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	Date        time.Time             `gorm:"not null;index" json:"date"`
	Customer    Customer              `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Items       []InvoiceItem         `gorm:"type:jsonb;serializer:json" json:"items"`
	Subtotal    float64               `gorm:"not null" json:"subtotal"`
	Total       float64               `gorm:"not null" json:"total"`
	PaymentType PaymentType           `gorm:"type:varchar(10);not null" json:"payment_type"`
	Paid        float64               `gorm:"not null" json:"paid"`
	Remaining   float64               `gorm:"not null;index" json:"remaining"`
	Status      InvoiceStatus         `gorm:"type:varchar(10);not null" json:"status"`
	History     []PaymentHistoryEntry `gorm:"type:jsonb;serializer:json" json:"history"`
	DueDate     *time.Time            `json:"due_date,omitempty"`
	UserName    string                `gorm:"type:varchar(255)" json:"user_name"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// StatusFor derives the invoice status from its outstanding balance.
func StatusFor(remaining float64) InvoiceStatus {
	if remaining <= 0 {
		return StatusPaid
	}
	return StatusPending
}

// IsOverdue reports whether the invoice still owes money past its due date.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return inv.DueDate != nil && inv.Remaining > 0 && now.After(*inv.DueDate)
}

// Clone returns a deep copy so callers can hand invoices out of shared state.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = append([]InvoiceItem(nil), inv.Items...)
	out.History = append([]PaymentHistoryEntry(nil), inv.History...)
	if inv.DueDate != nil {
		d := *inv.DueDate
		out.DueDate = &d
	}
	return out
}
