package model

import (
	"fmt"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

// StockMovement is one applied change to a product's stock. Reference is
// unique: a change carrying a reference that is already recorded is not
// applied again.
type StockMovement struct {
	BaseModel
	ProductID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Type       MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Delta      float64      `gorm:"not null" json:"delta"` // signed, in base units
	StockAfter float64      `gorm:"not null" json:"stock_after"`
	Reference  string       `gorm:"type:varchar(120);not null;uniqueIndex" json:"reference"`
	Note       string       `json:"note"`
}

// Quantity is the unsigned size of the movement.
func (m *StockMovement) Quantity() float64 {
	if m.Delta < 0 {
		return -m.Delta
	}
	return m.Delta
}

// SaleReference keys the decrement for one invoice line.
func SaleReference(invoiceID uint, line int) string {
	return fmt.Sprintf("invoice:%d:line:%d:out", invoiceID, line)
}

// RestoreReference keys the restoration of one invoice line on deletion.
func RestoreReference(invoiceID uint, line int) string {
	return fmt.Sprintf("invoice:%d:line:%d:in", invoiceID, line)
}

// OpeningReference keys the stock a product was created with.
func OpeningReference(productID uuid.UUID) string {
	return "product:" + productID.String() + ":opening"
}

// AdjustReference keys a direct stock edit. Every edit is distinct.
func AdjustReference() string {
	return "adjust:" + uuid.NewString()
}
