package model

type Entity string

const (
	EntityProducts Entity = "products"
	EntityInvoices Entity = "invoices"
)

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent is an out-of-band change reported by persistence. Exactly one of
// Product or Invoice is set for inserts and updates; deletes carry only the key.
type ChangeEvent struct {
	Entity    Entity
	Op        ChangeOp
	Product   *Product
	Invoice   *Invoice
	ProductID string
	InvoiceID uint
}
