package service

import (
	"fmt"

	"go-udhar-pos/internal/model"

	"github.com/google/uuid"
)

// UnitSelection is one way of picking a quantity of a product, resolved to
// the product's base unit (kilograms for loose items, pieces for packs).
type UnitSelection struct {
	Label   string  `json:"label"`
	BaseQty float64 `json:"base_qty"`
}

var looseUnits = []UnitSelection{
	{Label: "1 Qtr (250g)", BaseQty: 0.25},
	{Label: "2 Qtr (Half Kg)", BaseQty: 0.5},
	{Label: "3 Qtr (750g)", BaseQty: 0.75},
	{Label: "1 Kg", BaseQty: 1},
	{Label: "2 Kg", BaseQty: 2},
	{Label: "5 Kg", BaseQty: 5},
	{Label: "10 Kg", BaseQty: 10},
	{Label: "20 Kg", BaseQty: 20},
	{Label: "40 Kg (Maan)", BaseQty: 40},
}

var packCounts = []int{1, 2, 3, 4, 5, 6, 10, 12, 24, 50}

// UnitOptions lists the preset selections offered for a product.
func UnitOptions(p model.Product) []UnitSelection {
	if p.IsLoose() {
		return append([]UnitSelection(nil), looseUnits...)
	}
	out := make([]UnitSelection, 0, len(packCounts))
	for _, n := range packCounts {
		out = append(out, UnitSelection{Label: fmt.Sprintf("%d %s", n, p.UnitLabel), BaseQty: float64(n)})
	}
	return out
}

// CustomUnit builds a selection for an arbitrary positive quantity.
func CustomUnit(p model.Product, qty float64) (UnitSelection, error) {
	if qty <= 0 {
		return UnitSelection{}, validationError("custom unit", "quantity must be positive, got %v", qty)
	}
	return UnitSelection{Label: fmt.Sprintf("%g %s", qty, p.UnitLabel), BaseQty: qty}, nil
}

// CatalogReader is the read side of the catalog the cart validates against.
type CatalogReader interface {
	Product(id uuid.UUID) (model.Product, bool)
}

type CartLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitLabel      string    `json:"unit_label"`
	Units          int       `json:"units"`
	BaseQtyPerUnit float64   `json:"base_qty_per_unit"`
	BaseQty        float64   `json:"base_qty"`
	PricePerBase   float64   `json:"price_per_base"`
	CostPerBase    float64   `json:"cost_per_base"`
}

func (l CartLine) Amount() float64 {
	return l.PricePerBase * l.BaseQty
}

// Cart accumulates lines for a single sale. It is not safe for concurrent
// use; CartService serializes access per session.
type Cart struct {
	lines   []CartLine
	catalog CatalogReader
}

func NewCart(catalog CatalogReader) *Cart {
	return &Cart{catalog: catalog}
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []CartLine {
	return append([]CartLine(nil), c.lines...)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// AddToCart adds one unit of the selection, merging into an existing line for
// the same product and unit. Price and cost are captured now; later catalog
// edits do not touch lines already in the cart.
func (c *Cart) AddToCart(product model.Product, unit UnitSelection) error {
	const op = "add to cart"
	if unit.BaseQty <= 0 {
		return validationError(op, "unit %q has non-positive quantity", unit.Label)
	}
	if product.Stock < unit.BaseQty {
		return stockError(op, "%s: available %g %s", product.Name, product.Stock, product.UnitLabel)
	}

	for i := range c.lines {
		line := &c.lines[i]
		if line.ProductID != product.ID || line.UnitLabel != unit.Label {
			continue
		}
		newQty := line.BaseQty + unit.BaseQty
		if product.Stock < newQty {
			return stockError(op, "%s: available %g %s, cart would hold %g", product.Name, product.Stock, product.UnitLabel, newQty)
		}
		line.Units++
		line.BaseQty = newQty
		return nil
	}

	c.lines = append(c.lines, CartLine{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitLabel:      unit.Label,
		Units:          1,
		BaseQtyPerUnit: unit.BaseQty,
		BaseQty:        unit.BaseQty,
		PricePerBase:   product.SellPrice,
		CostPerBase:    product.CostPrice,
	})
	return nil
}

// UpdateQuantity changes a line by delta units. Increases are checked against
// the product's current stock; a line that drops to zero units is removed.
func (c *Cart) UpdateQuantity(index, delta int) error {
	const op = "update quantity"
	if index < 0 || index >= len(c.lines) {
		return notFoundError(op, "no cart line at index %d", index)
	}
	if delta == 0 {
		return nil
	}

	line := c.lines[index]
	newQty := line.BaseQty + float64(delta)*line.BaseQtyPerUnit

	// Decreases are allowed even when the product has since been deleted so
	// the line can still be taken out of the cart.
	if delta > 0 {
		product, ok := c.catalog.Product(line.ProductID)
		if !ok {
			return notFoundError(op, "product %s", line.ProductID)
		}
		if product.Stock < newQty {
			return stockError(op, "%s: max available %g %s", product.Name, product.Stock, product.UnitLabel)
		}
	}

	if line.Units+delta <= 0 {
		c.lines = append(c.lines[:index], c.lines[index+1:]...)
		return nil
	}

	line.Units += delta
	line.BaseQty = newQty
	c.lines[index] = line
	return nil
}

// Total is the running sell amount of the cart.
func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Amount()
	}
	return total
}

func (c *Cart) Clear() {
	c.lines = nil
}
