package model

const (
	UnitKg  = "Kg"
	UnitBag = "Bag"
	UnitPc  = "Pc"

	// CategoryLoose groups products sold by weight from open sacks.
	CategoryLoose = "Loose Items"
)

// Default low-stock thresholds, used when a product has no explicit override.
const (
	LooseLowStockThreshold   = 10
	BagLowStockThreshold     = 3
	DefaultLowStockThreshold = 5
)

type Product struct {
	BaseModel
	Name              string   `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category          string   `gorm:"type:varchar(100)" json:"category"`
	CostPrice         float64  `gorm:"default:0" json:"cost_price" validate:"gte=0"`
	SellPrice         float64  `gorm:"default:0" json:"sell_price" validate:"gte=0"`
	Stock             float64  `gorm:"default:0" json:"stock" validate:"gte=0"`
	UnitLabel         string   `gorm:"type:varchar(20);not null" json:"unit_label" validate:"required"`
	LowStockThreshold *float64 `json:"low_stock_threshold,omitempty" validate:"omitempty,gt=0"`
}

// IsLoose reports whether the product is sold in continuous (weighed) quantities.
func (p *Product) IsLoose() bool {
	return p.UnitLabel == UnitKg
}

// EffectiveThreshold returns the stock level at or below which the product
// counts as low stock.
func (p *Product) EffectiveThreshold() float64 {
	if p.LowStockThreshold != nil && *p.LowStockThreshold > 0 {
		return *p.LowStockThreshold
	}
	switch {
	case p.UnitLabel == UnitKg || p.Category == CategoryLoose:
		return LooseLowStockThreshold
	case p.UnitLabel == UnitBag:
		return BagLowStockThreshold
	default:
		return DefaultLowStockThreshold
	}
}

// IsLowStock is the single low-stock rule shared by inventory filtering and
// dashboard counts.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.EffectiveThreshold()
}
