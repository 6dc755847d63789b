package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/store"

	"github.com/google/uuid"
)

// NoTopItem is reported for months without any sold items.
const NoTopItem = "None"

type MonthSummary struct {
	Year         int        `json:"year"`
	Month        time.Month `json:"month"`
	Label        string     `json:"label"`
	Revenue      float64    `json:"revenue"`
	Profit       float64    `json:"profit"`
	TopItem      string     `json:"top_item"`
	TopItemQty   float64    `json:"top_item_qty"`
	InvoiceCount int        `json:"invoice_count"`
}

type DashboardStats struct {
	TodaySales      float64 `json:"today_sales"`
	TodayProfit     float64 `json:"today_profit"`
	TodayCash       float64 `json:"today_cash"`
	TotalReceivable float64 `json:"total_receivable"`
	LowStockCount   int     `json:"low_stock_count"`
	MonthRevenue    float64 `json:"month_revenue"`
	MonthProfit     float64 `json:"month_profit"`
}

type ValuationItem struct {
	Name      string  `json:"name"`
	Stock     float64 `json:"stock"`
	UnitLabel string  `json:"unit_label"`
	CostPrice float64 `json:"cost_price"`
	TotalCost float64 `json:"total_cost"`
}

type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     float64         `json:"subtotal"`
}

type ValuationReport struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal float64         `json:"grand_total"`
}

// MovementDay is the stock moved on one calendar day, in base units.
// Adjusted is the net of direct edits.
type MovementDay struct {
	Date     string  `json:"date"`
	Inbound  float64 `json:"inbound"`
	Outbound float64 `json:"outbound"`
	Adjusted float64 `json:"adjusted"`
}

type ReportService interface {
	Monthly() []MonthSummary
	Dashboard(now time.Time) DashboardStats
	Valuation() ValuationReport
	// StockMovement returns one entry per day for the last days days,
	// today included, oldest first.
	StockMovement(ctx context.Context, days int, now time.Time) ([]MovementDay, error)
	ProductMovements(ctx context.Context, id uuid.UUID, limit int) ([]model.StockMovement, error)
}

type reportService struct {
	store     *store.Store
	movements repository.MovementRepository
	loc       *time.Location
}

// NewReportService groups days and months in loc; nil means time.Local.
func NewReportService(st *store.Store, movements repository.MovementRepository, loc *time.Location) ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &reportService{store: st, movements: movements, loc: loc}
}

func (s *reportService) Monthly() []MonthSummary {
	return MonthlyReport(s.store.Invoices(), s.store.Products(), s.loc)
}

func (s *reportService) Dashboard(now time.Time) DashboardStats {
	return Dashboard(s.store.Invoices(), s.store.Products(), now.In(s.loc))
}

func (s *reportService) Valuation() ValuationReport {
	return Valuation(s.store.Products())
}

func (s *reportService) StockMovement(ctx context.Context, days int, now time.Time) ([]MovementDay, error) {
	const op = "stock movement"
	if days <= 0 {
		return nil, validationError(op, "days must be positive, got %d", days)
	}
	now = now.In(s.loc)
	from := time.Date(now.Year(), now.Month(), now.Day()-(days-1), 0, 0, 0, 0, s.loc)
	to := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.loc)

	moves, err := s.movements.FindBetween(ctx, from, to)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return MovementSeries(moves, from, days, s.loc), nil
}

func (s *reportService) ProductMovements(ctx context.Context, id uuid.UUID, limit int) ([]model.StockMovement, error) {
	const op = "product movements"
	if _, ok := s.store.Product(id); !ok {
		return nil, notFoundError(op, "product %s", id)
	}
	moves, err := s.movements.FindByProduct(ctx, id, limit)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return moves, nil
}

// MovementSeries buckets movements into days consecutive calendar days in loc
// starting at from. Days without movement are present with zeros.
func MovementSeries(moves []model.StockMovement, from time.Time, days int, loc *time.Location) []MovementDay {
	from = from.In(loc)
	series := make([]MovementDay, days)
	index := make(map[string]int, days)
	for i := range series {
		day := time.Date(from.Year(), from.Month(), from.Day()+i, 0, 0, 0, 0, loc).Format("2006-01-02")
		series[i].Date = day
		index[day] = i
	}
	for _, m := range moves {
		i, ok := index[m.CreatedAt.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch m.Type {
		case model.MovementIn:
			series[i].Inbound += m.Quantity()
		case model.MovementOut:
			series[i].Outbound += m.Quantity()
		case model.MovementAdjust:
			series[i].Adjusted += m.Delta
		}
	}
	return series
}

// costResolver prefers the cost frozen on the invoice item and falls back to
// the product's current catalog cost for items recorded without one.
type costResolver map[string]float64

func newCostResolver(products []model.Product) costResolver {
	r := make(costResolver, len(products))
	for _, p := range products {
		r[p.ID.String()] = p.CostPrice
	}
	return r
}

func (r costResolver) cost(item model.InvoiceItem) float64 {
	if item.CostPerBase != nil {
		return *item.CostPerBase
	}
	return r[item.ProductID]
}

func (r costResolver) profit(inv model.Invoice) float64 {
	var profit float64
	for _, item := range inv.Items {
		profit += (item.PricePerBase - r.cost(item)) * item.BaseQty
	}
	return profit
}

type monthKey struct {
	year  int
	month time.Month
}

type monthAgg struct {
	summary MonthSummary
	qty     map[string]float64
	names   []string
}

// MonthlyReport groups invoices by calendar month in loc, newest month first.
func MonthlyReport(invoices []model.Invoice, products []model.Product, loc *time.Location) []MonthSummary {
	if loc == nil {
		loc = time.Local
	}
	costs := newCostResolver(products)
	groups := make(map[monthKey]*monthAgg)

	for _, inv := range invoices {
		d := inv.Date.In(loc)
		key := monthKey{d.Year(), d.Month()}
		g, ok := groups[key]
		if !ok {
			g = &monthAgg{
				summary: MonthSummary{
					Year:  key.year,
					Month: key.month,
					Label: fmt.Sprintf("%s %d", key.month, key.year),
				},
				qty: make(map[string]float64),
			}
			groups[key] = g
		}
		g.summary.Revenue += inv.Total
		g.summary.Profit += costs.profit(inv)
		g.summary.InvoiceCount++
		for _, item := range inv.Items {
			if _, seen := g.qty[item.Name]; !seen {
				g.names = append(g.names, item.Name)
			}
			g.qty[item.Name] += item.BaseQty
		}
	}

	out := make([]MonthSummary, 0, len(groups))
	for _, g := range groups {
		g.summary.TopItem = NoTopItem
		for _, name := range g.names {
			if q := g.qty[name]; q > g.summary.TopItemQty {
				g.summary.TopItem = name
				g.summary.TopItemQty = q
			}
		}
		out = append(out, g.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

// Dashboard computes today's and month-to-date figures relative to now, in
// now's location.
//
// Today's cash counts the money taken at checkout for invoices created today
// plus every collection recorded today, whichever day its invoice is from.
func Dashboard(invoices []model.Invoice, products []model.Product, now time.Time) DashboardStats {
	costs := newCostResolver(products)
	loc := now.Location()
	var stats DashboardStats

	for _, inv := range invoices {
		d := inv.Date.In(loc)
		profit := costs.profit(inv)

		var collected float64
		for _, h := range inv.History {
			collected += h.Amount
			if sameDay(h.Date.In(loc), now) {
				stats.TodayCash += h.Amount
			}
		}

		if sameDay(d, now) {
			stats.TodaySales += inv.Total
			stats.TodayProfit += profit
			if upfront := inv.Paid - collected; upfront > 0 {
				stats.TodayCash += upfront
			}
		}
		if d.Year() == now.Year() && d.Month() == now.Month() {
			stats.MonthRevenue += inv.Total
			stats.MonthProfit += profit
		}
		stats.TotalReceivable += inv.Remaining
	}

	stats.LowStockCount = len(LowStock(products))
	return stats
}

// Valuation totals stock at cost, grouped by category.
func Valuation(products []model.Product) ValuationReport {
	groups := make(map[string]*CategoryGroup)
	var report ValuationReport

	for _, p := range products {
		name := p.Category
		if name == "" {
			name = "Uncategorized"
		}
		g, ok := groups[name]
		if !ok {
			g = &CategoryGroup{CategoryName: name, Items: []ValuationItem{}}
			groups[name] = g
		}
		total := p.Stock * p.CostPrice
		g.Items = append(g.Items, ValuationItem{
			Name:      p.Name,
			Stock:     p.Stock,
			UnitLabel: p.UnitLabel,
			CostPrice: p.CostPrice,
			TotalCost: total,
		})
		g.Subtotal += total
		report.GrandTotal += total
	}

	report.Categories = make([]CategoryGroup, 0, len(groups))
	for _, g := range groups {
		report.Categories = append(report.Categories, *g)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return report.Categories[i].CategoryName < report.Categories[j].CategoryName
	})
	return report
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
