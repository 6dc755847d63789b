package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/repository/memory"
	"go-udhar-pos/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	errBoom   = errors.New("connection reset")
	fixedNow  = time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)
	cashier   = model.Identity{ID: "u-1", Name: "Bilal", Role: model.RoleStaff}
	adminUser = model.Identity{ID: "u-0", Name: "Owner", Role: model.RoleAdmin}
)

type recordedEvent struct {
	Type    string
	Action  string
	Payload map[string]interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Publish(eventType, action string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{eventType, action, payload})
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Action)
	}
	return out
}

// flakyProducts fails AdjustStock for the first failures calls, or always
// when failures is negative. The first lostAcks calls are applied but still
// report an error, as when a commit succeeds and the reply is lost.
type flakyProducts struct {
	repository.ProductRepository
	mu       sync.Mutex
	failures int
	lostAcks int
	err      error
	calls    int
}

func (p *flakyProducts) AdjustStock(ctx context.Context, change repository.StockChange) (float64, error) {
	p.mu.Lock()
	p.calls++
	fail := p.failures < 0 || p.calls <= p.failures
	lost := p.calls <= p.lostAcks
	p.mu.Unlock()
	if fail {
		return 0, p.err
	}
	stock, err := p.ProductRepository.AdjustStock(ctx, change)
	if err == nil && lost {
		return 0, errBoom
	}
	return stock, err
}

type failingInvoices struct {
	repository.InvoiceRepository
	insertErr error
	updateErr error
	deleteErr error
}

func (r *failingInvoices) Insert(ctx context.Context, inv *model.Invoice) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.InvoiceRepository.Insert(ctx, inv)
}

func (r *failingInvoices) UpdatePayment(ctx context.Context, id uint, u repository.PaymentUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.InvoiceRepository.UpdatePayment(ctx, id, u)
}

func (r *failingInvoices) Delete(ctx context.Context, id uint) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.InvoiceRepository.Delete(ctx, id)
}

type testEnv struct {
	mem      *memory.Store
	store    *store.Store
	products *flakyProducts
	invoices *failingInvoices
	notifier *recordingNotifier

	settlement *settlementService
	ledger     *ledgerService
}

func newTestEnv(t *testing.T, products ...*model.Product) *testEnv {
	t.Helper()
	ctx := context.Background()

	mem := memory.New()
	for _, p := range products {
		require.NoError(t, mem.Products().Create(ctx, p))
	}
	st := store.New()
	require.NoError(t, st.Load(ctx, mem.Products(), mem.Invoices()))

	env := &testEnv{
		mem:      mem,
		store:    st,
		products: &flakyProducts{ProductRepository: mem.Products()},
		invoices: &failingInvoices{InvoiceRepository: mem.Invoices()},
		notifier: &recordingNotifier{},
	}

	settlement := NewSettlementService(st, env.products, env.invoices, env.notifier, zap.NewNop()).(*settlementService)
	settlement.now = func() time.Time { return fixedNow }
	settlement.stockRetryDelay = time.Millisecond
	env.settlement = settlement

	ledger := NewLedgerService(st, env.invoices, env.notifier, zap.NewNop()).(*ledgerService)
	ledger.now = func() time.Time { return fixedNow.Add(24 * time.Hour) }
	env.ledger = ledger
	return env
}

// stockOf reads the persisted stock, not the store's copy.
func (e *testEnv) stockOf(t *testing.T, p *model.Product) float64 {
	t.Helper()
	got, err := e.mem.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}

func (e *testEnv) storeStockOf(t *testing.T, p *model.Product) float64 {
	t.Helper()
	got, ok := e.store.Product(p.ID)
	require.True(t, ok)
	return got.Stock
}

func rice(stock float64) *model.Product {
	return &model.Product{Name: "Basmati Rice", Category: model.CategoryLoose, CostPrice: 800, SellPrice: 1000, Stock: stock, UnitLabel: model.UnitKg}
}

func feedBag(stock float64) *model.Product {
	return &model.Product{Name: "Bird Feed", Category: "Feed", CostPrice: 1500, SellPrice: 1800, Stock: stock, UnitLabel: model.UnitBag}
}

func kg(n float64) UnitSelection {
	return UnitSelection{Label: "custom", BaseQty: n}
}

func dueIn(days int) *time.Time {
	d := fixedNow.AddDate(0, 0, days)
	return &d
}
