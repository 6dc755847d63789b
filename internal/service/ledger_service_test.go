package service

import (
	"context"
	"testing"
	"time"

	"go-udhar-pos/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) seedInvoice(t *testing.T, inv model.Invoice) model.Invoice {
	t.Helper()
	require.NoError(t, e.mem.Invoices().Insert(context.Background(), &inv))
	require.NoError(t, e.store.UpsertInvoice(inv))
	return inv
}

func creditInvoice(name, phone string, date time.Time, total, paid float64) model.Invoice {
	due := date.AddDate(0, 0, 7)
	mode := model.PaymentCredit
	if paid > 0 {
		mode = model.PaymentPartial
	}
	return model.Invoice{
		Date:        date,
		Customer:    model.Customer{Name: name, Phone: phone},
		Subtotal:    total,
		Total:       total,
		PaymentType: mode,
		Paid:        paid,
		Remaining:   total - paid,
		Status:      model.StatusFor(total - paid),
		DueDate:     &due,
	}
}

func TestCollectPayment(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, creditInvoice("Ahmed", "0300-1234567", fixedNow, 2000, 500))

	got, err := env.ledger.CollectPayment(context.Background(), inv.ID, 600, cashier)
	require.NoError(t, err)
	assert.Equal(t, 1100.0, got.Paid)
	assert.Equal(t, 900.0, got.Remaining)
	assert.Equal(t, model.StatusPending, got.Status)
	require.Len(t, got.History, 1)
	assert.Equal(t, 600.0, got.History[0].Amount)
	assert.Equal(t, cashier.Name, got.History[0].RecordedBy)
	assert.Equal(t, fixedNow.Add(24*time.Hour), got.History[0].Date)

	persisted, err := env.mem.Invoices().FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 900.0, persisted.Remaining)
	assert.Len(t, persisted.History, 1)

	stored, _ := env.store.Invoice(inv.ID)
	assert.Equal(t, 900.0, stored.Remaining)

	// more than what is left
	_, err = env.ledger.CollectPayment(context.Background(), inv.ID, 2000, cashier)
	assert.ErrorIs(t, err, ErrValidation)
	stored, _ = env.store.Invoice(inv.ID)
	assert.Equal(t, 900.0, stored.Remaining)
	assert.Len(t, stored.History, 1)

	got, err = env.ledger.CollectPayment(context.Background(), inv.ID, 900, cashier)
	require.NoError(t, err)
	assert.Zero(t, got.Remaining)
	assert.Equal(t, got.Total, got.Paid)
	assert.Equal(t, model.StatusPaid, got.Status)
	assert.Len(t, got.History, 2)

	assert.Equal(t, []string{"payment_collected", "payment_collected"}, env.notifier.actions())
}

func TestCollectPaymentKeepsBalanceExact(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, creditInvoice("Ahmed", "0300-1234567", fixedNow, 1000.7, 0))
	total := decimal.NewFromFloat(inv.Total)

	for i := 1; i <= 7; i++ {
		got, err := env.ledger.CollectPayment(context.Background(), inv.ID, float64(i)/10, cashier)
		require.NoError(t, err)
		sum := decimal.NewFromFloat(got.Paid).Add(decimal.NewFromFloat(got.Remaining))
		assert.True(t, sum.Equal(total), "step %d: paid %v + remaining %v", i, got.Paid, got.Remaining)
	}

	stored, _ := env.store.Invoice(inv.ID)
	assert.Equal(t, 2.8, stored.Paid)
	assert.Equal(t, 997.9, stored.Remaining)

	got, err := env.ledger.CollectPayment(context.Background(), inv.ID, stored.Remaining, cashier)
	require.NoError(t, err)
	assert.Zero(t, got.Remaining)
	assert.Equal(t, 1000.7, got.Paid)
	assert.Equal(t, model.StatusPaid, got.Status)
}

func TestCollectPaymentRejects(t *testing.T) {
	tests := []struct {
		name    string
		id      uint
		amount  float64
		wantErr error
	}{
		{"zero amount", 1, 0, ErrValidation},
		{"negative amount", 1, -50, ErrValidation},
		{"unknown invoice", 77, 100, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seedInvoice(t, creditInvoice("Sana", "0321", fixedNow, 1000, 0))

			_, err := env.ledger.CollectPayment(context.Background(), tt.id, tt.amount, cashier)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, _ := env.store.Invoice(1)
			assert.Equal(t, 1000.0, stored.Remaining)
			assert.Empty(t, stored.History)
			assert.Empty(t, env.notifier.actions())
		})
	}
}

func TestCollectPaymentPersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, creditInvoice("Sana", "0321", fixedNow, 1000, 0))
	env.invoices.updateErr = errBoom

	_, err := env.ledger.CollectPayment(context.Background(), inv.ID, 400, cashier)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errBoom)

	stored, _ := env.store.Invoice(inv.ID)
	assert.Equal(t, 1000.0, stored.Remaining)
	assert.Zero(t, stored.Paid)
	assert.Empty(t, stored.History)
}

func TestListOutstanding(t *testing.T) {
	env := newTestEnv(t)
	day := func(d int) time.Time { return fixedNow.AddDate(0, 0, d) }

	late := env.seedInvoice(t, creditInvoice("Ahmed Khan", "0300-1111111", day(-1), 500, 0))
	early := env.seedInvoice(t, creditInvoice("Zubair", "0333-2222222", day(-10), 900, 100))
	env.seedInvoice(t, creditInvoice("Paid Up", "0345-3333333", day(-5), 700, 700))
	sameDay := env.seedInvoice(t, creditInvoice("Ahmed Raza", "0312-4444444", day(-1), 300, 0))

	all := env.ledger.ListOutstanding("")
	require.Len(t, all, 3)
	assert.Equal(t, []uint{early.ID, late.ID, sameDay.ID}, ids(all))

	tests := []struct {
		search string
		want   []uint
	}{
		{"ahmed", []uint{late.ID, sameDay.ID}},
		{"  ZUBAIR ", []uint{early.ID}},
		{"2222", []uint{early.ID}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(env.ledger.ListOutstanding(tt.search)))
		})
	}
}

func TestOverdueAndReceivable(t *testing.T) {
	env := newTestEnv(t)
	old := creditInvoice("Old", "0300", fixedNow.AddDate(0, 0, -30), 1200, 200)
	fresh := creditInvoice("Fresh", "0301", fixedNow, 800, 0)
	noDue := creditInvoice("No Due", "0302", fixedNow.AddDate(0, 0, -60), 100, 0)
	noDue.DueDate = nil

	old = env.seedInvoice(t, old)
	env.seedInvoice(t, fresh)
	env.seedInvoice(t, noDue)

	overdue := env.ledger.ListOverdue(fixedNow)
	assert.Equal(t, []uint{old.ID}, ids(overdue))
	assert.Len(t, env.ledger.ListOverdue(fixedNow.AddDate(0, 0, 8)), 2)

	assert.Equal(t, 1900.0, env.ledger.TotalReceivable())
}

func ids(invoices []model.Invoice) []uint {
	var out []uint
	for _, inv := range invoices {
		out = append(out, inv.ID)
	}
	return out
}
