// Package realtime keeps the in-memory store in step with changes made to
// the database by other processes, via Postgres LISTEN/NOTIFY.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const defaultReconnectDelay = 5 * time.Second

// Applier receives decoded change events. *store.Store implements it.
type Applier interface {
	Apply(evt model.ChangeEvent) error
}

// Reloader re-reads full state after a reconnect, since notifications sent
// while disconnected are lost.
type Reloader func(ctx context.Context) error

type Listener struct {
	dsn      string
	channel  string
	target   Applier
	products repository.ProductRepository
	invoices repository.InvoiceRepository
	reload   Reloader
	log      *zap.Logger

	reconnectDelay time.Duration
}

func NewListener(dsn, channel string, target Applier, products repository.ProductRepository, invoices repository.InvoiceRepository, reload Reloader, log *zap.Logger) *Listener {
	return &Listener{
		dsn:            dsn,
		channel:        channel,
		target:         target,
		products:       products,
		invoices:       invoices,
		reload:         reload,
		log:            log,
		reconnectDelay: defaultReconnectDelay,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) {
	first := true
	for {
		err := l.listen(ctx, !first)
		if ctx.Err() != nil {
			l.log.Info("realtime listener stopped")
			return
		}
		first = false
		l.log.Warn("realtime connection lost, reconnecting", zap.Error(err), zap.Duration("delay", l.reconnectDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context, resync bool) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info("listening for changes", zap.String("channel", l.channel))

	if resync && l.reload != nil {
		if err := l.reload(ctx); err != nil {
			l.log.Error("resync after reconnect failed", zap.Error(err))
		}
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := l.Handle(ctx, []byte(n.Payload)); err != nil {
			l.log.Error("dropping change notification", zap.Error(err))
		}
	}
}

// Handle decodes one payload, completes partial events from persistence and
// applies the result.
func (l *Listener) Handle(ctx context.Context, payload []byte) error {
	n, err := Decode(payload)
	if err != nil {
		return err
	}
	evt := n.Event
	if n.Partial {
		if evt, err = l.complete(ctx, evt); err != nil {
			return err
		}
	}

	if err := l.target.Apply(evt); err != nil {
		return fmt.Errorf("apply %s %s: %w", evt.Entity, evt.Op, err)
	}
	l.log.Debug("applied change", zap.String("entity", string(evt.Entity)), zap.String("op", string(evt.Op)))
	return nil
}

func (l *Listener) complete(ctx context.Context, evt model.ChangeEvent) (model.ChangeEvent, error) {
	switch evt.Entity {
	case model.EntityProducts:
		id, err := uuid.Parse(evt.ProductID)
		if err != nil {
			return evt, fmt.Errorf("%w: product id %q", ErrMalformed, evt.ProductID)
		}
		p, err := l.products.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			// gone by the time we looked; treat as a delete
			evt.Op = model.OpDelete
			return evt, nil
		}
		if err != nil {
			return evt, fmt.Errorf("refetch product %s: %w", id, err)
		}
		evt.Product = p

	case model.EntityInvoices:
		inv, err := l.invoices.FindByID(ctx, evt.InvoiceID)
		if errors.Is(err, repository.ErrNotFound) {
			evt.Op = model.OpDelete
			return evt, nil
		}
		if err != nil {
			return evt, fmt.Errorf("refetch invoice %d: %w", evt.InvoiceID, err)
		}
		evt.Invoice = inv
	}
	return evt, nil
}
