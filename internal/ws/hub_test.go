package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishQueuesEnvelope(t *testing.T) {
	h := NewHub(zap.NewNop())
	h.Publish("invoice_update", "invoice_created", map[string]interface{}{
		"message": "Bilal recorded invoice #1",
		"type":    "overridden",
	})

	select {
	case data := <-h.Broadcast:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "invoice_update", msg["type"])
		assert.Equal(t, "invoice_created", msg["action"])
		assert.Equal(t, "Bilal recorded invoice #1", msg["message"])
		assert.NotEmpty(t, msg["timestamp"])
	case <-time.After(time.Second):
		t.Fatal("event was not queued")
	}
}

func TestPublishDropsUnencodable(t *testing.T) {
	h := NewHub(zap.NewNop())
	h.Publish("stock_update", "product_updated", map[string]interface{}{"bad": make(chan int)})

	select {
	case <-h.Broadcast:
		t.Fatal("unencodable event was queued")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	h.Publish("udhar_update", "payment_collected", nil)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Empty(t, h.Clients)
}

func TestPublishKeepsOrder(t *testing.T) {
	h := NewHub(zap.NewNop())
	actions := []string{"invoice_created", "payment_collected", "invoice_deleted"}
	for _, a := range actions {
		h.Publish("invoice_update", a, nil)
	}

	for _, want := range actions {
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(<-h.Broadcast, &msg))
		assert.Equal(t, want, msg["action"])
	}
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 2*cap(h.Broadcast); i++ {
			h.Publish("stock_update", "product_updated", nil)
		}
		h.Serve(nil)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("publish or serve blocked after the hub stopped")
	}
}
