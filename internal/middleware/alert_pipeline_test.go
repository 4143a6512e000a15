package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockTracker/internal/domain/models"
	"StockTracker/pkg/metrics"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	events   []models.AlertEvent
	closed   bool
}

func (s *flakySink) Publish(_ context.Context, ev models.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *flakySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *flakySink) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func event(symbol string) models.AlertEvent {
	return models.AlertEvent{Symbol: symbol, LatestPrice: 172.34, Threshold: 150, TriggeredAt: time.Now()}
}

func TestAlertPipeline_ForwardsAndThrottles(t *testing.T) {
	sink := &flakySink{}
	p := NewAlertPipeline(sink, metrics.Nop{}, WithMinInterval(time.Hour))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := p.Publish(ctx, event("AAPL")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if err := p.Publish(ctx, event("MSFT")); err != nil {
		t.Fatal(err)
	}
	if got := sink.delivered(); got != 2 {
		t.Errorf("delivered = %d, want 2", got)
	}
}

func TestAlertPipeline_RejectsInvalid(t *testing.T) {
	p := NewAlertPipeline(&flakySink{}, metrics.Nop{})
	if err := p.Publish(context.Background(), models.AlertEvent{LatestPrice: 1}); err == nil {
		t.Error("expected error for empty symbol")
	}
	if err := p.Publish(context.Background(), models.AlertEvent{Symbol: "AAPL"}); err == nil {
		t.Error("expected error for missing timestamp")
	}
}

func TestAlertPipeline_RedeliversAfterFailure(t *testing.T) {
	sink := &flakySink{failures: 2}
	p := NewAlertPipeline(sink, metrics.Nop{}, WithMinInterval(0))

	if err := p.Publish(context.Background(), event("AAPL")); err == nil {
		t.Fatal("expected sink error to be reported")
	}
	if p.Buffered() != 1 {
		t.Fatalf("buffered = %d", p.Buffered())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for sink.delivered() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.delivered() != 1 {
		t.Fatalf("delivered = %d after redelivery", sink.delivered())
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !sink.closed {
		t.Error("sink not closed")
	}
}

func TestAlertPipeline_BufferFull(t *testing.T) {
	sink := &flakySink{failures: 10}
	p := NewAlertPipeline(sink, metrics.Nop{}, WithMinInterval(0), WithBufferSize(1))

	_ = p.Publish(context.Background(), event("AAPL"))
	_ = p.Publish(context.Background(), event("MSFT"))
	if p.Buffered() != 1 {
		t.Errorf("buffered = %d, want 1", p.Buffered())
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
