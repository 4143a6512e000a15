package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockTracker/internal/domain/models"
	domrepo "StockTracker/internal/domain/repository"
	applogger "StockTracker/pkg/logger"
)

// AlertPipeline sits between the dashboard and an alert sink.
// It validates and throttles events per symbol, and buffers events the sink rejected for
// background redelivery.
type AlertPipeline struct {
	sink        domrepo.AlertPublisher
	metrics     domrepo.Metrics
	log         *applogger.Logger
	minInterval time.Duration
	bufCh       chan models.AlertEvent
	stopCh      chan struct{}
	doneCh      chan struct{}

	mu       sync.Mutex
	started  bool
	lastSent map[string]time.Time // per-symbol last accepted event
}

type PipelineOption func(*AlertPipeline)

// WithMinInterval drops events for a symbol arriving sooner than d after the previous one.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *AlertPipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets how many rejected events are kept for redelivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *AlertPipeline) {
		if n > 0 {
			p.bufCh = make(chan models.AlertEvent, n)
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *AlertPipeline) { p.log = l }
}

// NewAlertPipeline wraps sink. Call Start to enable redelivery.
func NewAlertPipeline(sink domrepo.AlertPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *AlertPipeline {
	p := &AlertPipeline{
		sink:        sink,
		metrics:     metrics,
		log:         applogger.Nop(),
		minInterval: time.Minute,
		bufCh:       make(chan models.AlertEvent, 100),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		lastSent:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background redelivery of buffered events.
func (p *AlertPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case ev := <-p.bufCh:
				if err := p.sink.Publish(ctx, ev); err != nil {
					p.metrics.RecordError("alert_redelivery")
					if backoff < 2*time.Second {
						backoff *= 2
					}
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("alert_buffer_drop")
						p.log.Warn("alert dropped", applogger.String("symbol", ev.Symbol), applogger.Error(err))
					}
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					case <-ctx.Done():
						return
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Publish validates, throttles, and forwards ev, buffering it when the sink fails.
func (p *AlertPipeline) Publish(ctx context.Context, ev models.AlertEvent) error {
	start := time.Now()
	if err := validateEvent(ev); err != nil {
		p.metrics.RecordError("alert_invalid")
		return err
	}
	if !p.allow(ev.Symbol, start) {
		p.log.Debug("alert throttled", applogger.String("symbol", ev.Symbol))
		return nil
	}

	if err := p.sink.Publish(ctx, ev); err != nil {
		p.metrics.RecordError("alert_publish")
		select {
		case p.bufCh <- ev:
		default:
			p.metrics.RecordError("alert_buffer_full")
		}
		return fmt.Errorf("alert sink: %w", err)
	}
	p.metrics.RecordLatency("alert_publish", time.Since(start).Seconds())
	return nil
}

// Close stops redelivery and closes the sink. Events still buffered are dropped.
func (p *AlertPipeline) Close() error {
	p.mu.Lock()
	started := p.started
	p.started = false
	p.mu.Unlock()

	if started {
		close(p.stopCh)
		<-p.doneCh
	}
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("dropping undelivered alerts", applogger.Int("count", n))
	}
	return p.sink.Close()
}

// Buffered returns the number of events awaiting redelivery.
func (p *AlertPipeline) Buffered() int { return len(p.bufCh) }

func validateEvent(ev models.AlertEvent) error {
	if ev.Symbol == "" {
		return fmt.Errorf("alert event: symbol empty")
	}
	if ev.TriggeredAt.IsZero() {
		return fmt.Errorf("alert event: timestamp missing")
	}
	if ev.LatestPrice < 0 || ev.Threshold < 0 {
		return fmt.Errorf("alert event: negative price/threshold")
	}
	return nil
}

func (p *AlertPipeline) allow(symbol string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSent[symbol]; ok && now.Sub(last) < p.minInterval {
		return false
	}
	p.lastSent[symbol] = now
	return true
}

var _ domrepo.AlertPublisher = (*AlertPipeline)(nil)
