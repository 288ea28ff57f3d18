// Package loadtest drives many concurrent requester sessions against a
// responder and summarises what came back.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/requester"
)

// Exchanger is one request/reply channel. *requester.Session satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, request string) (requester.Outcome, error)
	Close() error
}

// DialFunc opens a new Exchanger for a worker.
type DialFunc func(ctx context.Context) (Exchanger, error)

// ExchangeMetrics contains the results of an exchange load test.
type ExchangeMetrics struct {
	TotalRequests int64
	Replied       int64
	TimedOut      int64
	Failed        int64

	AvgRTT time.Duration
	MinRTT time.Duration
	MaxRTT time.Duration

	Duration          time.Duration
	RequestsPerSecond float64
}

// LossRate is the fraction of sent requests that got no reply.
func (m *ExchangeMetrics) LossRate() float64 {
	sent := m.Replied + m.TimedOut
	if sent == 0 {
		return 0
	}
	return float64(m.TimedOut) / float64(sent)
}

// Report writes a human-readable summary.
func (m *ExchangeMetrics) Report(w io.Writer) {
	fmt.Fprintf(w, "Requests:   %s in %s (%.1f/s)\n",
		humanize.Comma(m.TotalRequests), m.Duration.Round(time.Millisecond), m.RequestsPerSecond)
	fmt.Fprintf(w, "Replied:    %s\n", humanize.Comma(m.Replied))
	fmt.Fprintf(w, "Timed out:  %s (%.2f%% loss)\n", humanize.Comma(m.TimedOut), m.LossRate()*100)
	if m.Failed > 0 {
		fmt.Fprintf(w, "Failed:     %s\n", humanize.Comma(m.Failed))
	}
	if m.Replied > 0 {
		fmt.Fprintf(w, "RTT:        min %s  avg %s  max %s\n", m.MinRTT, m.AvgRTT, m.MaxRTT)
	}
}

// ExchangeLoadGenerator runs concurrent workers, each with its own
// session and at most one request outstanding.
type ExchangeLoadGenerator struct {
	concurrency int
	requests    int
	duration    time.Duration
	message     string

	metrics  ExchangeMetrics
	rttTotal time.Duration
	mu       sync.Mutex
}

// NewExchangeLoadGenerator creates a generator. Each worker stops after
// requests exchanges (0 = unlimited) or when duration elapses (0 = no
// limit), whichever comes first. At least one limit must be set.
func NewExchangeLoadGenerator(concurrency, requests int, duration time.Duration, message string) *ExchangeLoadGenerator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExchangeLoadGenerator{
		concurrency: concurrency,
		requests:    requests,
		duration:    duration,
		message:     message,
		metrics: ExchangeMetrics{
			MinRTT: time.Duration(math.MaxInt64),
		},
	}
}

// Run executes the load test.
func (g *ExchangeLoadGenerator) Run(ctx context.Context, dial DialFunc) (*ExchangeMetrics, error) {
	if g.requests <= 0 && g.duration <= 0 {
		return nil, fmt.Errorf("either a request count or a duration is required")
	}

	if g.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.duration)
		defer cancel()
	}

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		dialErr error
		dialed  atomic.Int64
	)
	startTime := time.Now()

	for i := 0; i < g.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ex, err := dial(ctx)
			if err != nil {
				errOnce.Do(func() { dialErr = err })
				return
			}
			defer ex.Close()
			dialed.Add(1)

			g.runWorker(ctx, ex)
		}()
	}

	wg.Wait()

	if dialed.Load() == 0 && dialErr != nil {
		return nil, fmt.Errorf("no worker could connect: %w", dialErr)
	}

	g.metrics.Duration = time.Since(startTime)
	if g.metrics.Duration > 0 {
		g.metrics.RequestsPerSecond = float64(g.metrics.TotalRequests) / g.metrics.Duration.Seconds()
	}
	if g.metrics.Replied > 0 {
		g.metrics.AvgRTT = g.rttTotal / time.Duration(g.metrics.Replied)
	} else {
		g.metrics.MinRTT = 0
	}

	return &g.metrics, nil
}

func (g *ExchangeLoadGenerator) runWorker(ctx context.Context, ex Exchanger) {
	for i := 0; g.requests <= 0 || i < g.requests; i++ {
		if ctx.Err() != nil {
			return
		}

		out, err := ex.Exchange(ctx, g.message)
		if err != nil {
			// A worker cut off by the duration limit is not a failure.
			if ctx.Err() != nil {
				return
			}
			g.mu.Lock()
			g.metrics.TotalRequests++
			g.metrics.Failed++
			g.mu.Unlock()
			return
		}

		g.record(out)
	}
}

func (g *ExchangeLoadGenerator) record(out requester.Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.metrics.TotalRequests++
	if out.Kind == requester.TimedOut {
		g.metrics.TimedOut++
		return
	}

	g.metrics.Replied++
	g.rttTotal += out.RTT
	if out.RTT > g.metrics.MaxRTT {
		g.metrics.MaxRTT = out.RTT
	}
	if out.RTT < g.metrics.MinRTT {
		g.metrics.MinRTT = out.RTT
	}
}
