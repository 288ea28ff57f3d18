// Package responder implements the listening side of the exchange: it binds
// a UDP address and answers every datagram it receives with one reply sent
// back to the datagram's sender.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/chaos"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/health"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/logging"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/metrics"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/protocol"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/recovery"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/transport"
)

// readBufferSize holds any UDP payload, so the request bound is applied by
// truncation rather than by the size of the read.
const readBufferSize = 64 * 1024

// Transform derives the reply text from a decoded request.
// It must be deterministic and defined for every input, including "".
type Transform func(request string) string

// Ack is the default transform: the request prefixed with "ACK ".
func Ack(request string) string {
	return "ACK " + request
}

// Option configures a Responder.
type Option func(*Responder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Responder) {
		r.metrics = m
	}
}

// WithTransform replaces Ack.
func WithTransform(t Transform) Option {
	return func(r *Responder) {
		r.transform = t
	}
}

// WithPacketConn serves on an already bound socket instead of binding the
// configured endpoint. Run takes ownership and closes it.
func WithPacketConn(conn net.PacketConn) Option {
	return func(r *Responder) {
		r.conn = conn
	}
}

// Responder answers request datagrams. A Responder serves once: Run may
// only be called a single time.
type Responder struct {
	cfg       config.ServerConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	transform Transform
	codec     protocol.Codec
	limiter   *rate.Limiter
	injector  *chaos.FaultInjector

	conn      net.PacketConn
	closeOnce sync.Once
	closeErr  error

	started   atomic.Bool
	running   atomic.Bool
	ready     chan struct{}
	localAddr atomic.Pointer[net.Addr]

	received  atomic.Uint64
	replied   atomic.Uint64
	dropped   atomic.Uint64
	truncated atomic.Uint64
}

// New validates cfg and creates a Responder. No socket is opened until Run.
func New(cfg config.ServerConfig, opts ...Option) (*Responder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	policy, err := protocol.ParsePolicy(cfg.DecodePolicy)
	if err != nil {
		return nil, err
	}

	r := &Responder{
		cfg:       cfg,
		transform: Ack,
		codec:     protocol.NewCodec(policy),
		ready:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logging.NopLogger()
	}
	r.logger = r.logger.With(logging.KeyComponent, metrics.ComponentResponder)
	if r.metrics == nil {
		r.metrics = metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	}
	if cfg.ReplyRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.ReplyRate), cfg.ReplyBurst)
	}
	if cfg.Simulate.Enabled() {
		r.injector = newInjector(cfg.Simulate)
	}

	return r, nil
}

func newInjector(sim config.SimulateConfig) *chaos.FaultInjector {
	return chaos.NewFaultInjector(
		chaos.FaultConfig{Type: chaos.FaultDrop, Probability: sim.Drop},
		chaos.FaultConfig{Type: chaos.FaultDuplicate, Probability: sim.Duplicate},
		chaos.FaultConfig{
			Type:        chaos.FaultDelay,
			Probability: sim.Delay,
			MinDelay:    sim.DelayMin,
			MaxDelay:    sim.DelayMax,
		},
	)
}

// Run binds the configured endpoint and serves until ctx is cancelled or
// the socket fails. Cancellation returns ctx.Err(). A bind failure returns
// a *BindError; any later socket failure wraps ErrTransport.
func (r *Responder) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return errors.New("responder already started")
	}

	if r.conn == nil {
		addr := r.cfg.Endpoint.String()
		conn, err := transport.Listen(ctx, addr)
		if err != nil {
			return &BindError{Addr: addr, Err: err}
		}
		r.conn = conn
	}
	defer r.close()

	conn := r.conn
	if r.injector != nil {
		wrapped := chaos.WrapPacketConn(conn, r.injector)
		wrapped.OnFault = r.onFault
		conn = wrapped
	}

	stop := context.AfterFunc(ctx, func() { r.close() })
	defer stop()

	local := conn.LocalAddr()
	r.localAddr.Store(&local)
	r.running.Store(true)
	defer r.running.Store(false)
	close(r.ready)

	r.logger.Info("responder listening",
		logging.KeyLocalAddr, local.String(),
		logging.KeyLimit, r.cfg.MaxRequestSize.String())

	err := r.serve(ctx, conn)
	if ctx.Err() != nil {
		r.logger.Info("responder stopped", logging.KeyCount, r.received.Load())
		return ctx.Err()
	}
	r.logger.Error("responder failed", logging.KeyError, err)
	return err
}

func (r *Responder) serve(ctx context.Context, conn net.PacketConn) error {
	buf := make([]byte, readBufferSize)

	for {
		n, sender, err := conn.ReadFrom(buf)
		if err != nil {
			// Windows reports an ICMP port-unreachable for an earlier reply
			// on the next read. The socket is still usable.
			if transport.IsConnRefused(err) && ctx.Err() == nil {
				r.logger.Debug("previous reply was refused", logging.KeyError, err)
				continue
			}
			return fmt.Errorf("%w: read: %w", ErrTransport, err)
		}

		if err := r.handle(conn, buf[:n], sender); err != nil {
			return err
		}
	}
}

// handle answers a single datagram.
func (r *Responder) handle(conn net.PacketConn, datagram []byte, sender net.Addr) error {
	request, truncated := protocol.Truncate(datagram, r.cfg.MaxRequestSize.Bytes())

	r.received.Add(1)
	r.metrics.RecordRequest(len(request), truncated)
	if truncated {
		r.truncated.Add(1)
		r.logger.Debug("request truncated",
			logging.KeyRemoteAddr, sender.String(),
			logging.KeySize, len(datagram),
			logging.KeyLimit, r.cfg.MaxRequestSize.Bytes())
	}

	text, replaced := r.codec.DecodeReport(request)
	r.metrics.RecordReplacements(metrics.ComponentResponder, replaced)

	r.logger.Info("request received",
		logging.KeyRemoteAddr, sender.String(),
		logging.KeyRequest, text,
		logging.KeyBytes, len(request))

	if r.limiter != nil && !r.limiter.Allow() {
		r.drop(sender, metrics.DropRateLimited)
		return nil
	}

	var reply string
	if err := recovery.Call(r.logger, "transform", func() { reply = r.transform(text) }); err != nil {
		r.drop(sender, metrics.DropTransform)
		return nil
	}

	payload, cut := protocol.Truncate(r.codec.Encode(reply), protocol.MaxDatagramSize)
	if cut {
		r.logger.Warn("reply truncated to datagram limit",
			logging.KeyRemoteAddr, sender.String(),
			logging.KeyLimit, protocol.MaxDatagramSize)
	}

	r.logger.Info("sending reply",
		logging.KeyRemoteAddr, sender.String(),
		logging.KeyReply, reply)

	n, err := conn.WriteTo(payload, sender)
	if err != nil {
		return fmt.Errorf("%w: write to %s: %w", ErrTransport, sender, err)
	}

	r.replied.Add(1)
	r.metrics.RecordReply(n)
	return nil
}

func (r *Responder) drop(sender net.Addr, reason string) {
	r.dropped.Add(1)
	r.metrics.RecordDrop(reason)
	r.logger.Debug("request dropped",
		logging.KeyRemoteAddr, sender.String(),
		"reason", reason)
}

// onFault counts replies lost to fault simulation.
func (r *Responder) onFault(fault chaos.FaultType, addr net.Addr) {
	r.logger.Debug("fault injected", "fault", fault.String(), logging.KeyRemoteAddr, addr.String())
	if fault == chaos.FaultDrop {
		r.dropped.Add(1)
		r.metrics.RecordDrop(metrics.DropSimulated)
	}
}

func (r *Responder) close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.conn.Close()
	})
	return r.closeErr
}

// Ready is closed once the socket is bound and the responder is serving.
func (r *Responder) Ready() <-chan struct{} {
	return r.ready
}

// LocalAddr returns the bound address, or nil before Run has bound it.
func (r *Responder) LocalAddr() net.Addr {
	if p := r.localAddr.Load(); p != nil {
		return *p
	}
	return nil
}

// IsRunning reports whether Run is serving.
func (r *Responder) IsRunning() bool {
	return r.running.Load()
}

// Stats returns request counters for the health endpoint.
func (r *Responder) Stats() health.Stats {
	var local string
	if addr := r.LocalAddr(); addr != nil {
		local = addr.String()
	}
	return health.Stats{
		LocalAddr:        local,
		RequestsReceived: r.received.Load(),
		RepliesSent:      r.replied.Load(),
		RequestsDropped:  r.dropped.Load(),
	}
}

// Truncated returns how many requests exceeded the receive bound.
func (r *Responder) Truncated() uint64 {
	return r.truncated.Load()
}
