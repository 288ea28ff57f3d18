// Package requester implements the sending side of the exchange: a session
// bound to one peer that sends a datagram per request and waits, up to a
// fixed timeout, for the reply.
//
// There are no request identifiers. A late or duplicated reply to an
// earlier request is indistinguishable from the reply to the current one.
package requester

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/config"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/logging"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/metrics"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/protocol"
	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/transport"
)

const (
	// readBufferSize holds any UDP payload; replies are then cut to the
	// configured bound.
	readBufferSize = 64 * 1024

	// maxLineSize bounds what is kept of a single input line. The rest of
	// a longer line is read and discarded.
	maxLineSize = 64 * 1024
)

// ErrTransport marks a socket failure that ends the session.
var ErrTransport = errors.New("requester transport error")

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// Session is a UDP socket connected to a single responder. Exchanges are
// strictly sequential; a Session must not be used from several goroutines.
type Session struct {
	cfg     config.ClientConfig
	conn    *net.UDPConn
	codec   protocol.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
	buf     []byte

	closeOnce sync.Once
	closeErr  error
}

// Dial validates cfg and connects a UDP socket to the configured peer.
// Nothing is sent until the first exchange.
func Dial(ctx context.Context, cfg config.ClientConfig, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	policy, err := protocol.ParsePolicy(cfg.DecodePolicy)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:   cfg,
		codec: protocol.NewCodec(policy),
		buf:   make([]byte, readBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NopLogger()
	}
	s.logger = s.logger.With(logging.KeyComponent, metrics.ComponentRequester)
	if s.metrics == nil {
		s.metrics = metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	}

	addr := cfg.Endpoint.String()
	conn, err := transport.Dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, addr, err)
	}
	s.conn = conn

	s.logger.Info("requester connected",
		logging.KeyRemoteAddr, conn.RemoteAddr().String(),
		logging.KeyLocalAddr, conn.LocalAddr().String(),
		"timeout", cfg.Timeout)

	return s, nil
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() *net.UDPAddr {
	return s.conn.RemoteAddr().(*net.UDPAddr)
}

// LocalAddr returns the local socket address.
func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the socket. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
		s.logger.Debug("requester closed")
	})
	return s.closeErr
}

// Exchange sends request and waits for the reply. A missing reply yields
// an Outcome of kind TimedOut and a nil error. The error is non-nil only
// for socket failures (wrapping ErrTransport) or when ctx ends first.
func (s *Session) Exchange(ctx context.Context, request string) (Outcome, error) {
	sentAt, err := s.send(ctx, request)
	if err != nil {
		return Outcome{}, err
	}
	return s.await(ctx, sentAt)
}

// send writes one request datagram.
func (s *Session) send(ctx context.Context, request string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	limit := s.cfg.MaxMessageSize.Bytes()
	payload, truncated := protocol.Truncate(s.codec.Encode(request), limit)
	if truncated {
		s.logger.Warn("request truncated",
			logging.KeySize, len(request),
			logging.KeyLimit, limit)
	}

	sentAt := time.Now()
	n, err := s.conn.Write(payload)
	if err != nil && transport.IsConnRefused(err) {
		// A refusal left over from an earlier datagram can surface on
		// this write. It says nothing about this one, so try again.
		s.logger.Debug("discarding stale refusal", logging.KeyError, err)
		sentAt = time.Now()
		n, err = s.conn.Write(payload)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: write: %w", ErrTransport, err)
	}

	s.metrics.RecordSent(n)
	s.logger.Debug("request sent",
		logging.KeyRequest, request,
		logging.KeyBytes, n)

	return sentAt, nil
}

// await reads the reply to a request sent at sentAt.
func (s *Session) await(ctx context.Context, sentAt time.Time) (Outcome, error) {
	deadline := sentAt.Add(s.cfg.Timeout)
	ctxBound := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		ctxBound = true
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Outcome{}, fmt.Errorf("%w: set deadline: %w", ErrTransport, err)
	}

	// Cancellation expires the deadline so the blocked read returns.
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		n, err := s.conn.Read(s.buf)
		if err == nil {
			return s.replied(s.buf[:n], time.Since(sentAt)), nil
		}

		if transport.IsConnRefused(err) {
			// Nobody is listening at the peer. No reply will come, but
			// that is reported as a timeout once the deadline passes.
			s.logger.Debug("peer unreachable", logging.KeyError, err)
			continue
		}
		if transport.IsTimeout(err) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{}, ctxErr
			}
			if ctxBound {
				// The socket deadline can fire just ahead of ctx's timer.
				return Outcome{}, context.DeadlineExceeded
			}
			s.metrics.RecordTimeout()
			s.logger.Debug("no reply before timeout", logging.KeyDuration, s.cfg.Timeout)
			return Outcome{Kind: TimedOut}, nil
		}
		return Outcome{}, fmt.Errorf("%w: read: %w", ErrTransport, err)
	}
}

func (s *Session) replied(datagram []byte, rtt time.Duration) Outcome {
	reply, truncated := protocol.Truncate(datagram, s.cfg.MaxMessageSize.Bytes())
	if truncated {
		s.logger.Debug("reply truncated",
			logging.KeySize, len(datagram),
			logging.KeyLimit, s.cfg.MaxMessageSize.Bytes())
	}

	text, replaced := s.codec.DecodeReport(reply)
	s.metrics.RecordReplacements(metrics.ComponentRequester, replaced)
	s.metrics.RecordReplied(len(reply), rtt.Seconds())

	s.logger.Debug("reply received",
		logging.KeyReply, text,
		logging.KeyBytes, len(reply),
		logging.KeyDuration, rtt)

	return Outcome{Kind: Replied, Text: text, RTT: rtt}
}

// Reporter receives progress from Run.
type Reporter interface {
	// Prompt is called before each input line is read.
	Prompt()
	// Sent is called once a request datagram has left.
	Sent(request string)
	// Outcome is called with the result of each exchange.
	Outcome(request string, out Outcome)
}

// NopReporter ignores everything.
type NopReporter struct{}

func (NopReporter) Prompt()                 {}
func (NopReporter) Sent(string)             {}
func (NopReporter) Outcome(string, Outcome) {}

// Run performs one exchange per line of input, in order, until input is
// exhausted. It returns nil at end of input. Timeouts are reported and do
// not stop the run; socket failures and ctx cancellation do.
func (s *Session) Run(ctx context.Context, input io.Reader, report Reporter) error {
	if report == nil {
		report = NopReporter{}
	}

	reader := bufio.NewReader(input)

	var count int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		report.Prompt()
		line, cut, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if cut {
			s.logger.Warn("input line truncated", logging.KeyLimit, maxLineSize)
		}

		sentAt, err := s.send(ctx, line)
		if err != nil {
			return err
		}
		report.Sent(line)

		out, err := s.await(ctx, sentAt)
		if err != nil {
			return err
		}
		s.logger.Debug("exchange complete",
			logging.KeyRequest, line,
			logging.KeyOutcome, out.Kind.String())
		report.Outcome(line, out)
		count++
	}

	s.logger.Debug("input exhausted", logging.KeyCount, count)
	return nil
}

// readLine returns the next line of r without its line ending. At most
// maxLineSize bytes are kept; cut reports that the rest was discarded.
// io.EOF is returned only when no bytes remain. A final line without a
// newline is returned as is.
func readLine(r *bufio.Reader) (string, bool, error) {
	var (
		buf  []byte
		cut  bool
		read bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}

		if room := maxLineSize - len(buf); len(chunk) > room {
			buf = append(buf, chunk[:room]...)
			cut = true
		} else {
			buf = append(buf, chunk...)
		}

		switch {
		case err == nil:
			return strings.TrimSuffix(string(buf), "\r"), cut, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			return strings.TrimSuffix(string(buf), "\r"), cut, nil
		default:
			return "", false, err
		}
	}
}
