package requester

import "time"

// TimeoutText is how a timed out exchange is rendered.
const TimeoutText = "TIME OUT"

// Kind tells the two exchange results apart.
type Kind int

const (
	// Replied means a reply datagram arrived before the timeout.
	Replied Kind = iota
	// TimedOut means no reply arrived in time. It is an expected result,
	// not an error.
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case Replied:
		return "replied"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Outcome is the result of one exchange.
type Outcome struct {
	Kind Kind

	// Text is the decoded reply. Empty when Kind is TimedOut.
	Text string

	// RTT is the time from send to reply. Zero when Kind is TimedOut.
	RTT time.Duration
}

// String returns the reply text, or TimeoutText.
func (o Outcome) String() string {
	if o.Kind == TimedOut {
		return TimeoutText
	}
	return o.Text
}
