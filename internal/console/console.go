// Package console prints requester progress for people at a terminal.
package console

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/thanhnguyen123-dev/COMP3310-Lab-2-UDP/internal/requester"
)

// Prompt is written before each line when reading from a terminal.
const Prompt = "> "

// Options controls what a Printer writes.
type Options struct {
	// Quiet omits the line written after each request is sent.
	Quiet bool

	// Interactive writes Prompt before reading each line.
	Interactive bool

	// Color highlights timeouts.
	Color bool
}

// IsTerminal reports whether stream is a file attached to a terminal.
// Readers and writers that are not files never are.
func IsTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes requester output. It implements requester.Reporter.
type Printer struct {
	out     io.Writer
	opts    Options
	timeout lipgloss.Style
}

var _ requester.Reporter = (*Printer)(nil)

// New creates a Printer writing to out.
func New(out io.Writer, opts Options) *Printer {
	return &Printer{
		out:  out,
		opts: opts,
		timeout: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203")),
	}
}

// Connected announces the peer the session sends to.
func (p *Printer) Connected(peer *net.UDPAddr) {
	fmt.Fprintln(p.out, "Client created socket to", peer.IP.String(), strconv.Itoa(peer.Port))
}

// Prompt implements requester.Reporter.
func (p *Printer) Prompt() {
	if p.opts.Interactive {
		fmt.Fprint(p.out, Prompt)
	}
}

// Sent implements requester.Reporter.
func (p *Printer) Sent(string) {
	if !p.opts.Quiet {
		fmt.Fprintln(p.out, "Sent request to server")
	}
}

// Outcome implements requester.Reporter.
func (p *Printer) Outcome(_ string, out requester.Outcome) {
	text := out.String()
	if out.Kind == requester.TimedOut && p.opts.Color {
		text = p.timeout.Render(text)
	}
	fmt.Fprintln(p.out, text)
}

// Closed reports that the session socket was released.
func (p *Printer) Closed() {
	if p.opts.Interactive {
		// End the dangling prompt left by end of input.
		fmt.Fprintln(p.out)
	}
	fmt.Fprintln(p.out, "Client close")
}

// Done is the final line of a run.
func (p *Printer) Done() {
	fmt.Fprintln(p.out, "Done.")
}
