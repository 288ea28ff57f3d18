// Package protocol defines the wire format shared by the responder and the
// requester: one datagram carries one complete UTF-8 text message, with no
// header, length prefix or checksum.
//
// Encoding never fails. Decoding is loss-tolerant: bytes that do not form
// valid UTF-8 are replaced by a visible placeholder instead of producing an
// error, because the transport does no validation of its own.
package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxDatagramSize is the largest payload a single UDP datagram can carry over IPv4.
const MaxDatagramSize = 65507

// Policy selects how undecodable bytes are represented after decoding.
type Policy uint8

const (
	// PolicyBackslash renders each invalid byte as a \xNN escape.
	PolicyBackslash Policy = iota

	// PolicyReplacement renders each invalid byte as U+FFFD.
	PolicyReplacement
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyBackslash:
		return "backslash"
	case PolicyReplacement:
		return "replacement"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy converts a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "backslash", "":
		return PolicyBackslash, nil
	case "replacement":
		return PolicyReplacement, nil
	default:
		return 0, fmt.Errorf("unknown decode policy %q", s)
	}
}

// Codec converts between text and datagram payloads.
// The zero value uses PolicyBackslash.
type Codec struct {
	policy Policy
}

// NewCodec creates a codec with the given replacement policy.
func NewCodec(policy Policy) Codec {
	return Codec{policy: policy}
}

// Policy returns the codec's replacement policy.
func (c Codec) Policy() Policy {
	return c.policy
}

// Encode returns the wire bytes for s.
func (c Codec) Encode(s string) []byte {
	return []byte(s)
}

// Decode converts wire bytes to text. It never fails.
func (c Codec) Decode(b []byte) string {
	s, _ := c.DecodeReport(b)
	return s
}

// DecodeReport is Decode that also returns how many bytes had to be replaced.
func (c Codec) DecodeReport(b []byte) (string, int) {
	invalid := countInvalid(b)
	if invalid == 0 {
		return string(b), 0
	}

	switch c.policy {
	case PolicyReplacement:
		return replaceInvalid(b), invalid
	default:
		return escapeInvalid(b), invalid
	}
}

// Encode returns the wire bytes for s.
func Encode(s string) []byte {
	return Codec{}.Encode(s)
}

// Decode converts wire bytes to text using backslash escapes for invalid bytes.
func Decode(b []byte) string {
	return Codec{}.Decode(b)
}

// Truncate bounds a payload to max bytes. The second result reports whether
// anything was cut. The cut is byte-based and may split a multi-byte rune,
// in which case the dangling bytes decode as placeholders.
func Truncate(b []byte, max int) ([]byte, bool) {
	if max <= 0 || len(b) <= max {
		return b, false
	}
	return b[:max], true
}

func countInvalid(b []byte) int {
	n := 0
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			n++
		}
		i += size
	}
	return n
}

// escapeInvalid writes every byte that is not part of a valid UTF-8
// sequence as \xNN, leaving valid runes untouched.
func escapeInvalid(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 8)

	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, `\x%02x`, b[i])
		} else {
			sb.Write(b[i : i+size])
		}
		i += size
	}

	return sb.String()
}

func replaceInvalid(b []byte) string {
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}
