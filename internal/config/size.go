package config

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Size is a byte count that reads human-friendly values from YAML and flags.
//   - Decimal units: 16B, 1KB (1KB = 1000 bytes)
//   - Binary units: 1KiB (1KiB = 1024 bytes)
//   - Plain number: 1024 (bytes)
type Size int

// ParseSize parses a human-readable size string to bytes.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size format '%s': %w", s, err)
	}
	if n > uint64(MaxDatagramSize) {
		return 0, fmt.Errorf("size %s exceeds the %d byte datagram limit", s, int(MaxDatagramSize))
	}

	return Size(n), nil
}

// String formats the size with IEC binary units.
func (s Size) String() string {
	if s < 0 {
		return fmt.Sprintf("%d B", int(s))
	}
	return humanize.IBytes(uint64(s))
}

// Bytes returns the size as an int for buffer allocation.
func (s Size) Bytes() int {
	return int(s)
}

// UnmarshalYAML accepts both integers and unit strings.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: size must be a scalar", value.Line)
	}

	parsed, err := ParseSize(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*s = parsed
	return nil
}

// MarshalYAML writes the size in its human-readable form.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// Set implements pflag.Value so sizes can be given on the command line.
func (s *Size) Set(v string) error {
	parsed, err := ParseSize(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Type implements pflag.Value.
func (s *Size) Type() string {
	return "size"
}
