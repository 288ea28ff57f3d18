package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a (host, port) transport address.
type Endpoint struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// String returns the endpoint in host:port form, bracketing IPv6 hosts.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ArgError is a malformed positional host or port argument.
type ArgError struct {
	Name  string
	Value string
	Err   error
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Name, e.Value, e.Err)
}

func (e *ArgError) Unwrap() error {
	return e.Err
}

// WithArgs applies the positional [host [port]] arguments and returns the
// resulting endpoint. The receiver is not modified. A port can only be
// given after a host.
func (e Endpoint) WithArgs(args []string) (Endpoint, error) {
	if len(args) > 2 {
		return e, &ArgError{
			Name:  "arguments",
			Value: strings.Join(args, " "),
			Err:   fmt.Errorf("expected at most a host and a port"),
		}
	}

	if len(args) > 0 {
		if args[0] == "" {
			return e, &ArgError{Name: "host", Value: args[0], Err: fmt.Errorf("host must not be empty")}
		}
		e.Host = args[0]
	}

	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return e, &ArgError{Name: "port", Value: args[1], Err: fmt.Errorf("not an integer")}
		}
		if port < 1 || port > 65535 {
			return e, &ArgError{Name: "port", Value: args[1], Err: fmt.Errorf("out of range 1-65535")}
		}
		e.Port = port
	}

	return e, nil
}
