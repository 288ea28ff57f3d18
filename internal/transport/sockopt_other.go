//go:build !unix && !windows

package transport

import "syscall"

func reuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}

func isConnRefused(err error) bool {
	return false
}
