//go:build linux

package transport

import (
	"context"
	"testing"
	"time"

	"golang.org/x/net/nettest"
)

func TestIsConnRefused_NoListener(t *testing.T) {
	// Reserve a port, then release it so nothing is listening there.
	pc, err := nettest.NewLocalPacketListener("udp4")
	if err != nil {
		t.Fatalf("NewLocalPacketListener() error = %v", err)
	}
	addr := pc.LocalAddr().String()
	pc.Close()

	conn, err := Dial(context.Background(), addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(make([]byte, 16))
	if !IsConnRefused(err) {
		t.Errorf("IsConnRefused(%v) = false, want true", err)
	}
}
