//go:build linux

package smbus

import (
	"strings"
	"testing"
)

func TestOpen_RejectsBadAddr(t *testing.T) {
	for _, addr := range []uint16{0, 0x80, 0x3FF} {
		if _, err := Open("/dev/null", addr); err == nil || !strings.Contains(err.Error(), "invalid addr") {
			t.Errorf("Open(addr=0x%X) err=%v want invalid addr", addr, err)
		}
	}
}

func TestTx_ClosedConn(t *testing.T) {
	var c *Conn
	if err := c.tx([]byte{0}, nil); err == nil {
		t.Fatalf("nil conn must error")
	}

	c = &Conn{}
	if err := c.ReadReg(0x31, make([]byte, 2)); err == nil {
		t.Fatalf("closed conn must error")
	}
}
