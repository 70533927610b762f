package redisx

import (
	"testing"
	"time"
)

func TestNewAppliesTimeouts(t *testing.T) {
	c := New("localhost:6379")
	defer c.Close()

	opt := c.Options()
	if opt.DialTimeout != 2*time.Second {
		t.Errorf("dial timeout = %v, want 2s", opt.DialTimeout)
	}
	if opt.ReadTimeout != 2*time.Second || opt.WriteTimeout != 2*time.Second {
		t.Errorf("read/write timeout = %v/%v, want 2s", opt.ReadTimeout, opt.WriteTimeout)
	}
}
