package taskstore

import (
	"context"
	"os/exec"
	"testing"
)

func TestShowAgainstRealBrBinary(t *testing.T) {
	if _, err := exec.LookPath("br"); err != nil {
		t.Skip("br CLI not available on PATH")
	}

	c := NewClient(t.TempDir())
	if _, err := c.Show(context.Background(), "nonexistent-id"); err == nil {
		t.Error("expected an error looking up a nonexistent task")
	}
}

// compile-time assertion that Client satisfies Store.
var _ Store = (*Client)(nil)
