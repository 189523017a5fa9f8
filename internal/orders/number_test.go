package orders

import (
	"strings"
	"testing"
	"time"
)

func TestOrderNumberFormat(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		number, err := newOrderNumber(now)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ValidOrderNumber(number) {
			t.Fatalf("bad format: %q", number)
		}
		if !strings.HasPrefix(number, "FF-20260314-") {
			t.Fatalf("bad date segment: %q", number)
		}
	}
}

func TestValidOrderNumber(t *testing.T) {
	t.Parallel()

	for _, invalid := range []string{"", "FF-2026031-0001", "XX-20260314-0001", "FF-20260314-01", "ff-20260314-0001"} {
		if ValidOrderNumber(invalid) {
			t.Fatalf("expected %q invalid", invalid)
		}
	}
}
