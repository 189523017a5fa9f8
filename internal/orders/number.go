package orders

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"regexp"
	"time"
)

// orderNumberPattern matches the customer-facing format FF-YYYYMMDD-NNNN.
var orderNumberPattern = regexp.MustCompile(`^FF-\d{8}-\d{4}$`)

// newOrderNumber builds a customer-facing order number. The date component
// is the UTC calendar day, not the shopper's, so numbers stay monotonic no
// matter where the order is placed. The 4-digit suffix leaves a small
// collision window; the unique index on order_number turns a collision into
// a retriable insert failure instead of a duplicate.
func newOrderNumber(now time.Time) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	suffix := binary.BigEndian.Uint64(buf[:]) % 10000
	return fmt.Sprintf("FF-%s-%04d", now.UTC().Format("20060102"), suffix), nil
}

// ValidOrderNumber reports whether the value matches the documented format.
func ValidOrderNumber(value string) bool {
	return orderNumberPattern.MatchString(value)
}
