package orders

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	suffixBytes       = 5
)

var suffixEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NumberGenerator produces candidate order numbers; uniqueness is enforced by the database.
type NumberGenerator func(now time.Time) (string, error)

// NewOrderNumber returns ORD-<yyyymmdd>-<8 base32 chars> for the UTC day of now.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, suffixBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), suffixEncoding.EncodeToString(buf)), nil
}
