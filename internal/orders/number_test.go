package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[A-Z2-7]{8}$`)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -5*3600))

	number, err := NewOrderNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, orderNumberPattern, number)
	assert.Equal(t, "ORD-20260310-", number[:13], "date uses the UTC day")
}

func TestNewOrderNumberVaries(t *testing.T) {
	seen := map[string]struct{}{}
	now := time.Now()
	for i := 0; i < 200; i++ {
		number, err := NewOrderNumber(now)
		require.NoError(t, err)
		seen[number] = struct{}{}
	}
	assert.Len(t, seen, 200)
}
