package products

import (
	"testing"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

func TestNextAvailability(t *testing.T) {
	cases := []struct {
		name     string
		old, new int
		current  bool
		want     bool
	}{
		{name: "sell out", old: 5, new: 0, current: true, want: false},
		{name: "restock from zero", old: 0, new: 3, current: false, want: true},
		{name: "adjust keeps enabled", old: 5, new: 8, current: true, want: true},
		{name: "adjust keeps disabled", old: 5, new: 8, current: false, want: false},
		{name: "zero to zero", old: 0, new: 0, current: false, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextAvailability(tc.old, tc.new, tc.current); got != tc.want {
				t.Fatalf("NextAvailability(%d, %d, %v) = %v, want %v", tc.old, tc.new, tc.current, got, tc.want)
			}
		})
	}
}

func TestStockStatusFor(t *testing.T) {
	low := StockStatusFor(models.Product{StockQuantity: 10, IsAvailable: true}, 10)
	if !low.IsLowStock || low.IsOutOfStock {
		t.Fatalf("expected low stock at threshold, got %+v", low)
	}

	healthy := StockStatusFor(models.Product{StockQuantity: 11, IsAvailable: true}, 10)
	if healthy.IsLowStock {
		t.Fatalf("expected healthy stock above threshold, got %+v", healthy)
	}

	empty := StockStatusFor(models.Product{StockQuantity: 0}, 10)
	if empty.IsLowStock || !empty.IsOutOfStock || empty.IsAvailable {
		t.Fatalf("expected out of stock, got %+v", empty)
	}
}
