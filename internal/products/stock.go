package products

import "github.com/angelmondragon/bazaar-backend/pkg/db/models"

// NextAvailability derives isAvailable after a stock write.
// Selling out always disables the product and restocking from zero always
// re-enables it; any other change keeps the flag the supplier chose.
func NextAvailability(oldStock, newStock int, current bool) bool {
	switch {
	case newStock == 0:
		return false
	case oldStock == 0 && newStock > 0:
		return true
	default:
		return current
	}
}

// StockStatus is the public stock view of a product.
type StockStatus struct {
	StockQuantity int  `json:"stockQuantity"`
	IsAvailable   bool `json:"isAvailable"`
	IsLowStock    bool `json:"isLowStock"`
	IsOutOfStock  bool `json:"isOutOfStock"`
}

// StockStatusFor classifies a product against the low-stock threshold.
// An empty shelf is out of stock, never low stock.
func StockStatusFor(product models.Product, lowStockThreshold int) StockStatus {
	return StockStatus{
		StockQuantity: product.StockQuantity,
		IsAvailable:   product.IsAvailable,
		IsLowStock:    product.StockQuantity > 0 && product.StockQuantity <= lowStockThreshold,
		IsOutOfStock:  product.StockQuantity == 0,
	}
}
