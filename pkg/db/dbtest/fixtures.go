package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, db *gorm.DB, role enums.Role) models.User {
	t.Helper()
	user := models.User{
		Email:     fmt.Sprintf("bz_test_%s@example.com", uuid.NewString()),
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// SeedSupplier inserts a supplier owned by a fresh supplier-role user.
func SeedSupplier(t testing.TB, db *gorm.DB) models.Supplier {
	t.Helper()
	owner := SeedUser(t, db, enums.RoleSupplier)
	supplier := models.Supplier{
		UserID: owner.ID,
		Name:   "Supplier " + owner.ID.String()[:8],
		Rating: decimal.Zero,
	}
	require.NoError(t, db.Create(&supplier).Error)
	return supplier
}

// SeedProduct inserts an available product priced in major units.
func SeedProduct(t testing.TB, db *gorm.DB, supplierID uuid.UUID, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		SupplierID:    supplierID,
		Name:          "Product " + uuid.NewString()[:8],
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   stock > 0,
		Rating:        decimal.Zero,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}
