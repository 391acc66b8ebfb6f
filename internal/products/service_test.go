package products

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/authz"
	"github.com/angelmondragon/bazaar-backend/pkg/activity"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	value, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) StockStatusKey(productID string) string {
	return "bz:stock:" + productID
}

type recordingActivity struct {
	entries []activity.Entry
	err     error
}

func (r *recordingActivity) Record(ctx context.Context, entry activity.Entry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *recordingActivity) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int64) ([]activity.Entry, error) {
	out := []activity.Entry{}
	for i := len(r.entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if r.entries[i].EntityType == entityType && r.entries[i].EntityID == entityID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

type stubRepricer struct {
	productID uuid.UUID
	price     decimal.Decimal
	count     int
	err       error
}

func (s *stubRepricer) RepriceProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, price decimal.Decimal) (int, error) {
	s.productID = productID
	s.price = price
	return s.count, s.err
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	store    *memoryStore
	activity *recordingActivity
	repricer *stubRepricer
	supplier models.Supplier
	owner    authz.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	store := newMemoryStore()
	recorder := &recordingActivity{}
	repricer := &stubRepricer{count: 2}
	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(conn),
		TxRunner:          db.NewFromGorm(conn),
		Carts:             repricer,
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil),
		Activity:          recorder,
		History:           recorder,
		Cache:             NewStatusCache(store, time.Minute),
		LowStockThreshold: 10,
	})
	require.NoError(t, err)

	supplier := dbtest.SeedSupplier(t, conn)
	supplierID := supplier.ID
	return fixture{
		db:       conn,
		svc:      svc,
		store:    store,
		activity: recorder,
		repricer: repricer,
		supplier: supplier,
		owner:    authz.Actor{UserID: supplier.UserID, Role: enums.RoleSupplier, SupplierID: &supplierID},
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

func TestUpdateStockSellOutAndRestock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 5)

	dto, err := f.svc.UpdateStock(ctx, f.owner, product.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, dto.StockQuantity)
	assert.False(t, dto.IsAvailable)

	dto, err = f.svc.UpdateStock(ctx, f.owner, product.ID, 7)
	require.NoError(t, err)
	assert.True(t, dto.IsAvailable)

	var events []models.OutboxEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 2)
	restocks := 0
	for _, event := range events {
		assert.Equal(t, enums.EventStockUpdated, event.EventType)
		var envelope outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(event.Payload, &envelope))
		var data payloads.StockUpdatedEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &data))
		if data.NewStock == 7 {
			restocks++
			assert.True(t, data.IsLowStock)
			assert.True(t, data.IsAvailable)
		}
	}
	assert.Equal(t, 1, restocks)

	require.Len(t, f.activity.entries, 2)
	assert.Equal(t, activity.ActionStockUpdated, f.activity.entries[0].Action)
	assert.Equal(t, 5, f.activity.entries[0].Metadata["oldStock"])
	assert.Equal(t, 0, f.activity.entries[0].Metadata["newStock"])
}

func TestUpdateStockKeepsManualAvailability(t *testing.T) {
	f := newFixture(t)
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 5)
	require.NoError(t, NewRepository(f.db).SetStock(context.Background(), product.ID, 5, false))

	dto, err := f.svc.UpdateStock(context.Background(), f.owner, product.ID, 9)
	require.NoError(t, err)
	assert.False(t, dto.IsAvailable)
}

func TestUpdateStockRejectsNegativeAndForeignSupplier(t *testing.T) {
	f := newFixture(t)
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 5)

	_, err := f.svc.UpdateStock(context.Background(), f.owner, product.ID, -1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	otherID := uuid.New()
	stranger := authz.Actor{UserID: uuid.New(), Role: enums.RoleSupplier, SupplierID: &otherID}
	_, err = f.svc.UpdateStock(context.Background(), stranger, product.ID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	reloaded, err := NewRepository(f.db).FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.StockQuantity)

	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateStockMissingProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateStock(context.Background(), f.owner, uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStockSurvivesActivityFailure(t *testing.T) {
	f := newFixture(t)
	f.activity.err = errors.New("mongo down")
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 5)

	_, err := f.svc.UpdateStock(context.Background(), f.owner, product.ID, 2)
	assert.NoError(t, err)
}

func TestGetStockStatusUsesCacheAndInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 3)

	status, err := f.svc.GetStockStatus(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, status.IsLowStock)
	assert.Contains(t, f.store.data, f.store.StockStatusKey(product.ID.String()))

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock_quantity", 50).Error)
	cached, err := f.svc.GetStockStatus(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, cached.StockQuantity, "expected cached snapshot")

	_, err = f.svc.UpdateStock(ctx, f.owner, product.ID, 40)
	require.NoError(t, err)
	assert.NotContains(t, f.store.data, f.store.StockStatusKey(product.ID.String()))

	fresh, err := f.svc.GetStockStatus(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, fresh.StockQuantity)
	assert.False(t, fresh.IsLowStock)
}

func TestUpdatePriceRepricesCarts(t *testing.T) {
	f := newFixture(t)
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 3)

	result, err := f.svc.UpdatePrice(context.Background(), f.owner, product.ID, decimal.RequireFromString("6.499"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.RepricedCartItems)
	assert.Equal(t, "6.50", result.Product.Price.StringFixed(2))
	assert.Equal(t, product.ID, f.repricer.productID)
	assert.Equal(t, "6.50", f.repricer.price.StringFixed(2))

	require.Len(t, f.activity.entries, 1)
	assert.Equal(t, activity.ActionPriceUpdated, f.activity.entries[0].Action)
	assert.Equal(t, "4.00", f.activity.entries[0].Metadata["oldPrice"])
}

func TestUpdatePriceRollsBackWhenRepricingFails(t *testing.T) {
	f := newFixture(t)
	f.repricer.err = errors.New("boom")
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 3)

	_, err := f.svc.UpdatePrice(context.Background(), f.owner, product.ID, decimal.NewFromInt(9))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	reloaded, err := NewRepository(f.db).FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.00", reloaded.Price.StringFixed(2))
}

func TestUpdatePriceValidation(t *testing.T) {
	f := newFixture(t)
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 3)

	_, err := f.svc.UpdatePrice(context.Background(), f.owner, product.ID, decimal.Zero)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.UpdatePrice(context.Background(), f.owner, product.ID, decimal.RequireFromString("0.004"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "price that rounds to zero")
	reloaded, err := NewRepository(f.db).FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.00", reloaded.Price.StringFixed(2))

	admin := authz.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	_, err = f.svc.UpdatePrice(context.Background(), admin, product.ID, decimal.NewFromInt(3))
	assert.NoError(t, err)
}

func TestListActivityNewestFirstForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, f.db, f.supplier.ID, "4.00", 5)
	other := dbtest.SeedProduct(t, f.db, f.supplier.ID, "2.00", 5)

	_, err := f.svc.UpdateStock(ctx, f.owner, product.ID, 8)
	require.NoError(t, err)
	_, err = f.svc.UpdateStock(ctx, f.owner, other.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.UpdatePrice(ctx, f.owner, product.ID, decimal.RequireFromString("6.50"))
	require.NoError(t, err)

	entries, err := f.svc.ListActivity(ctx, f.owner, product.ID, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, activity.ActionPriceUpdated, entries[0].Action)
	assert.Equal(t, activity.ActionStockUpdated, entries[1].Action)
	assert.Equal(t, f.owner.UserID, entries[1].ActorID)
	assert.Equal(t, 8, entries[1].Metadata["newStock"])

	latest, err := f.svc.ListActivity(ctx, f.owner, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, activity.ActionPriceUpdated, latest[0].Action)

	rivalSupplier := uuid.New()
	rival := authz.Actor{UserID: uuid.New(), Role: enums.RoleSupplier, SupplierID: &rivalSupplier}
	_, err = f.svc.ListActivity(ctx, rival, product.ID, 50)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.ListActivity(ctx, f.owner, uuid.New(), 50)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListActivityWithoutLogIsDependencyError(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		TxRunner: db.NewFromGorm(conn),
		Carts:    &stubRepricer{},
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	supplier := dbtest.SeedSupplier(t, conn)
	product := dbtest.SeedProduct(t, conn, supplier.ID, "4.00", 5)
	supplierID := supplier.ID
	owner := authz.Actor{UserID: supplier.UserID, Role: enums.RoleSupplier, SupplierID: &supplierID}

	_, err = svc.ListActivity(context.Background(), owner, product.ID, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
