package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

func TestNormalizeStampsCreatedAt(t *testing.T) {
	fixed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	store := &Store{now: func() time.Time { return fixed }}

	entry, err := store.normalize(Entry{
		ActorID:    uuid.New(),
		Action:     ActionStockUpdated,
		EntityType: EntityProduct,
		EntityID:   uuid.New(),
		Metadata:   map[string]any{"oldStock": 0, "newStock": 5},
	})
	require.NoError(t, err)
	assert.Equal(t, fixed, entry.CreatedAt)
}

func TestNormalizeRejectsIncompleteEntries(t *testing.T) {
	store := &Store{now: time.Now}

	_, err := store.normalize(Entry{EntityType: EntityProduct, EntityID: uuid.New()})
	assert.Error(t, err)

	_, err = store.normalize(Entry{Action: ActionPriceUpdated, EntityType: EntityProduct})
	assert.Error(t, err)
}

func TestEntryDocumentShape(t *testing.T) {
	entry := Entry{
		ActorID:    uuid.New(),
		Action:     ActionPriceUpdated,
		EntityType: EntityProduct,
		EntityID:   uuid.New(),
		Metadata:   map[string]any{"oldPrice": "9.99", "newPrice": "12.50"},
		CreatedAt:  time.Now().UTC(),
	}
	raw, err := bson.Marshal(entry)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	for _, key := range []string{"actorId", "action", "entityType", "entityId", "metadata", "createdAt"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, ActionPriceUpdated, doc["action"])
}

func TestConnectRequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), config.MongoConfig{}, nil)
	assert.Error(t, err)
}

func TestNilStorePing(t *testing.T) {
	var store *Store
	assert.Error(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close(context.Background()))
}
