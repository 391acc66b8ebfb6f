// Package activity persists audit entries for supplier-side catalog changes in MongoDB.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	ActionStockUpdated = "stock.updated"
	ActionPriceUpdated = "price.updated"

	EntityProduct = "product"
)

// Entry is a single activity log document.
type Entry struct {
	ActorID    uuid.UUID      `bson:"actorId"`
	Action     string         `bson:"action"`
	EntityType string         `bson:"entityType"`
	EntityID   uuid.UUID      `bson:"entityId"`
	Metadata   map[string]any `bson:"metadata,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt"`
}

// Recorder writes activity entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Lister reads the trail of one entity, newest first.
type Lister interface {
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int64) ([]Entry, error)
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// Connect dials MongoDB, verifies the primary is reachable and returns a store bound to the activity collection.
func Connect(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	store := &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.ActivityColl),
		now:        time.Now,
	}
	if err := store.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "mongo activity store connected")
	}
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_activity_entity_created"),
	})
	if err != nil {
		return fmt.Errorf("creating activity index: %w", err)
	}
	return nil
}

// Record inserts the entry, stamping CreatedAt when unset.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	doc, err := s.normalize(entry)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// ListForEntity returns the newest entries for one entity.
func (s *Store) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.collection.Find(ctx, bson.M{"entityType": entityType, "entityId": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decoding activity entries: %w", err)
	}
	return entries, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("mongo client not initialized")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) normalize(entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return Entry{}, errors.New("activity action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" || entry.EntityID == uuid.Nil {
		return Entry{}, errors.New("activity entity is required")
	}
	if entry.CreatedAt.IsZero() {
		now := time.Now
		if s != nil && s.now != nil {
			now = s.now
		}
		entry.CreatedAt = now().UTC()
	}
	return entry, nil
}
