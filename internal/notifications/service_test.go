package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

func seedNotifications(t *testing.T, conn *gorm.DB, userID uuid.UUID, count int) []models.Notification {
	t.Helper()
	repo := NewRepository(conn)
	base := time.Now().UTC().Add(-time.Hour)
	out := make([]models.Notification, 0, count)
	for i := 0; i < count; i++ {
		eventID := uuid.New()
		row := models.Notification{
			UserID:    userID,
			EventID:   &eventID,
			Type:      enums.NotificationTypeOrderUpdated,
			Title:     "Order updated",
			Message:   "Order is now CONFIRMED.",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		created, err := repo.Create(context.Background(), &row)
		require.NoError(t, err)
		require.True(t, created)
		out = append(out, row)
	}
	return out
}

func TestRepositoryCreateDedupesEvent(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, enums.RoleCustomer)
	repo := NewRepository(conn)
	eventID := uuid.New()

	first := models.Notification{UserID: user.ID, EventID: &eventID, Type: enums.NotificationTypeReviewReply, Title: "t", Message: "m"}
	created, err := repo.Create(context.Background(), &first)
	require.NoError(t, err)
	assert.True(t, created)

	dup := models.Notification{UserID: user.ID, EventID: &eventID, Type: enums.NotificationTypeReviewReply, Title: "t", Message: "m"}
	created, err = repo.Create(context.Background(), &dup)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestServiceListPaginatesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, enums.RoleCustomer)
	rows := seedNotifications(t, conn, user.ID, 3)
	seedNotifications(t, conn, dbtest.SeedUser(t, conn, enums.RoleCustomer).ID, 2)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	first, err := svc.List(context.Background(), ListParams{UserID: user.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, rows[2].ID, first.Items[0].ID)
	assert.Equal(t, rows[1].ID, first.Items[1].ID)
	assert.Equal(t, int64(3), first.UnreadCount)
	require.NotEmpty(t, first.Cursor)

	decoded, err := pagination.ParseCursor(first.Cursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].ID, decoded.ID)

	second, err := svc.List(context.Background(), ListParams{UserID: user.ID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, rows[0].ID, second.Items[0].ID)
	assert.Empty(t, second.Cursor)
}

func TestServiceMarkReadScopesToUser(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, enums.RoleCustomer)
	rows := seedNotifications(t, conn, user.ID, 3)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.MarkRead(ctx, user.ID, rows[0].ID))
	require.NoError(t, svc.MarkRead(ctx, user.ID, rows[0].ID), "marking twice is a no-op")

	err = svc.MarkRead(ctx, uuid.New(), rows[1].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	unread, err := svc.List(ctx, ListParams{UserID: user.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)
	assert.Equal(t, int64(2), unread.UnreadCount)

	updated, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	all, err := svc.List(ctx, ListParams{UserID: user.ID})
	require.NoError(t, err)
	assert.Zero(t, all.UnreadCount)
	for _, item := range all.Items {
		assert.True(t, item.Read)
	}
}

func TestServiceValidation(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.List(ctx, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.List(ctx, ListParams{UserID: uuid.New(), Cursor: "bad"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.IsCode(svc.MarkRead(ctx, uuid.New(), uuid.Nil), pkgerrors.CodeValidation))
	_, err = svc.MarkAllRead(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NewService(nil)
	assert.Error(t, err)
}

func TestRepositoryDeleteReadBeforeKeepsUnread(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, enums.RoleCustomer)
	rows := seedNotifications(t, conn, user.ID, 3)
	repo := NewRepository(conn)
	ctx := context.Background()
	old := time.Now().UTC().Add(-200 * 24 * time.Hour)

	_, err := repo.MarkRead(ctx, user.ID, rows[0].ID, old)
	require.NoError(t, err)
	_, err = repo.MarkRead(ctx, user.ID, rows[1].ID, time.Now().UTC())
	require.NoError(t, err)

	deleted, err := repo.DeleteReadBefore(ctx, nil, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	require.NoError(t, conn.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, rows[1].ID, remaining[0].ID)
	assert.Equal(t, rows[2].ID, remaining[1].ID)
}

type failingRepository struct {
	Repository
}

func (failingRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return 0, errors.New("boom")
}

func TestServiceMarkAllReadWrapsFailure(t *testing.T) {
	svc, err := NewService(failingRepository{})
	require.NoError(t, err)
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
