package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:notificationsrepo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  item_id TEXT,
  dedup_key TEXT UNIQUE,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM notifications").Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, mutate func(*models.Notification)) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeStockAlert,
		Title:     "Item low on stock",
		Message:   "Gauze rolls is low on stock (3 left, minimum 20)",
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(notification)
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func TestListScopesToUser(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	seedNotification(t, db, owner, nil)
	seedNotification(t, db, owner, nil)
	seedNotification(t, db, other, nil)

	rows, next, err := repo.List(ctx, ListNotificationsParams{UserID: owner, Limit: 10})
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, owner, row.UserID)
	}
}

func TestListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	read := time.Now().UTC()
	seedNotification(t, db, userID, func(n *models.Notification) { n.ReadAt = &read })
	unread := seedNotification(t, db, userID, nil)

	rows, _, err := repo.List(ctx, ListNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		seedNotification(t, db, userID, func(n *models.Notification) { n.CreatedAt = created })
	}

	first, next, err := repo.List(ctx, ListNotificationsParams{UserID: userID, Limit: 3})
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Len(t, first, 3)
	assert.True(t, first[0].CreatedAt.After(first[2].CreatedAt))

	second, last, err := repo.List(ctx, ListNotificationsParams{UserID: userID, Limit: 3, Cursor: next})
	require.NoError(t, err)
	assert.Nil(t, last)
	require.Len(t, second, 2)
	assert.True(t, first[2].CreatedAt.After(second[0].CreatedAt) || first[2].CreatedAt.Equal(second[0].CreatedAt))
}

func TestMarkReadIsScopedAndIdempotent(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := uuid.New()
	notification := seedNotification(t, db, owner, nil)

	mark, err := repo.MarkRead(ctx, owner, notification.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	// Second call finds the row but has nothing left to update.
	mark, err = repo.MarkRead(ctx, owner, notification.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.False(t, mark.Updated)

	// Another user cannot see the row at all.
	mark, err = repo.MarkRead(ctx, uuid.New(), notification.ID, now)
	require.NoError(t, err)
	assert.False(t, mark.Found)
}

func TestMarkAllReadCountsOnlyUnread(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := uuid.New()
	read := now.Add(-time.Minute)
	seedNotification(t, db, userID, func(n *models.Notification) { n.ReadAt = &read })
	seedNotification(t, db, userID, nil)
	seedNotification(t, db, userID, nil)
	seedNotification(t, db, uuid.New(), nil)

	marked, err := repo.MarkAllRead(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	rows, _, err := repo.List(ctx, ListNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteReadOlderThanKeepsUnread(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := uuid.New()
	oldRead := now.Add(-48 * time.Hour)
	seedNotification(t, db, userID, func(n *models.Notification) {
		n.CreatedAt = oldRead
		n.ReadAt = &now
	})
	oldUnread := seedNotification(t, db, userID, func(n *models.Notification) { n.CreatedAt = oldRead })
	recent := seedNotification(t, db, userID, func(n *models.Notification) { n.ReadAt = &now })

	deleted, err := repo.DeleteReadOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, _, err := repo.List(ctx, ListNotificationsParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	ids := []uuid.UUID{rows[0].ID, rows[1].ID}
	assert.Contains(t, ids, oldUnread.ID)
	assert.Contains(t, ids, recent.ID)
}
