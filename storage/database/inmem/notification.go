package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, notes ...notification.Notification) ([]notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]notification.Notification, 0, len(notes))
	for _, note := range notes {
		note.ID = uuid.NewString()
		n := note
		repo.db.notifications[n.ID] = &n
		repo.db.inserted(n.ID)
		created = append(created, n)
	}
	return created, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notes := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID != filter.UserID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		notes = append(notes, *n)
	}
	sort.Slice(notes, func(i, j int) bool { return repo.db.before(notes[j].ID, notes[i].ID) })
	if filter.Limit > 0 && len(notes) > filter.Limit {
		notes = notes[:filter.Limit]
	}
	return notes, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, note := range repo.db.notifications {
		if note.UserID == userID && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, userID string, at time.Time, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, note := range repo.db.notifications {
		if note.UserID != userID || (len(ids) > 0 && !core.StringInSlice(id, ids)) {
			continue
		}
		if note.IsRead {
			if len(ids) > 0 {
				n++
			}
			continue
		}
		readAt := at
		note.IsRead = true
		note.ReadAt = &readAt
		n++
	}
	return n, nil
}
