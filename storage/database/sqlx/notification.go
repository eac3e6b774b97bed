package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/skripsi/core/notification"
)

const notificationColumns = `id, user_id, title, message, link, is_read, created_at, read_at`

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Link      string    `db:"link"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
	ReadAt    null.Time `db:"read_at"`
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Link:      r.Link,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
		ReadAt:    utcPtr(r.ReadAt),
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// CreateNotifications inserts every notification in a single transaction.
func (repo *notificationRepository) CreateNotifications(ctx context.Context, notes ...notification.Notification) ([]notification.Notification, error) {
	created := make([]notification.Notification, 0, len(notes))
	if len(notes) == 0 {
		return created, nil
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :user_id, :title, :message, :link, :is_read, :created_at, :read_at)`)
	if err != nil {
		return nil, errors.Wrap(err, "preparing notification insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, note := range notes {
		note.ID = uuid.NewString()
		row := notificationRow{
			ID:        note.ID,
			UserID:    note.UserID,
			Title:     note.Title,
			Message:   note.Message,
			Link:      note.Link,
			IsRead:    note.IsRead,
			CreatedAt: note.CreatedAt,
			ReadAt:    null.TimeFromPtr(note.ReadAt),
		}
		if _, err = stmt.ExecContext(ctx, row); err != nil {
			return nil, errors.Wrap(err, "inserting notification")
		}
		created = append(created, note)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing notifications")
	}
	return created, nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	notes := make([]notification.Notification, 0)
	if !validID(filter.UserID) {
		return notes, nil
	}

	var where whereClause
	where.add("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		where.add("NOT is_read")
	}
	q := "SELECT " + notificationColumns + " FROM notifications" + where.String() + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		where.args = append(where.args, filter.Limit)
	}

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	for _, r := range rows {
		notes = append(notes, r.toNotification())
	}
	return notes, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var n int
	err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read", userID)
	return n, errors.Wrap(err, "counting unread notifications")
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID string, at time.Time, ids ...string) (int, error) {
	if !validID(userID) {
		return 0, nil
	}

	if len(ids) == 0 {
		n, err := rowsAffected(repo.db.ExecContext(ctx,
			"UPDATE notifications SET is_read = true, read_at = $1 WHERE user_id = $2 AND NOT is_read", at, userID,
		))
		return n, errors.Wrap(err, "marking notifications read")
	}

	// already-read notifications keep their read_at but still count as matched
	n, err := rowsAffected(repo.db.ExecContext(ctx, `UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, $1)
		WHERE user_id = $2 AND id::text = ANY($3)`, at, userID, pq.Array(ids),
	))
	return n, errors.Wrap(err, "marking notifications read")
}
