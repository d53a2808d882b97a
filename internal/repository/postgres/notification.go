package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = "id, recipient_id, kind, message, link, created_at, read_at, deletion_deadline"

type notificationRepo struct {
	db *pgxpool.Pool
}

func NewNotificationRepo(db *pgxpool.Pool) repository.Notification {
	return &notificationRepo{
		db: db,
	}
}

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var (
		n    model.Notification
		kind string
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &kind, &n.Message, &n.Link, &n.CreatedAt, &n.ReadAt, &n.DeletionDeadline); err != nil {
		return nil, err
	}
	n.Kind = model.Kind(kind)
	return &n, nil
}

func (r *notificationRepo) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.db.Exec(
		ctx,
		"INSERT INTO notifications("+notificationColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8)",
		n.ID, n.RecipientID, string(n.Kind), n.Message, n.Link, n.CreatedAt, n.ReadAt, n.DeletionDeadline,
	)
	return err
}

func (r *notificationRepo) Get(ctx context.Context, recipientID, id uuid.UUID) (*model.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(
		ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = $1 AND recipient_id = $2",
		id, recipientID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return n, err
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	rows, err := r.db.Query(
		ctx,
		`
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		`,
		recipientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []*model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// Update locks the row for the duration of the mutation so concurrent
// updates and deletes of the same record are serialized.
func (r *notificationRepo) Update(ctx context.Context, recipientID, id uuid.UUID, mutate repository.Mutation) (*model.Notification, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	n, err := scanNotification(tx.QueryRow(
		ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = $1 AND recipient_id = $2 FOR UPDATE",
		id, recipientID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !mutate(n) {
		return n, tx.Commit(ctx)
	}

	// the stored row is returned so callers see timestamps at column precision
	updated, err := scanNotification(tx.QueryRow(
		ctx,
		"UPDATE notifications SET read_at = $1, deletion_deadline = $2 WHERE id = $3 RETURNING "+notificationColumns,
		n.ReadAt, n.DeletionDeadline, n.ID,
	))
	if err != nil {
		return nil, err
	}

	return updated, tx.Commit(ctx)
}

func (r *notificationRepo) Remove(ctx context.Context, recipientID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM notifications WHERE id = $1 AND recipient_id = $2", id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// whereClause renders filter as a SQL condition with positional arguments.
// An empty filter renders an empty clause.
func whereClause(filter repository.Filter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if filter.RecipientID != nil {
		args = append(args, *filter.RecipientID)
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", len(args)))
	}
	if filter.ReadOnly {
		conditions = append(conditions, "read_at IS NOT NULL")
	}
	if filter.DeadlineBefore != nil {
		args = append(args, *filter.DeadlineBefore)
		conditions = append(conditions, fmt.Sprintf("deletion_deadline <= $%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *notificationRepo) RemoveWhere(ctx context.Context, filter repository.Filter) ([]model.Notification, error) {
	where, args := whereClause(filter)

	rows, err := r.db.Query(ctx, "DELETE FROM notifications"+where+" RETURNING "+notificationColumns, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		removed = append(removed, *n)
	}

	return removed, rows.Err()
}
