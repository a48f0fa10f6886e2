// Package notification_repo provides the PostgreSQL implementation of the
// notification store.
package notification_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/id"
	"craftpos/internal/domain/notification"
	"craftpos/internal/infrastructure/storage/postgres"
)

const notificationTable = "notifications"

// NotificationRepo implements notification.Repository.
type NotificationRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewNotificationRepo creates a new notification repository.
func NewNotificationRepo(txm *postgres.TxManager) *NotificationRepo {
	return &NotificationRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[notification.Notification](),
	}
}

func (r *NotificationRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Notify inserts a notification.
func (r *NotificationRepo) Notify(ctx context.Context, n *notification.Notification) error {
	q := r.builder().
		Insert(notificationTable).
		SetMap(postgres.StructToMap(n))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser lists a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID id.ID, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	q := r.builder().
		Select(r.selectCols...).
		From(notificationTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC")

	if unreadOnly {
		q = q.Where(squirrel.Eq{"read": false})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*notification.Notification
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags a notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID id.ID) error {
	q := r.builder().
		Update(notificationTable).
		Set("read", true).
		Where(squirrel.Eq{"id": notificationID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("notification", notificationID.String())
	}
	return nil
}
