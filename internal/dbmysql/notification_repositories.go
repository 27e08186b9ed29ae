package dbmysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"startupconnect/internal/common"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	ByUserID(ctx context.Context, userID uint64, limit, offset int) ([]*Notification, error)
	MarkAsRead(ctx context.Context, id, userID uint64) error
	UnreadCount(ctx context.Context, userID uint64) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *Notification) error {
	if notification.Status == "" {
		notification.Status = string(common.StatusPending)
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ByUserID(ctx context.Context, userID uint64, limit, offset int) ([]*Notification, error) {
	var notifications []*Notification

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to get user notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uint64) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":  string(common.StatusRead),
			"read_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND status <> ?", userID, string(common.StatusRead)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}
