package repository

import (
	"context"

	"appx/internal/cache"
	"appx/internal/models"
	"appx/internal/observability"

	"gorm.io/gorm"
)

// NotificationRepository persists notifications and their read state.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// ListByRecipient returns notifications newest first.
	ListByRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	// MarkRead returns false when the notification does not exist or belongs to someone else.
	MarkRead(ctx context.Context, id, recipientID uint) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	defer observability.TrackQuery("insert", "notificacao")()
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return translateError(err, "User", n.RecipientID)
	}
	cache.InvalidateUnreadCount(ctx, n.RecipientID)
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]models.Notification, error) {
	defer observability.TrackQuery("select", "notificacao")()
	out := []models.Notification{}
	err := r.db.WithContext(ctx).
		Where("destinatario_id = ?", recipientID).
		Order("timestamp DESC, id_notif DESC").
		Limit(clampLimit(limit)).
		Offset(clampOffset(offset)).
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadCountKey(recipientID), &count, cache.UnreadCountTTL, func() error {
		err := r.db.WithContext(ctx).Model(&models.Notification{}).
			Where("destinatario_id = ? AND lida = ?", recipientID, false).
			Count(&count).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id_notif = ? AND destinatario_id = ?", id, recipientID).
		Update("lida", true)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("destinatario_id = ? AND lida = ?", recipientID, false).
		Update("lida", true)
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return result.RowsAffected, nil
}
