package repository

import (
	"context"
	"errors"

	"appx/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository reads and writes per-user notification preferences.
type PreferenceRepository interface {
	// Get returns (nil, nil) when the user has no preference row.
	Get(ctx context.Context, userID uint) (*models.NotificationPreference, error)
	Set(ctx context.Context, userID uint, enabled bool) error
}

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository returns a new PreferenceRepository implementation.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := r.db.WithContext(ctx).Where("id_usuario = ?", userID).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &pref, nil
}

func (r *preferenceRepository) Set(ctx context.Context, userID uint, enabled bool) error {
	pref := models.NotificationPreference{UserID: userID, NotificationsEnabled: enabled}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_usuario"}},
		DoUpdates: clause.AssignmentColumns([]string{"notificacoes_ativas"}),
	}).Create(&pref).Error
	return translateError(err, "User", userID)
}
