package repository

import (
	"context"
	"errors"
	"time"

	"appx/internal/models"

	"gorm.io/gorm"
)

// PasswordResetRepository stores single-use password reset tokens.
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *models.PasswordReset) error
	// Consume deletes the token and returns its owner. It returns (0, false) for
	// unknown or expired tokens.
	Consume(ctx context.Context, token string, now time.Time) (uint, bool, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

// NewPasswordResetRepository returns a new PasswordResetRepository implementation.
func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	if err := r.db.WithContext(ctx).Create(reset).Error; err != nil {
		return translateError(err, "User", reset.UserID)
	}
	return nil
}

func (r *passwordResetRepository) Consume(ctx context.Context, token string, now time.Time) (uint, bool, error) {
	var userID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordReset
		if err := tx.Where("token = ? AND expira_em > ?", token, now).First(&reset).Error; err != nil {
			return err
		}
		// Delete by token so a concurrent consumer sees zero rows.
		result := tx.Where("token = ?", token).Delete(&models.PasswordReset{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		userID = reset.UserID
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, models.NewInternalError(err)
	}
	return userID, true, nil
}
