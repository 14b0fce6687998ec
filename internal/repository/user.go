package repository

import (
	"context"
	"errors"
	"strings"

	"appx/internal/cache"
	"appx/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create inserts the user and its notification preference (enabled) atomically.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail returns (nil, nil) when no account uses email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByHandle matches handle against the email local part, case-insensitively.
	// The lowest id wins when several accounts share a local part. Returns (nil, nil) when none match.
	FindByHandle(ctx context.Context, handle string) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id uint, url string) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.NotificationPreference{
			UserID:               user.ID,
			NotificationsEnabled: true,
		}).Error
	})
	if err != nil {
		return translateError(err, "User", user.Email)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			return translateError(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByHandle(ctx context.Context, handle string) (*models.User, error) {
	if handle == "" {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Where(`LOWER(email) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(handle))+"@%").
		Order("id_usuario ASC").
		Limit(1).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id_usuario = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id_usuario = ?", user.ID).
		Updates(map[string]any{
			"nome":        user.Name,
			"biografia":   user.Bio,
			"localizacao": user.Location,
		})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id uint, url string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id_usuario = ?", id).
		Update("foto_perfil_url", url)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id_usuario = ?", id).
		Update("senha_hash", hash)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	users := []models.User{}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	err := r.db.WithContext(ctx).
		Where(`LOWER(nome) LIKE ? ESCAPE '\'`, pattern).
		Order("nome ASC, id_usuario ASC").
		Limit(clampLimit(limit)).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
