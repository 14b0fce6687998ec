package repository

import (
	"context"

	"appx/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MentionRepository records (post, mentioned user) pairs.
type MentionRepository interface {
	// Create inserts the pair unless it exists and reports whether a row was created.
	Create(ctx context.Context, postID, userID uint) (bool, error)
	ListUserIDs(ctx context.Context, postID uint) ([]uint, error)
	// DeleteExcept removes the post's mentions of users not in keep and
	// returns how many rows went away. An empty keep clears the post.
	DeleteExcept(ctx context.Context, postID uint, keep []uint) (int64, error)
}

type mentionRepository struct {
	db *gorm.DB
}

// NewMentionRepository returns a new MentionRepository implementation.
func NewMentionRepository(db *gorm.DB) MentionRepository {
	return &mentionRepository{db: db}
}

func (r *mentionRepository) Create(ctx context.Context, postID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Mention{PostID: postID, UserID: userID})
	if result.Error != nil {
		return false, translateError(result.Error, "Post", postID)
	}
	return result.RowsAffected > 0, nil
}

func (r *mentionRepository) ListUserIDs(ctx context.Context, postID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Mention{}).
		Where("pub_id = ?", postID).
		Order("usuario_mencionado_id ASC").
		Pluck("usuario_mencionado_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *mentionRepository) DeleteExcept(ctx context.Context, postID uint, keep []uint) (int64, error) {
	q := r.db.WithContext(ctx).Where("pub_id = ?", postID)
	if len(keep) > 0 {
		q = q.Where("usuario_mencionado_id NOT IN ?", keep)
	}
	result := q.Delete(&models.Mention{})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}
