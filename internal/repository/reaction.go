package repository

import (
	"context"

	"appx/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository stores likes. The (user, target, target type) key is unique.
type ReactionRepository interface {
	// Like inserts the reaction unless it already exists and reports whether a row was created.
	Like(ctx context.Context, userID, postID uint) (bool, error)
	// Unlike removes the reaction and reports whether one existed.
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository returns a new ReactionRepository implementation.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Like(ctx context.Context, userID, postID uint) (bool, error) {
	reaction := models.Reaction{
		UserID:     userID,
		TargetID:   postID,
		TargetType: models.ReactionTargetPost,
		Kind:       models.ReactionKindLike,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "usuario_id"}, {Name: "alvo_id"}, {Name: "alvo_tipo"}},
			DoNothing: true,
		}).
		Create(&reaction)
	if result.Error != nil {
		return false, translateError(result.Error, "Post", postID)
	}
	return result.RowsAffected > 0, nil
}

func (r *reactionRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("usuario_id = ? AND alvo_id = ? AND alvo_tipo = ?", userID, postID, models.ReactionTargetPost).
		Delete(&models.Reaction{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}
