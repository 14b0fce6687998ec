package repository

import (
	"context"
	"errors"
	"time"

	"appx/internal/cache"
	"appx/internal/models"
	"appx/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationCounts holds the non-blocked edge counts of a user.
type RelationCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// RelationshipRepository manages directed follow/block edges.
type RelationshipRepository interface {
	// Follow inserts (follower→followed, blocked=false) unless the pair already
	// has an edge. created is true only for the call that wrote the row. A block
	// in either direction yields a Forbidden error.
	Follow(ctx context.Context, followerID, followedID uint) (edge *models.RelationshipEdge, created bool, err error)
	// Unfollow deletes a non-blocking edge and reports whether one existed.
	Unfollow(ctx context.Context, followerID, followedID uint) (bool, error)
	// Block removes edges in both directions and inserts (blocker→blocked, blocked=true) in one transaction.
	Block(ctx context.Context, blockerID, blockedID uint) (*models.RelationshipEdge, error)
	// Unblock deletes only the blocking edge owned by blockerID.
	Unblock(ctx context.Context, blockerID, blockedID uint) (bool, error)
	GetEdge(ctx context.Context, followerID, followedID uint) (*models.RelationshipEdge, error)
	IsBlockedEither(ctx context.Context, a, b uint) (bool, error)
	Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	Counts(ctx context.Context, userID uint) (RelationCounts, error)
}

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository returns a new RelationshipRepository implementation.
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func upsertEdge(tx *gorm.DB, followerID, followedID uint, blocked bool) (*models.RelationshipEdge, error) {
	edge := &models.RelationshipEdge{
		FollowerID: followerID,
		FollowedID: followedID,
		Blocked:    blocked,
		CreatedAt:  time.Now().UTC(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seguidor_id"}, {Name: "seguido_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bloqueado", "data_relacao"}),
	}).Create(edge).Error
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// followSQL inserts a follow edge only when no block exists between the pair.
// CURRENT_TIMESTAMP keeps the statement portable between postgres and sqlite.
const followSQL = `INSERT INTO relacao_usuario (seguidor_id, seguido_id, bloqueado, data_relacao)
SELECT CAST(? AS BIGINT), CAST(? AS BIGINT), FALSE, CURRENT_TIMESTAMP
WHERE NOT EXISTS (
	SELECT 1 FROM relacao_usuario
	WHERE bloqueado = TRUE
	  AND ((seguidor_id = ? AND seguido_id = ?) OR (seguidor_id = ? AND seguido_id = ?))
)
ON CONFLICT (seguidor_id, seguido_id) DO NOTHING`

func errFollowBlocked() error {
	return models.NewForbiddenError("You cannot follow this user")
}

func (r *relationshipRepository) Follow(ctx context.Context, followerID, followedID uint) (*models.RelationshipEdge, bool, error) {
	defer observability.TrackQuery("insert", "relacao_usuario")()
	db := r.db.WithContext(ctx)

	res := db.Exec(followSQL, followerID, followedID, followerID, followedID, followedID, followerID)
	if res.Error != nil {
		return nil, false, translateError(res.Error, "User", followedID)
	}
	created := res.RowsAffected == 1

	if created {
		// A block committed while the insert waited on the pair's row lock
		// wins over the follow.
		blocked, err := r.IsBlockedEither(ctx, followerID, followedID)
		if err != nil {
			return nil, false, err
		}
		if blocked {
			if err := db.Where("seguidor_id = ? AND seguido_id = ? AND bloqueado = ?", followerID, followedID, false).
				Delete(&models.RelationshipEdge{}).Error; err != nil {
				return nil, false, models.NewInternalError(err)
			}
			return nil, false, errFollowBlocked()
		}
		cache.InvalidateRelationCounts(ctx, followerID, followedID)
	}

	edge, err := r.GetEdge(ctx, followerID, followedID)
	if err != nil {
		return nil, false, err
	}
	switch {
	case edge == nil && !created:
		// No row and nothing inserted: the NOT EXISTS guard saw a block.
		return nil, false, errFollowBlocked()
	case edge == nil:
		return nil, false, models.NewConflictError("Follow was removed concurrently")
	case edge.Blocked:
		return nil, false, errFollowBlocked()
	}
	return edge, created, nil
}

func (r *relationshipRepository) Unfollow(ctx context.Context, followerID, followedID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("seguidor_id = ? AND seguido_id = ? AND bloqueado = ?", followerID, followedID, false).
		Delete(&models.RelationshipEdge{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	if result.RowsAffected > 0 {
		cache.InvalidateRelationCounts(ctx, followerID, followedID)
	}
	return result.RowsAffected > 0, nil
}

func (r *relationshipRepository) Block(ctx context.Context, blockerID, blockedID uint) (*models.RelationshipEdge, error) {
	var edge *models.RelationshipEdge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("(seguidor_id = ? AND seguido_id = ?) OR (seguidor_id = ? AND seguido_id = ?)",
				blockerID, blockedID, blockedID, blockerID).
			Delete(&models.RelationshipEdge{}).Error; err != nil {
			return err
		}
		var err error
		edge, err = upsertEdge(tx, blockerID, blockedID, true)
		return err
	})
	if err != nil {
		return nil, translateError(err, "User", blockedID)
	}
	cache.InvalidateRelationCounts(ctx, blockerID, blockedID)
	return edge, nil
}

func (r *relationshipRepository) Unblock(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("seguidor_id = ? AND seguido_id = ? AND bloqueado = ?", blockerID, blockedID, true).
		Delete(&models.RelationshipEdge{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *relationshipRepository) GetEdge(ctx context.Context, followerID, followedID uint) (*models.RelationshipEdge, error) {
	var edge models.RelationshipEdge
	err := r.db.WithContext(ctx).
		Where("seguidor_id = ? AND seguido_id = ?", followerID, followedID).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &edge, nil
}

func (r *relationshipRepository) IsBlockedEither(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RelationshipEdge{}).
		Where("bloqueado = ? AND ((seguidor_id = ? AND seguido_id = ?) OR (seguidor_id = ? AND seguido_id = ?))",
			true, a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *relationshipRepository) listUsers(ctx context.Context, joinOn, filterCol string, userID uint, limit, offset int) ([]models.User, error) {
	users := []models.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN relacao_usuario r ON usuario.id_usuario = r."+joinOn).
		Where("r."+filterCol+" = ? AND r.bloqueado = ?", userID, false).
		Order("r.data_relacao DESC").
		Limit(clampLimit(limit)).
		Offset(clampOffset(offset)).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *relationshipRepository) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return r.listUsers(ctx, "seguidor_id", "seguido_id", userID, limit, offset)
}

func (r *relationshipRepository) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return r.listUsers(ctx, "seguido_id", "seguidor_id", userID, limit, offset)
}

func (r *relationshipRepository) Counts(ctx context.Context, userID uint) (RelationCounts, error) {
	var counts RelationCounts
	err := cache.Aside(ctx, cache.RelationCountsKey(userID), &counts, cache.RelationCountsTTL, func() error {
		db := r.db.WithContext(ctx).Model(&models.RelationshipEdge{})
		if err := db.Where("seguido_id = ? AND bloqueado = ?", userID, false).Count(&counts.Followers).Error; err != nil {
			return models.NewInternalError(err)
		}
		db = r.db.WithContext(ctx).Model(&models.RelationshipEdge{})
		if err := db.Where("seguidor_id = ? AND bloqueado = ?", userID, false).Count(&counts.Following).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	return counts, err
}
