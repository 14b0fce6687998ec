package repository

import (
	"context"
	"errors"
	"strings"

	"appx/internal/models"
	"appx/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
// viewerID 0 means an anonymous viewer; otherwise posts by authors with a
// block edge to or from the viewer are excluded.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error)
	GetAuthorID(ctx context.Context, id uint) (uint, error)
	List(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Post, error)
	Search(ctx context.Context, query string, viewerID uint, limit int) ([]*models.Post, error)
	// UpdateText sets the text and the edited flag. It returns false when the
	// post does not exist or is not owned by authorID.
	UpdateText(ctx context.Context, id, authorID uint, text string) (bool, error)
	// Delete removes the post and its dependents. It returns false when the
	// post does not exist or is not owned by authorID. Notifications that
	// reference the post are kept.
	Delete(ctx context.Context, id, authorID uint) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return translateError(err, "User", post.AuthorID)
	}
	return nil
}

func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "publicacao.*, " +
		"(SELECT COUNT(*) FROM reacao WHERE reacao.alvo_id = publicacao.id_pub AND reacao.alvo_tipo = ?) AS likes_count, " +
		"(SELECT COUNT(*) FROM comentario WHERE comentario.pub_id = publicacao.id_pub) AS comments_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM reacao WHERE reacao.alvo_id = publicacao.id_pub "+
			"AND reacao.alvo_tipo = ? AND reacao.usuario_id = ?) AS liked",
			models.ReactionTargetPost, models.ReactionTargetPost, viewerID)
	}
	return db.Select(selectQuery+", false AS liked", models.ReactionTargetPost)
}

func excludeBlocked(db *gorm.DB, viewerID uint) *gorm.DB {
	if viewerID == 0 {
		return db
	}
	return db.Where("NOT EXISTS (SELECT 1 FROM relacao_usuario r WHERE r.bloqueado = ? AND "+
		"((r.seguidor_id = ? AND r.seguido_id = publicacao.autor_id) OR "+
		"(r.seguidor_id = publicacao.autor_id AND r.seguido_id = ?)))",
		true, viewerID, viewerID)
}

func (r *postRepository) feedQuery(ctx context.Context, viewerID uint) *gorm.DB {
	db := r.applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewerID)
	return excludeBlocked(db, viewerID).
		Preload("Author").
		Preload("Media")
}

func (r *postRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.feedQuery(ctx, viewerID).
		Where("publicacao.id_pub = ?", id).
		First(&post).Error
	if err != nil {
		return nil, translateError(err, "Post", id)
	}
	if err := r.enrichMentions(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetAuthorID(ctx context.Context, id uint) (uint, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Select("id_pub", "autor_id").First(&post, id).Error
	if err != nil {
		return 0, translateError(err, "Post", id)
	}
	return post.AuthorID, nil
}

func (r *postRepository) List(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, r.feedQuery(ctx, viewerID), limit, offset)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, r.feedQuery(ctx, viewerID).Where("publicacao.autor_id = ?", authorID), limit, offset)
}

func (r *postRepository) Search(ctx context.Context, query string, viewerID uint, limit int) ([]*models.Post, error) {
	db := r.feedQuery(ctx, viewerID)
	if r.db.Dialector.Name() == "postgres" {
		db = db.Where("to_tsvector('portuguese', publicacao.texto) @@ plainto_tsquery('portuguese', ?)", query)
	} else {
		db = db.Where(`LOWER(publicacao.texto) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(query))+"%")
	}
	return r.find(ctx, db, limit, 0)
}

func (r *postRepository) find(ctx context.Context, db *gorm.DB, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("select", "publicacao")()
	posts := []*models.Post{}
	err := db.
		Order("publicacao.criado_em DESC, publicacao.id_pub DESC").
		Limit(clampLimit(limit)).
		Offset(clampOffset(offset)).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.enrichMentions(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

type mentionRow struct {
	PostID uint
	UserID uint
	Email  string
}

// enrichMentions attaches the resolved mentions of every post in one query.
func (r *postRepository) enrichMentions(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		p.Mentions = []models.MentionRef{}
		if p.Media == nil {
			p.Media = []models.Media{}
		}
	}

	var rows []mentionRow
	err := r.db.WithContext(ctx).
		Table("mencao m").
		Select("m.pub_id AS post_id, u.id_usuario AS user_id, u.email AS email").
		Joins("JOIN usuario u ON u.id_usuario = m.usuario_mencionado_id").
		Where("m.pub_id IN ?", ids).
		Order("u.id_usuario ASC").
		Scan(&rows).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	byPost := make(map[uint][]models.MentionRef, len(posts))
	for _, row := range rows {
		u := models.User{ID: row.UserID, Email: row.Email}
		byPost[row.PostID] = append(byPost[row.PostID], models.MentionRef{UserID: row.UserID, Handle: u.Handle()})
	}
	for _, p := range posts {
		if refs, ok := byPost[p.ID]; ok {
			p.Mentions = refs
		}
	}
	return nil
}

func (r *postRepository) UpdateText(ctx context.Context, id, authorID uint, text string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id_pub = ? AND autor_id = ?", id, authorID).
		Updates(map[string]any{"texto": text, "editada": true})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

var errNotOwned = errors.New("post not found or not owned")

func (r *postRepository) Delete(ctx context.Context, id, authorID uint) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id_pub = ? AND autor_id = ?", id, authorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errNotOwned
		}
		if err := tx.Where("pub_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pub_id = ?", id).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pub_id = ?", id).Delete(&models.Mention{}).Error; err != nil {
			return err
		}
		if err := tx.Where("alvo_id = ? AND alvo_tipo = ?", id, models.ReactionTargetPost).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id_pub = ?", id).Delete(&models.Post{}).Error
	})
	if errors.Is(err, errNotOwned) {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}
