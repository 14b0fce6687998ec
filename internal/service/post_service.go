package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"appx/internal/models"
	"appx/internal/repository"
)

const maxPostTextLen = 10000

// MediaStore persists uploaded files and returns their public URL.
type MediaStore interface {
	SavePostMedia(ctx context.Context, filename string, data []byte) (url, kind string, err error)
	SaveAvatar(ctx context.Context, filename string, data []byte) (string, error)
}

// Upload is a file received with a request.
type Upload struct {
	Filename string
	Data     []byte
}

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	mentions *MentionService
	media    MediaStore
}

type CreatePostInput struct {
	Text  string
	Media []Upload
}

type UpdatePostInput struct {
	PostID uint
	Text   string
}

type ListPostsInput struct {
	Limit  int
	Offset int
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	mentions *MentionService,
	media MediaStore,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		mentions: mentions,
		media:    media,
	}
}

func validatePostText(text string) error {
	if utf8.RuneCountInString(text) > maxPostTextLen {
		return models.NewValidationError("Text too long (max 10000 characters)")
	}
	return nil
}

// CreatePost stores a post with its media and processes the mentions in its text.
func (s *PostService) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	if actor.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" && len(in.Media) == 0 {
		return nil, models.NewValidationError("Post must have text or media")
	}
	if err := validatePostText(text); err != nil {
		return nil, err
	}
	if len(in.Media) > 0 && s.media == nil {
		return nil, models.NewValidationError("Media uploads are not enabled")
	}

	post := &models.Post{AuthorID: actor.ID, Text: text}
	for _, up := range in.Media {
		url, kind, err := s.media.SavePostMedia(ctx, up.Filename, up.Data)
		if err != nil {
			return nil, err
		}
		post.Media = append(post.Media, models.Media{URL: url, Kind: kind})
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.mentions.Process(ctx, post.ID, post.Text, actor)

	created, err := s.postRepo.GetByID(ctx, post.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetPost returns a post as seen by the actor. Posts hidden by a block are not found.
func (s *PostService) GetPost(ctx context.Context, actor Actor, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, actor.ID)
}

// ListPosts returns the feed for the actor, newest first.
func (s *PostService) ListPosts(ctx context.Context, actor Actor, in ListPostsInput) ([]*models.Post, error) {
	return s.postRepo.List(ctx, actor.ID, in.Limit, in.Offset)
}

// ListUserPosts returns the posts of authorID as seen by the actor.
func (s *PostService) ListUserPosts(ctx context.Context, actor Actor, authorID uint, in ListPostsInput) ([]*models.Post, error) {
	ok, err := s.userRepo.Exists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", authorID)
	}
	return s.postRepo.ListByAuthor(ctx, authorID, actor.ID, in.Limit, in.Offset)
}

// UpdatePost replaces the text of a post owned by the actor and marks it as
// edited. Handles added by the edit are mentioned, existing ones are not
// notified again and removed ones stop being mentions.
func (s *PostService) UpdatePost(ctx context.Context, actor Actor, in UpdatePostInput) (*models.Post, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if err := validatePostText(text); err != nil {
		return nil, err
	}

	ok, err := s.postRepo.UpdateText(ctx, in.PostID, actor.ID, text)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewForbiddenError("Post not found or you are not its author")
	}

	s.mentions.Reconcile(ctx, in.PostID, text, actor)

	return s.postRepo.GetByID(ctx, in.PostID, actor.ID)
}

// DeletePost removes a post owned by the actor.
func (s *PostService) DeletePost(ctx context.Context, actor Actor, postID uint) error {
	ok, err := s.postRepo.Delete(ctx, postID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("Post not found or you are not its author")
	}
	return nil
}
