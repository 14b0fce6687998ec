package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"appx/internal/middleware"
	"appx/internal/models"
	"appx/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	notifier    *NotificationService
}

type CreateCommentInput struct {
	PostID uint
	Text   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	notifier *NotificationService,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		notifier:    notifier,
	}
}

// CreateComment stores a comment and notifies the post author.
func (s *CommentService) CreateComment(ctx context.Context, actor Actor, in CreateCommentInput) (*models.Comment, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	authorID, err := s.postRepo.GetAuthorID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		AuthorID: actor.ID,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	origin := in.PostID
	s.notifier.Notify(ctx, Event{
		RecipientID: authorID,
		ActorID:     actor.ID,
		Kind:        models.NotificationReply,
		OriginID:    &origin,
	})

	// The comment is committed; a failed read-back only loses the author preload.
	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "comment created but read-back failed",
			slog.Uint64("comment_id", uint64(comment.ID)),
			slog.String("error", err.Error()))
		return comment, nil
	}
	return created, nil
}

// ListComments returns the comments of a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}
