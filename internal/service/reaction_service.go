package service

import (
	"context"

	"appx/internal/models"
	"appx/internal/repository"
)

type ReactionService struct {
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	notifier     *NotificationService
}

func NewReactionService(
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	notifier *NotificationService,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		notifier:     notifier,
	}
}

// Like records the actor's like on a post. Liking twice is a no-op, and only
// the first like notifies the author.
func (s *ReactionService) Like(ctx context.Context, actor Actor, postID uint) error {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return err
	}

	created, err := s.reactionRepo.Like(ctx, actor.ID, postID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	origin := postID
	s.notifier.Notify(ctx, Event{
		RecipientID: authorID,
		ActorID:     actor.ID,
		Kind:        models.NotificationLike,
		OriginID:    &origin,
	})
	return nil
}

// Unlike removes the actor's like. Removing a missing like succeeds.
func (s *ReactionService) Unlike(ctx context.Context, actor Actor, postID uint) error {
	_, err := s.reactionRepo.Unlike(ctx, actor.ID, postID)
	return err
}
