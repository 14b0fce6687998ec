package service

import (
	"context"

	"appx/internal/models"
	"appx/internal/repository"
)

type RelationshipService struct {
	relRepo  repository.RelationshipRepository
	userRepo repository.UserRepository
	notifier *NotificationService
}

func NewRelationshipService(
	relRepo repository.RelationshipRepository,
	userRepo repository.UserRepository,
	notifier *NotificationService,
) *RelationshipService {
	return &RelationshipService{
		relRepo:  relRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (s *RelationshipService) requireTarget(ctx context.Context, actor Actor, targetID uint, selfMsg string) error {
	if actor.ID == targetID {
		return models.NewValidationError(selfMsg)
	}
	ok, err := s.userRepo.Exists(ctx, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("User", targetID)
	}
	return nil
}

// Follow makes the actor follow targetID. Following again is a no-op and does
// not notify a second time. A block in either direction forbids the follow.
func (s *RelationshipService) Follow(ctx context.Context, actor Actor, targetID uint) (*models.RelationshipEdge, error) {
	if err := s.requireTarget(ctx, actor, targetID, "You cannot follow yourself"); err != nil {
		return nil, err
	}

	edge, created, err := s.relRepo.Follow(ctx, actor.ID, targetID)
	if err != nil {
		return nil, err
	}
	if created {
		s.notifier.Notify(ctx, Event{
			RecipientID: targetID,
			ActorID:     actor.ID,
			Kind:        models.NotificationFollow,
		})
	}
	return edge, nil
}

// Unfollow removes the actor's follow edge.
func (s *RelationshipService) Unfollow(ctx context.Context, actor Actor, targetID uint) error {
	ok, err := s.relRepo.Unfollow(ctx, actor.ID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Follow", targetID)
	}
	return nil
}

// Block removes any follow between the actor and targetID and records the block.
func (s *RelationshipService) Block(ctx context.Context, actor Actor, targetID uint) (*models.RelationshipEdge, error) {
	if err := s.requireTarget(ctx, actor, targetID, "You cannot block yourself"); err != nil {
		return nil, err
	}
	return s.relRepo.Block(ctx, actor.ID, targetID)
}

// Unblock removes the block owned by the actor, if any.
func (s *RelationshipService) Unblock(ctx context.Context, actor Actor, targetID uint) error {
	_, err := s.relRepo.Unblock(ctx, actor.ID, targetID)
	return err
}

// Status describes the edge from the actor to targetID.
func (s *RelationshipService) Status(ctx context.Context, actor Actor, targetID uint) (models.RelationshipStatus, error) {
	edge, err := s.relRepo.GetEdge(ctx, actor.ID, targetID)
	if err != nil {
		return models.RelationshipStatus{}, err
	}
	if edge == nil {
		return models.RelationshipStatus{}, nil
	}
	return models.RelationshipStatus{Following: !edge.Blocked, Blocked: edge.Blocked}, nil
}

func (s *RelationshipService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return s.relRepo.Followers(ctx, userID, limit, offset)
}

func (s *RelationshipService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return s.relRepo.Following(ctx, userID, limit, offset)
}
