package service

import (
	"context"
	"log/slog"

	"appx/internal/mention"
	"appx/internal/middleware"
	"appx/internal/models"
	"appx/internal/observability"
	"appx/internal/repository"
)

// Mention outcomes recorded by observability.MentionsTotal.
const (
	mentionRecorded   = "recorded"
	mentionDuplicate  = "duplicate"
	mentionUnresolved = "unresolved"
)

// MentionService resolves @handles in post text and records them.
type MentionService struct {
	userRepo    repository.UserRepository
	mentionRepo repository.MentionRepository
	notifier    *NotificationService
}

func NewMentionService(
	userRepo repository.UserRepository,
	mentionRepo repository.MentionRepository,
	notifier *NotificationService,
) *MentionService {
	return &MentionService{
		userRepo:    userRepo,
		mentionRepo: mentionRepo,
		notifier:    notifier,
	}
}

// ResolveAndRecord maps handle to a user and records the mention on postID.
// It returns a nil user when no account matches, and created=false when the
// pair was already recorded.
func (s *MentionService) ResolveAndRecord(ctx context.Context, postID uint, handle string, actor Actor) (*models.User, bool, error) {
	user, err := s.userRepo.FindByHandle(ctx, handle)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		observability.MentionsTotal.WithLabelValues(mentionUnresolved).Inc()
		return nil, false, nil
	}

	created, err := s.mentionRepo.Create(ctx, postID, user.ID)
	if err != nil {
		return nil, false, err
	}
	if created {
		observability.MentionsTotal.WithLabelValues(mentionRecorded).Inc()
		middleware.Logger.DebugContext(ctx, "mention recorded",
			slog.Uint64("post_id", uint64(postID)),
			slog.Uint64("user_id", uint64(user.ID)),
			slog.Uint64("actor_id", uint64(actor.ID)))
	} else {
		observability.MentionsTotal.WithLabelValues(mentionDuplicate).Inc()
	}
	return user, created, nil
}

// Process extracts every handle from text, records the resolved ones and
// notifies each newly mentioned user. Failures on one handle are logged and
// do not stop the others.
func (s *MentionService) Process(ctx context.Context, postID uint, text string, actor Actor) {
	s.record(ctx, postID, text, actor)
}

// Reconcile is Process for edited text: afterwards the post's mentions are
// exactly the users its text references. Removed handles lose their mention
// rows. Pruning is skipped when a handle could not be resolved, so a transient
// failure never drops a mention the text still carries.
func (s *MentionService) Reconcile(ctx context.Context, postID uint, text string, actor Actor) {
	keep, complete := s.record(ctx, postID, text, actor)
	if !complete {
		return
	}
	removed, err := s.mentionRepo.DeleteExcept(ctx, postID, keep)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to prune mentions",
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		middleware.Logger.DebugContext(ctx, "mentions pruned",
			slog.Uint64("post_id", uint64(postID)),
			slog.Int64("count", removed))
	}
}

// record returns the users text resolves to and whether every handle was
// looked up without error.
func (s *MentionService) record(ctx context.Context, postID uint, text string, actor Actor) ([]uint, bool) {
	var keep []uint
	complete := true
	for _, handle := range mention.Extract(text) {
		user, created, err := s.ResolveAndRecord(ctx, postID, handle, actor)
		if err != nil {
			complete = false
			middleware.Logger.ErrorContext(ctx, "failed to record mention",
				slog.Uint64("post_id", uint64(postID)),
				slog.String("handle", handle),
				slog.String("error", err.Error()))
			continue
		}
		if user == nil {
			continue
		}
		keep = append(keep, user.ID)
		if !created {
			continue
		}
		origin := postID
		s.notifier.Notify(ctx, Event{
			RecipientID: user.ID,
			ActorID:     actor.ID,
			Kind:        models.NotificationMention,
			OriginID:    &origin,
		})
	}
	return keep, complete
}
