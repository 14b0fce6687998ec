package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"appx/internal/middleware"
	"appx/internal/models"
	"appx/internal/observability"
	"appx/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// actorPlaceholder names the actor when its account can no longer be found.
const actorPlaceholder = "Alguém"

// Event describes something a user did that may be worth notifying.
type Event struct {
	RecipientID uint
	ActorID     uint
	Kind        models.NotificationKind
	// OriginID is the post the event happened on, if any.
	OriginID *uint
}

// Publisher pushes a serialized notification to a user's live channel.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
}

// NotificationService decides whether an event produces a notification,
// stores it, and serves the recipient's notification inbox.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	prefRepo  repository.PreferenceRepository
	userRepo  repository.UserRepository
	publisher Publisher
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	prefRepo repository.PreferenceRepository,
	userRepo repository.UserRepository,
	publisher Publisher,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		prefRepo:  prefRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// Emit stores a notification for ev. It returns (nil, nil) when the event is
// skipped: self-notification, or a recipient without an enabled preference.
func (s *NotificationService) Emit(ctx context.Context, ev Event) (*models.Notification, error) {
	if ev.RecipientID == ev.ActorID {
		return nil, nil
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("unknown notification kind %q", ev.Kind)
	}

	pref, err := s.prefRepo.Get(ctx, ev.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("load preference: %w", err)
	}
	if pref == nil || !pref.NotificationsEnabled {
		return nil, nil
	}

	actorName, err := s.actorName(ctx, ev.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	n := &models.Notification{
		RecipientID: ev.RecipientID,
		Message:     ev.Kind.Message(actorName),
		Kind:        ev.Kind,
		OriginID:    ev.OriginID,
		Read:        false,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	s.publish(ctx, n)
	return n, nil
}

func (s *NotificationService) actorName(ctx context.Context, actorID uint) (string, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return actorPlaceholder, nil
		}
		return "", err
	}
	if actor.Name == "" {
		return actorPlaceholder, nil
	}
	return actor.Name, nil
}

// livePayload is the message pushed to connected sockets.
type livePayload struct {
	Type    string               `json:"type"`
	Payload *models.Notification `json:"payload"`
}

func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(livePayload{Type: "notification", Payload: n})
	if err == nil {
		err = s.publisher.PublishUser(ctx, n.RecipientID, string(data))
	}
	if err != nil {
		observability.NotificationPublishErrors.Inc()
		middleware.Logger.WarnContext(ctx, "notification publish failed",
			slog.Uint64("notification_id", uint64(n.ID)),
			slog.String("error", err.Error()))
	}
}

// Notify runs Emit as a best-effort side effect of a committed write. It
// never fails: errors and panics are logged and counted, then dropped.
func (s *NotificationService) Notify(ctx context.Context, ev Event) {
	ctx, span := observability.StartSpan(ctx, "notification.notify",
		attribute.String("notification.kind", string(ev.Kind)),
		attribute.Int64("notification.recipient_id", int64(ev.RecipientID)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			observability.FailSpan(span, err)
			observability.NotificationsTotal.WithLabelValues(observability.NotificationFailed, string(ev.Kind)).Inc()
			middleware.Logger.ErrorContext(ctx, "notification emitter panicked",
				slog.String("kind", string(ev.Kind)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	n, err := s.Emit(ctx, ev)
	switch {
	case err != nil:
		observability.FailSpan(span, err)
		observability.NotificationsTotal.WithLabelValues(observability.NotificationFailed, string(ev.Kind)).Inc()
		middleware.Logger.ErrorContext(ctx, "failed to emit notification",
			slog.String("kind", string(ev.Kind)),
			slog.Uint64("recipient_id", uint64(ev.RecipientID)),
			slog.Uint64("actor_id", uint64(ev.ActorID)),
			slog.String("error", err.Error()))
	case n == nil:
		span.SetAttributes(attribute.Bool("notification.skipped", true))
		observability.NotificationsTotal.WithLabelValues(observability.NotificationSkipped, string(ev.Kind)).Inc()
	default:
		span.SetAttributes(attribute.Int64("notification.id", int64(n.ID)))
		observability.NotificationsTotal.WithLabelValues(observability.NotificationCreated, string(ev.Kind)).Inc()
	}
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor Actor, limit, offset int) ([]models.Notification, error) {
	return s.notifRepo.ListByRecipient(ctx, actor.ID, limit, offset)
}

// UnreadCount returns how many of the actor's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	return s.notifRepo.CountUnread(ctx, actor.ID)
}

// MarkRead flags one notification as read. Notifications of other users are
// reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uint) error {
	ok, err := s.notifRepo.MarkRead(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

// MarkAllRead flags every unread notification of the actor as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, actor.ID)
}
