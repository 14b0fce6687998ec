package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"appx/internal/mailer"
	"appx/internal/middleware"
	"appx/internal/models"
	"appx/internal/repository"
	"appx/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxBioLen      = 500
	maxLocationLen = 100

	// PasswordResetTTL is how long a reset token stays valid.
	PasswordResetTTL = time.Hour
)

type UserService struct {
	userRepo  repository.UserRepository
	prefRepo  repository.PreferenceRepository
	relRepo   repository.RelationshipRepository
	resetRepo repository.PasswordResetRepository
	mailer    mailer.Mailer
	media     MediaStore
	resetURL  string
	now       func() time.Time
}

type RegisterInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required"`
}

type UpdateProfileInput struct {
	Name     *string
	Bio      *string
	Location *string
}

func NewUserService(
	userRepo repository.UserRepository,
	prefRepo repository.PreferenceRepository,
	relRepo repository.RelationshipRepository,
	resetRepo repository.PasswordResetRepository,
	m mailer.Mailer,
	media MediaStore,
	resetURL string,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		prefRepo:  prefRepo,
		relRepo:   relRepo,
		resetRepo: resetRepo,
		mailer:    m,
		media:     media,
		resetURL:  resetURL,
		now:       time.Now,
	}
}

// Register creates an account together with its notification preference.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// GetProfile returns the profile of userID as seen by the viewer: a
// *models.UserProfile, or a *models.BlockedProfile when a block separates them.
func (s *UserService) GetProfile(ctx context.Context, viewer Actor, userID uint) (any, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !viewer.Anonymous() && viewer.ID != userID {
		blocked, err := s.relRepo.IsBlockedEither(ctx, viewer.ID, userID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return &models.BlockedProfile{
				ID:        user.ID,
				Name:      user.Name,
				Email:     user.Email,
				AvatarURL: user.AvatarURL,
				IsBlocked: true,
			}, nil
		}
	}

	counts, err := s.relRepo.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		User:           *user,
		FollowersCount: counts.Followers,
		FollowingCount: counts.Following,
	}, nil
}

// UpdateProfile changes the fields present in in.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := validation.ValidateName(*in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.Location != nil {
		if utf8.RuneCountInString(*in.Location) > maxLocationLen {
			return nil, models.NewValidationError("Location too long (max 100 characters)")
		}
		user.Location = strings.TrimSpace(*in.Location)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateAvatar stores a new profile picture and returns its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, actor Actor, up Upload) (string, error) {
	if s.media == nil {
		return "", models.NewValidationError("Media uploads are not enabled")
	}
	url, err := s.media.SaveAvatar(ctx, up.Filename, up.Data)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdateAvatar(ctx, actor.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

// Settings returns the actor's notification preference. A missing row reads as disabled.
func (s *UserService) Settings(ctx context.Context, actor Actor) (*models.NotificationPreference, error) {
	pref, err := s.prefRepo.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return &models.NotificationPreference{UserID: actor.ID}, nil
	}
	return pref, nil
}

func (s *UserService) UpdateSettings(ctx context.Context, actor Actor, enabled bool) (*models.NotificationPreference, error) {
	if err := s.prefRepo.Set(ctx, actor.ID, enabled); err != nil {
		return nil, err
	}
	return &models.NotificationPreference{UserID: actor.ID, NotificationsEnabled: enabled}, nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequestPasswordReset mails a reset link when email belongs to an account.
// Unknown addresses are ignored so callers cannot enumerate accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, err := newResetToken()
	if err != nil {
		return models.NewInternalError(err)
	}
	reset := &models.PasswordReset{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().Add(PasswordResetTTL),
	}
	if err := s.resetRepo.Create(ctx, reset); err != nil {
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.resetURL, token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to send password reset email",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()))
	}
	return nil
}

// ResetPassword consumes token and sets a new password for its owner.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return models.NewValidationError("Token and password are required")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}

	userID, ok, err := s.resetRepo.Consume(ctx, token, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return models.NewValidationError("Invalid or expired token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}
