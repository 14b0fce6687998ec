package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"appx/internal/models"
	"appx/internal/repository"
	"appx/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// publisherStub records published payloads.
type publisherStub struct {
	mu       sync.Mutex
	payloads map[uint][]string
	err      error
}

func (p *publisherStub) PublishUser(_ context.Context, userID uint, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.payloads == nil {
		p.payloads = make(map[uint][]string)
	}
	p.payloads[userID] = append(p.payloads[userID], payload)
	return nil
}

func (p *publisherStub) sent(userID uint) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.payloads[userID]...)
}

// notificationRepoStub overrides Create on top of a real repository.
type notificationRepoStub struct {
	repository.NotificationRepository
	createFn func(context.Context, *models.Notification) error
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}

// preferenceRepoStub counts lookups on top of a real repository.
type preferenceRepoStub struct {
	repository.PreferenceRepository
	mu    sync.Mutex
	calls int
}

func (s *preferenceRepoStub) Get(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.PreferenceRepository.Get(ctx, userID)
}

// mediaStoreStub hands out predictable URLs.
type mediaStoreStub struct {
	err error
}

func (m *mediaStoreStub) SavePostMedia(_ context.Context, filename string, _ []byte) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	return "/media/posts/" + filename, models.MediaKindImage, nil
}

func (m *mediaStoreStub) SaveAvatar(_ context.Context, filename string, _ []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "/media/avatars/" + filename, nil
}

// mailerStub captures reset links.
type mailerStub struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *mailerStub) SendPasswordReset(_ context.Context, to, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = make(map[string]string)
	}
	m.links[to] = link
	return nil
}

func (m *mailerStub) link(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[to]
}

type fixture struct {
	db *gorm.DB

	userRepo    repository.UserRepository
	prefRepo    *preferenceRepoStub
	relRepo     repository.RelationshipRepository
	postRepo    repository.PostRepository
	notifRepo   repository.NotificationRepository
	mentionRepo repository.MentionRepository

	publisher *publisherStub
	mailer    *mailerStub

	notifications *NotificationService
	mentions      *MentionService
	posts         *PostService
	comments      *CommentService
	reactions     *ReactionService
	relationships *RelationshipService
	users         *UserService
	search        *SearchService
}

type fixtureOption func(*fixture)

// withNotificationCreate swaps the notification insert for fn.
func withNotificationCreate(fn func(context.Context, *models.Notification) error) fixtureOption {
	return func(f *fixture) {
		f.notifRepo = &notificationRepoStub{NotificationRepository: f.notifRepo, createFn: fn}
	}
}

// withRelationshipRepo wraps the relationship repository.
func withRelationshipRepo(wrap func(repository.RelationshipRepository) repository.RelationshipRepository) fixtureOption {
	return func(f *fixture) { f.relRepo = wrap(f.relRepo) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	f := &fixture{
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		prefRepo:    &preferenceRepoStub{PreferenceRepository: repository.NewPreferenceRepository(db)},
		relRepo:     repository.NewRelationshipRepository(db),
		postRepo:    repository.NewPostRepository(db),
		notifRepo:   repository.NewNotificationRepository(db),
		mentionRepo: repository.NewMentionRepository(db),
		publisher:   &publisherStub{},
		mailer:      &mailerStub{},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.notifications = NewNotificationService(f.notifRepo, f.prefRepo, f.userRepo, f.publisher)
	f.mentions = NewMentionService(f.userRepo, f.mentionRepo, f.notifications)
	f.posts = NewPostService(f.postRepo, f.userRepo, f.mentions, &mediaStoreStub{})
	f.comments = NewCommentService(repository.NewCommentRepository(db), f.postRepo, f.notifications)
	f.reactions = NewReactionService(repository.NewReactionRepository(db), f.postRepo, f.notifications)
	f.relationships = NewRelationshipService(f.relRepo, f.userRepo, f.notifications)
	f.users = NewUserService(f.userRepo, f.prefRepo, f.relRepo, repository.NewPasswordResetRepository(db),
		f.mailer, &mediaStoreStub{}, "http://localhost:5173/reset-password")
	f.search = NewSearchService(f.postRepo, f.userRepo)
	return f
}

func (f *fixture) countRows(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppCode(t, err, models.CodeValidation)
}
