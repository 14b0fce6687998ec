// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"appx/internal/database"
	"appx/internal/middleware"
	"appx/internal/models"
	"appx/internal/repository"
	"appx/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxDays spreads post creation times over the last MaxDays days.
	MaxDays int
	// RandSeed makes runs reproducible when non-zero.
	RandSeed int64
	// FastHash uses the minimum bcrypt cost for the shared demo password.
	FastHash bool
}

// Summary counts the rows present after seeding.
type Summary struct {
	Users         int64
	Posts         int64
	Comments      int64
	Likes         int64
	Follows       int64
	Mentions      int64
	Notifications int64
}

// Seeder drives the service layer so seeded activity produces the same
// mentions and notifications as real traffic.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory

	posts         *service.PostService
	comments      *service.CommentService
	reactions     *service.ReactionService
	relationships *service.RelationshipService
}

// NewSeeder wires a Seeder over db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	notifier := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewPreferenceRepository(db),
		userRepo,
		nil,
	)
	mentions := service.NewMentionService(userRepo, repository.NewMentionRepository(db), notifier)

	return &Seeder{
		db:            db,
		opts:          opts,
		factory:       f,
		posts:         service.NewPostService(postRepo, userRepo, mentions, nil),
		comments:      service.NewCommentService(repository.NewCommentRepository(db), postRepo, notifier),
		reactions:     service.NewReactionService(repository.NewReactionRepository(db), postRepo, notifier),
		relationships: service.NewRelationshipService(repository.NewRelationshipRepository(db), userRepo, notifier),
	}, nil
}

// ClearAll deletes every row of the application tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := database.PersistentModels()
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Delete(tables[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", tables[i], err)
		}
	}
	middleware.Logger.InfoContext(ctx, "cleared existing data")
	return nil
}

// Run seeds users, their follows, posts with mentions, comments and likes.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	log := middleware.Logger.With(slog.String("component", "seed"))

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	users, err := s.seedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	log.InfoContext(ctx, "users created", slog.Int("count", len(users)))

	if err := s.seedFollows(ctx, users); err != nil {
		return nil, fmt.Errorf("seed follows: %w", err)
	}

	posts, err := s.seedPosts(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("seed posts: %w", err)
	}
	log.InfoContext(ctx, "posts created", slog.Int("count", len(posts)))

	if err := s.seedEngagement(ctx, users, posts); err != nil {
		return nil, fmt.Errorf("seed engagement: %w", err)
	}

	sum, err := s.summarize(ctx)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "seeding completed",
		slog.Int64("users", sum.Users),
		slog.Int64("posts", sum.Posts),
		slog.Int64("comments", sum.Comments),
		slog.Int64("likes", sum.Likes),
		slog.Int64("follows", sum.Follows),
		slog.Int64("notifications", sum.Notifications))
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.NumUsers)

	// Fixed accounts make the demo data easy to log into.
	fixed := []struct{ name, handle string }{
		{"Demo User", "demo"},
		{"Alice Example", "alice"},
		{"Bob Example", "bob"},
	}
	for i, acc := range fixed {
		if i >= s.opts.NumUsers {
			break
		}
		u, err := s.factory.CreateUser(ctx, i, func(u *models.User) {
			u.Name = acc.name
			u.Email = acc.handle + "@example.com"
		})
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	for i := len(users); i < s.opts.NumUsers; i++ {
		u, err := s.factory.CreateUser(ctx, i)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
				continue
			}
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) error {
	if len(users) < 2 {
		return nil
	}
	for _, u := range users {
		n := 1 + len(users)/4
		if n > 10 {
			n = 10
		}
		for i := 0; i < n; i++ {
			target := pick(users, u.ID)
			if _, err := s.relationships.Follow(ctx, service.NewActor(u.ID), target.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []*models.User) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, s.opts.NumPosts)
	if len(users) == 0 {
		return posts, nil
	}

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[i%len(users)]

		var handles []string
		if chance(0.3) {
			if other := pick(users, author.ID); other != nil {
				handles = append(handles, other.Handle())
			}
		}

		post, err := s.posts.CreatePost(ctx, service.NewActor(author.ID), service.CreatePostInput{
			Text: s.factory.PostText(handles...),
		})
		if err != nil {
			return nil, err
		}
		if err := s.factory.Backdate(ctx, post.ID); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedEngagement(ctx context.Context, users []*models.User, posts []*models.Post) error {
	if len(users) < 2 {
		return nil
	}
	for _, p := range posts {
		for i, n := 0, randomUpTo(3); i < n; i++ {
			who := pick(users, 0)
			if _, err := s.comments.CreateComment(ctx, service.NewActor(who.ID), service.CreateCommentInput{
				PostID: p.ID,
				Text:   s.factory.CommentText(),
			}); err != nil {
				return err
			}
		}
		for i, n := 0, randomUpTo(5); i < n; i++ {
			who := pick(users, p.AuthorID)
			if err := s.reactions.Like(ctx, service.NewActor(who.ID), p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) summarize(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	var sum Summary
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &sum.Users},
		{&models.Post{}, &sum.Posts},
		{&models.Comment{}, &sum.Comments},
		{&models.Reaction{}, &sum.Likes},
		{&models.Mention{}, &sum.Mentions},
		{&models.Notification{}, &sum.Notifications},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	if err := db.Model(&models.RelationshipEdge{}).Where("bloqueado = ?", false).Count(&sum.Follows).Error; err != nil {
		return nil, err
	}
	return &sum, nil
}
