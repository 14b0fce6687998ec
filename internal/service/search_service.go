package service

import (
	"context"
	"strings"

	"appx/internal/models"
	"appx/internal/repository"

	"golang.org/x/sync/errgroup"
)

const searchLimit = 20

// SearchResult groups matching posts and users.
type SearchResult struct {
	Posts []*models.Post `json:"posts"`
	Users []models.User  `json:"users"`
}

type SearchService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

func NewSearchService(postRepo repository.PostRepository, userRepo repository.UserRepository) *SearchService {
	return &SearchService{postRepo: postRepo, userRepo: userRepo}
}

// Search looks up posts and users matching query. Posts hidden from the actor by a block are left out.
func (s *SearchService) Search(ctx context.Context, actor Actor, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	var res SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		posts, err := s.postRepo.Search(gctx, query, actor.ID, searchLimit)
		res.Posts = posts
		return err
	})
	g.Go(func() error {
		users, err := s.userRepo.Search(gctx, query, searchLimit)
		res.Users = users
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}
