package content

import (
	"context"
)

// Service saves posts and announces every status transition to the hooks.
// A save that keeps the same status still fires, with equal old and new values.
type Service struct {
	repo  *Repository
	hooks *Hooks
}

func NewService(repo *Repository, hooks *Hooks) *Service {
	return &Service{repo: repo, hooks: hooks}
}

func (s *Service) Repository() *Repository { return s.repo }

// Create inserts a post; its old status is reported as "new".
func (s *Service) Create(ctx context.Context, in PostInput) (*Post, error) {
	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.hooks.FireTransition(ctx, p.Status, StatusNew, p)
	return p, nil
}

// Update saves changes to a post after its terms are written, so hooks see
// the post as stored.
func (s *Service) Update(ctx context.Context, id int64, in PostInput) (*Post, error) {
	oldStatus, p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.hooks.FireTransition(ctx, p.Status, oldStatus, p)
	return p, nil
}

// Trash moves a post to the trash status.
func (s *Service) Trash(ctx context.Context, id int64) (*Post, error) {
	status := StatusTrash
	return s.Update(ctx, id, PostInput{Status: &status})
}
