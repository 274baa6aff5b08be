package service

import (
	"context"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

// CallerHome is what the caller landing page shows.
type CallerHome struct {
	User *model.User
	// Pool is nil when the caller has no assignment.
	Pool *model.Pool
}

type CallerService struct {
	Assignments repository.AssignmentRepositoryInterface
}

// Home finds the caller's current pool, the assignment with the lowest order.
func (s *CallerService) Home(ctx context.Context, u *model.User) (*CallerHome, error) {
	pool, err := s.Assignments.CurrentPool(ctx, u.ID)
	if appErrors.IsNotFound(err) {
		return &CallerHome{User: u}, nil
	}
	if err != nil {
		return nil, err
	}
	return &CallerHome{User: u, Pool: pool}, nil
}
