package testutil

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/plan"
	ierr "github.com/plexbill/plexbill/internal/errors"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if existing, err := s.GetBySlug(ctx, p.Slug); err == nil && existing != nil {
		return ierr.NewError("plan already exists").
			WithHintf("A plan with slug %s already exists", p.Slug).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("plan not found").
			WithHintf("Plan %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPlanStore) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	plans, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *plan.Plan, _ interface{}) bool {
		return p.Slug == slug
	}, nil)
	if len(plans) == 0 {
		return nil, ierr.NewError("plan not found").
			WithHintf("Plan with slug %s does not exist", slug).
			Mark(ierr.ErrNotFound)
	}
	return plans[0], nil
}

func (s *InMemoryPlanStore) List(ctx context.Context) ([]*plan.Plan, error) {
	return s.InMemoryStore.List(ctx, nil, nil, func(i, j *plan.Plan) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	if err := s.InMemoryStore.Update(ctx, p.ID, p); err != nil {
		return ierr.NewError("plan not found").
			WithHintf("Plan %s does not exist", p.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPlanStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return ierr.NewError("plan not found").
			WithHintf("Plan %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
