// Package repository declares the persistence contracts used by the services.
// Implementations live in the sqlite, postgres and mongo subpackages.
package repository

import (
	"context"

	"github.com/sakif/meal-planner/internal/model"
)

// ListOptions pages through a newest-first listing.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores credential records.
type UserRepository interface {
	// CreateUser inserts u and fills in its ID (and CreatedAt when zero).
	// Returns apperror.ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, u *model.User) error
	// GetUserByEmail matches the email exactly. Returns apperror.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// PlanRepository stores preference and plan records. Both are insert-only.
//
// "Latest" means greatest created_at, ties broken by insertion order.
type PlanRepository interface {
	SavePreferences(ctx context.Context, p *model.MealPreferences) error
	SavePlan(ctx context.Context, p *model.MealPlanRecord) error
	// LatestPlanByUser and LatestPlanBySession return apperror.ErrNotFound
	// when nothing matches.
	LatestPlanByUser(ctx context.Context, userID string) (*model.MealPlanRecord, error)
	LatestPlanBySession(ctx context.Context, sessionID string) (*model.MealPlanRecord, error)
	ListPlansByUser(ctx context.Context, userID string, opts ListOptions) ([]model.MealPlanRecord, error)
}

// Store is a complete backend with an explicit lifecycle: opened once at
// startup, shared by every service, closed on shutdown.
type Store interface {
	UserRepository
	PlanRepository
	Close() error
}
