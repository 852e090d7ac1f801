package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
)

// =========================================================================
// IN-MEMORY REPOSITORIES
// =========================================================================
//
// The fakes keep records in insertion order so "latest" can break
// created_at ties the same way the real stores do.

type fakeUsers struct {
	byID  map[string]*model.User
	calls int
	err   error // returned by every call when set
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*model.User)}
}

func (f *fakeUsers) CreateUser(_ context.Context, u *model.User) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperror.DuplicateEmail()
		}
	}
	u.ID = fmt.Sprintf("user-%d", len(f.byID)+1)
	u.CreatedAt = time.Now()
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

type fakePlans struct {
	preferences []model.MealPreferences
	plans       []model.MealPlanRecord
	calls       int
	saveErr     error
	readErr     error
}

var _ repository.PlanRepository = (*fakePlans)(nil)

func (f *fakePlans) SavePreferences(_ context.Context, p *model.MealPreferences) error {
	f.calls++
	if f.saveErr != nil {
		return f.saveErr
	}
	p.ID = fmt.Sprintf("pref-%d", len(f.preferences)+1)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	if p.MealPreferences == nil {
		p.MealPreferences = []string{}
	}
	f.preferences = append(f.preferences, *p)
	return nil
}

func (f *fakePlans) SavePlan(_ context.Context, p *model.MealPlanRecord) error {
	f.calls++
	if f.saveErr != nil {
		return f.saveErr
	}
	p.ID = fmt.Sprintf("plan-%d", len(f.plans)+1)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	f.plans = append(f.plans, *p)
	return nil
}

// newestFirst returns matching plans sorted by created_at desc, insertion desc.
func (f *fakePlans) newestFirst(match func(model.MealPlanRecord) bool) []model.MealPlanRecord {
	var out []model.MealPlanRecord
	for i := len(f.plans) - 1; i >= 0; i-- {
		if match(f.plans[i]) {
			out = append(out, f.plans[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakePlans) LatestPlanByUser(_ context.Context, userID string) (*model.MealPlanRecord, error) {
	f.calls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	found := f.newestFirst(func(p model.MealPlanRecord) bool { return p.UserID == userID })
	if len(found) == 0 {
		return nil, apperror.NotFound("meal plan for user", userID)
	}
	return &found[0], nil
}

func (f *fakePlans) LatestPlanBySession(_ context.Context, sessionID string) (*model.MealPlanRecord, error) {
	f.calls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	found := f.newestFirst(func(p model.MealPlanRecord) bool { return p.SessionID == sessionID })
	if len(found) == 0 {
		return nil, apperror.NotFound("meal plan for session", sessionID)
	}
	return &found[0], nil
}

func (f *fakePlans) ListPlansByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.MealPlanRecord, error) {
	f.calls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	found := f.newestFirst(func(p model.MealPlanRecord) bool { return p.UserID == userID })
	if opts.Offset >= len(found) {
		return []model.MealPlanRecord{}, nil
	}
	found = found[opts.Offset:]
	if opts.Limit < len(found) {
		found = found[:opts.Limit]
	}
	return found, nil
}

// =========================================================================
// GENERATOR STUB
// =========================================================================

type stubGenerator struct {
	plan  json.RawMessage
	err   error
	calls int
	last  model.PlanRequest
}

func (g *stubGenerator) Generate(_ context.Context, req model.PlanRequest) (json.RawMessage, error) {
	g.calls++
	g.last = req
	return g.plan, g.err
}

var errStoreDown = errors.New("store unavailable")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
