package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/metrics"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
	"github.com/sakif/meal-planner/internal/validate"
)

// History paging bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Generator produces a checked plan document for a preference set.
type Generator interface {
	Generate(ctx context.Context, req model.PlanRequest) (json.RawMessage, error)
}

// MealPlanService runs the generate workflow and resolves stored plans.
type MealPlanService struct {
	plans     repository.PlanRepository
	generator Generator
	validator *validate.Validator
	logger    *slog.Logger

	now          func() time.Time
	newSessionID func() string
}

// NewMealPlanService creates a MealPlanService with all required dependencies.
func NewMealPlanService(
	plans repository.PlanRepository,
	generator Generator,
	validator *validate.Validator,
	logger *slog.Logger,
) *MealPlanService {
	s := &MealPlanService{
		plans:     plans,
		generator: generator,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
	s.newSessionID = func() string { return NewSessionID(s.now()) }
	return s
}

// GenerateResult is what POST /meal-plan/generate returns.
type GenerateResult struct {
	SessionID string          `json:"sessionId"`
	MealPlan  json.RawMessage `json:"mealPlan"`
}

// Generate validates the request, records the preferences, asks the
// generator for a plan and stores it.
//
// The two writes are independent: if generation fails after the preferences
// were saved, that record stays behind and nothing refers to it.
func (s *MealPlanService) Generate(ctx context.Context, in validate.PlanGeneration, userID string) (*GenerateResult, error) {
	if err := s.validator.Struct(in); err != nil {
		metrics.RecordGeneration(metrics.OutcomeInvalid)
		return nil, err
	}

	req := in.PlanRequest()
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = s.newSessionID()
	}

	prefs := &model.MealPreferences{
		SessionID:           sessionID,
		UserID:              userID,
		DailyCalories:       req.DailyCalories,
		FitnessGoal:         req.FitnessGoal,
		DietaryRestrictions: req.DietaryRestrictions,
		MealPreferences:     req.MealPreferences,
	}
	if err := s.plans.SavePreferences(ctx, prefs); err != nil {
		metrics.RecordGeneration(metrics.OutcomeStoreError)
		return nil, fmt.Errorf("service/mealplan: saving preferences: %w", err)
	}

	plan, err := s.generator.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, apperror.ErrProviderMisconfigured) {
			metrics.RecordGeneration(metrics.OutcomeMisconfigured)
		} else {
			metrics.RecordGeneration(metrics.OutcomeFailed)
		}
		return nil, err
	}

	record := &model.MealPlanRecord{
		SessionID:     sessionID,
		UserID:        userID,
		WeekStartDate: s.weekStartDate(plan),
		Plan:          plan,
	}
	if err := s.plans.SavePlan(ctx, record); err != nil {
		metrics.RecordGeneration(metrics.OutcomeStoreError)
		return nil, fmt.Errorf("service/mealplan: saving plan: %w", err)
	}

	metrics.RecordGeneration(metrics.OutcomeSuccess)
	s.logger.Info("meal plan generated",
		slog.String("sessionID", sessionID),
		slog.String("userID", userID),
		slog.String("planID", record.ID),
	)

	return &GenerateResult{SessionID: sessionID, MealPlan: plan}, nil
}

// weekStartDate takes the plan's own weekStartDate, else today's date.
func (s *MealPlanService) weekStartDate(plan json.RawMessage) string {
	var head struct {
		WeekStartDate string `json:"weekStartDate"`
	}
	if err := json.Unmarshal(plan, &head); err == nil && head.WeekStartDate != "" {
		return head.WeekStartDate
	}
	return s.now().UTC().Format(time.DateOnly)
}

// LatestPlan resolves the plan to show a caller.
//
// A signed-in user's own latest plan wins outright, even when the session
// has a newer one. Only when the user has no plan (or the caller is
// anonymous) does the session's latest plan apply.
func (s *MealPlanService) LatestPlan(ctx context.Context, sessionID, userID string) (*model.MealPlanRecord, error) {
	if userID != "" {
		p, err := s.plans.LatestPlanByUser(ctx, userID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/mealplan: latest plan for user: %w", err)
		}
	}

	if sessionID == "" {
		return nil, apperror.NotFound("meal plan", userID)
	}

	p, err := s.plans.LatestPlanBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/mealplan: latest plan for session: %w", err)
	}
	return p, nil
}

// GroceryList is the shopping view of a plan.
type GroceryList struct {
	WeekStartDate string   `json:"weekStartDate"`
	Items         []string `json:"items"`
}

// GroceryList returns the shopping list of the plan LatestPlan resolves to.
func (s *MealPlanService) GroceryList(ctx context.Context, sessionID, userID string) (*GroceryList, error) {
	record, plan, err := s.typedPlan(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return &GroceryList{WeekStartDate: record.WeekStartDate, Items: plan.GroceryList()}, nil
}

// NutritionReport is the per-day and weekly macro view of a plan.
type NutritionReport struct {
	Days         []model.DayNutrition `json:"days"`
	WeeklyTotals model.Totals         `json:"weeklyTotals"`
}

// Nutrition returns the provider's totals for the plan LatestPlan resolves to.
func (s *MealPlanService) Nutrition(ctx context.Context, sessionID, userID string) (*NutritionReport, error) {
	_, plan, err := s.typedPlan(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return &NutritionReport{Days: plan.Nutrition(), WeeklyTotals: plan.WeeklyTotals}, nil
}

func (s *MealPlanService) typedPlan(ctx context.Context, sessionID, userID string) (*model.MealPlanRecord, *model.MealPlan, error) {
	record, err := s.LatestPlan(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := model.DecodePlan(record.Plan)
	if err != nil {
		return nil, nil, fmt.Errorf("service/mealplan: decoding plan %s: %w", record.ID, err)
	}
	return record, plan, nil
}

// PlanSummary is one row of a user's plan history.
type PlanSummary struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	WeekStartDate string    `json:"weekStartDate"`
	CreatedAt     time.Time `json:"createdAt"`
}

// History lists a user's plans newest first. limit is clamped to
// [1, MaxHistoryLimit]; 0 selects DefaultHistoryLimit.
func (s *MealPlanService) History(ctx context.Context, userID string, limit, offset int) ([]PlanSummary, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	offset = max(offset, 0)

	records, err := s.plans.ListPlansByUser(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/mealplan: listing plans: %w", err)
	}

	out := make([]PlanSummary, 0, len(records))
	for _, r := range records {
		out = append(out, PlanSummary{
			ID:            r.ID,
			SessionID:     r.SessionID,
			WeekStartDate: r.WeekStartDate,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID returns "session_<unix ms>_<9 base36 chars>".
func NewSessionID(now time.Time) string {
	var suffix strings.Builder
	for range 9 {
		suffix.WriteByte(base36[rand.IntN(len(base36))])
	}
	return "session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix.String()
}
