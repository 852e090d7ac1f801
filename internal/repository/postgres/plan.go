package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
)

func (s *Store) SavePreferences(ctx context.Context, p *model.MealPreferences) error {
	p.ID = newID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	if p.MealPreferences == nil {
		p.MealPreferences = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO meal_preferences
		   (id, session_id, user_id, daily_calories, fitness_goal, dietary_restrictions, meal_preferences, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.SessionID, nullable(p.UserID), p.DailyCalories, p.FitnessGoal,
		p.DietaryRestrictions, p.MealPreferences, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting preferences for session %s: %w", p.SessionID, err)
	}
	return nil
}

func (s *Store) SavePlan(ctx context.Context, p *model.MealPlanRecord) error {
	if !json.Valid(p.Plan) {
		return fmt.Errorf("postgres: plan for session %s is not valid JSON", p.SessionID)
	}

	p.ID = newID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	// A string argument is passed to the json column unchanged.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO meal_plans (id, session_id, user_id, week_start_date, plan_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.SessionID, nullable(p.UserID), p.WeekStartDate, string(p.Plan), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting plan for session %s: %w", p.SessionID, err)
	}
	return nil
}

const selectPlan = `SELECT id, session_id, user_id, week_start_date, plan_data::text, created_at FROM meal_plans`

func (s *Store) LatestPlanByUser(ctx context.Context, userID string) (*model.MealPlanRecord, error) {
	row := s.pool.QueryRow(ctx, selectPlan+` WHERE user_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 1`, userID)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("meal plan for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: latest plan for user %s: %w", userID, err)
	}
	return p, nil
}

func (s *Store) LatestPlanBySession(ctx context.Context, sessionID string) (*model.MealPlanRecord, error) {
	row := s.pool.QueryRow(ctx, selectPlan+` WHERE session_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 1`, sessionID)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("meal plan for session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: latest plan for session %s: %w", sessionID, err)
	}
	return p, nil
}

func (s *Store) ListPlansByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.MealPlanRecord, error) {
	rows, err := s.pool.Query(ctx,
		selectPlan+` WHERE user_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	plans := []model.MealPlanRecord{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning plan row: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating plan rows: %w", err)
	}
	return plans, nil
}

func scanPlan(row pgx.Row) (*model.MealPlanRecord, error) {
	var (
		p      model.MealPlanRecord
		userID *string
		data   string
	)
	if err := row.Scan(&p.ID, &p.SessionID, &userID, &p.WeekStartDate, &data, &p.CreatedAt); err != nil {
		return nil, err
	}
	if userID != nil {
		p.UserID = *userID
	}
	p.Plan = json.RawMessage(data)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
