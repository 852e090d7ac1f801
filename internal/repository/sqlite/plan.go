package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
)

// SavePreferences always inserts a new row. Missing lists are stored as [].
func (db *DB) SavePreferences(ctx context.Context, p *model.MealPreferences) error {
	p.ID = xid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	if p.MealPreferences == nil {
		p.MealPreferences = []string{}
	}

	restrictions, err := encodeList(p.DietaryRestrictions)
	if err != nil {
		return fmt.Errorf("sqlite: encoding dietary restrictions: %w", err)
	}
	prefs, err := encodeList(p.MealPreferences)
	if err != nil {
		return fmt.Errorf("sqlite: encoding meal preferences: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO meal_preferences
		   (id, session_id, user_id, daily_calories, fitness_goal, dietary_restrictions, meal_preferences, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.SessionID,
		nullable(p.UserID),
		p.DailyCalories,
		p.FitnessGoal,
		restrictions,
		prefs,
		toUnix(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting preferences for session %s: %w", p.SessionID, err)
	}

	return nil
}

// SavePlan always inserts a new row. The plan document is stored as-is.
func (db *DB) SavePlan(ctx context.Context, p *model.MealPlanRecord) error {
	if !json.Valid(p.Plan) {
		return fmt.Errorf("sqlite: plan for session %s is not valid JSON", p.SessionID)
	}

	p.ID = xid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO meal_plans (id, session_id, user_id, week_start_date, plan_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.SessionID,
		nullable(p.UserID),
		p.WeekStartDate,
		string(p.Plan),
		toUnix(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting plan for session %s: %w", p.SessionID, err)
	}

	return nil
}

const planColumns = `id, session_id, user_id, week_start_date, plan_data, created_at`

// LatestPlanByUser returns the user's most recent plan.
func (db *DB) LatestPlanByUser(ctx context.Context, userID string) (*model.MealPlanRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM meal_plans
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		userID,
	)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("meal plan for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest plan for user %s: %w", userID, err)
	}
	return p, nil
}

// LatestPlanBySession returns the session's most recent plan, whoever owns it.
func (db *DB) LatestPlanBySession(ctx context.Context, sessionID string) (*model.MealPlanRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM meal_plans
		 WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
		sessionID,
	)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("meal plan for session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest plan for session %s: %w", sessionID, err)
	}
	return p, nil
}

// ListPlansByUser returns the user's plans newest first.
//
// ALWAYS CLOSE ROWS:
// rows holds a connection from the pool until closed; with ":memory:" there
// is only one, so a leaked rows value deadlocks the next query.
func (db *DB) ListPlansByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.MealPlanRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+planColumns+` FROM meal_plans
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	plans := []model.MealPlanRecord{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning plan row: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating plan rows: %w", err)
	}

	return plans, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*model.MealPlanRecord, error) {
	var (
		p       model.MealPlanRecord
		userID  sql.NullString
		data    string
		created int64
	)
	if err := s.Scan(&p.ID, &p.SessionID, &userID, &p.WeekStartDate, &data, &created); err != nil {
		return nil, err
	}
	p.UserID = userID.String
	p.Plan = json.RawMessage(data)
	p.CreatedAt = fromUnix(created)
	return &p, nil
}
