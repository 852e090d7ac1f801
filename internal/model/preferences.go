package model

import "time"

// Fitness goals accepted by the plan generator.
const (
	GoalWeightLoss   = "weight_loss"
	GoalMuscleGrowth = "muscle_growth"
	GoalMaintenance  = "maintenance"
	GoalEndurance    = "endurance"
)

// FitnessGoals lists every accepted goal, in prompt/documentation order.
var FitnessGoals = []string{GoalWeightLoss, GoalMuscleGrowth, GoalMaintenance, GoalEndurance}

// PlanRequest is a validated set of inputs for one generation.
type PlanRequest struct {
	DailyCalories       int      `json:"dailyCalories"`
	FitnessGoal         string   `json:"fitnessGoal"`
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	MealPreferences     []string `json:"mealPreferences,omitempty"`
}

// MealPreferences is the persisted record of one plan request's inputs.
// It is written before generation is attempted and is never updated.
type MealPreferences struct {
	ID                  string    `json:"id"                  db:"id"`
	SessionID           string    `json:"sessionId"           db:"session_id"`
	UserID              string    `json:"userId,omitempty"    db:"user_id"` // empty for guests
	DailyCalories       int       `json:"dailyCalories"       db:"daily_calories"`
	FitnessGoal         string    `json:"fitnessGoal"         db:"fitness_goal"`
	DietaryRestrictions []string  `json:"dietaryRestrictions" db:"dietary_restrictions"`
	MealPreferences     []string  `json:"mealPreferences"     db:"meal_preferences"`
	CreatedAt           time.Time `json:"createdAt"           db:"created_at"`
}
