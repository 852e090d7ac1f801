package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meal-planner/internal/apperror"
)

func calories(v float64) *float64 { return &v }

// violations asserts err is a validation error and returns its details.
func violations(t *testing.T, err error) []apperror.Violation {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	require.NotEmpty(t, appErr.Details)
	assert.Equal(t, appErr.Details[0].Message, appErr.Message, "headline must be the first violation")
	return appErr.Details
}

func TestRegistration(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		in        Registration
		wantField string
		wantMsg   string
	}{
		{"valid", Registration{Name: "Ada", Email: "ada@example.com", Password: "secret"}, "", ""},
		{"empty name", Registration{Email: "ada@example.com", Password: "secret"}, "name", "name is required"},
		{"name over 100 chars", Registration{Name: strings.Repeat("a", 101), Email: "ada@example.com", Password: "secret"}, "name", "Name must be at most 100 characters"},
		{"name of exactly 100 chars", Registration{Name: strings.Repeat("a", 100), Email: "ada@example.com", Password: "secret"}, "", ""},
		{"malformed email", Registration{Name: "Ada", Email: "not-an-email", Password: "secret"}, "email", "Invalid email"},
		{"short password", Registration{Name: "Ada", Email: "ada@example.com", Password: "12345"}, "password", "Password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			got := violations(t, err)
			assert.Equal(t, tt.wantField, got[0].Field)
			assert.Equal(t, tt.wantMsg, got[0].Message)
		})
	}
}

func TestRegistration_ReportsEveryViolation(t *testing.T) {
	err := New().Struct(&Registration{})

	got := violations(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "name", got[0].Field)
	assert.Equal(t, "email", got[1].Field)
	assert.Equal(t, "password", got[2].Field)
}

func TestLogin(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(&Login{Email: "a@b.co", Password: "x"}))

	got := violations(t, v.Struct(&Login{Email: "a@b.co"}))
	assert.Equal(t, "password", got[0].Field)

	got = violations(t, v.Struct(&Login{Email: "nope", Password: "x"}))
	assert.Equal(t, "email", got[0].Field)
}

func TestPlanGeneration(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		in        PlanGeneration
		wantField string
	}{
		{"valid minimum", PlanGeneration{DailyCalories: calories(1000), FitnessGoal: "maintenance"}, ""},
		{"valid maximum with lists", PlanGeneration{DailyCalories: calories(5000), FitnessGoal: "endurance",
			DietaryRestrictions: []string{"vegan", "vegan"}, MealPreferences: []string{"spicy"}}, ""},
		{"below range", PlanGeneration{DailyCalories: calories(500), FitnessGoal: "maintenance"}, "dailyCalories"},
		{"above range", PlanGeneration{DailyCalories: calories(5001), FitnessGoal: "maintenance"}, "dailyCalories"},
		{"explicit zero", PlanGeneration{DailyCalories: calories(0), FitnessGoal: "maintenance"}, "dailyCalories"},
		{"fractional", PlanGeneration{DailyCalories: calories(2000.5), FitnessGoal: "maintenance"}, "dailyCalories"},
		{"missing calories", PlanGeneration{FitnessGoal: "maintenance"}, "dailyCalories"},
		{"unknown goal", PlanGeneration{DailyCalories: calories(2000), FitnessGoal: "bulking"}, "fitnessGoal"},
		{"missing goal", PlanGeneration{DailyCalories: calories(2000)}, "fitnessGoal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			got := violations(t, err)
			assert.Equal(t, tt.wantField, got[0].Field)
		})
	}
}

func TestPlanGeneration_Messages(t *testing.T) {
	v := New()

	got := violations(t, v.Struct(&PlanGeneration{DailyCalories: calories(500), FitnessGoal: "maintenance"}))
	assert.Equal(t, "dailyCalories must be at least 1000", got[0].Message)

	got = violations(t, v.Struct(&PlanGeneration{DailyCalories: calories(2000), FitnessGoal: "bulking"}))
	assert.Equal(t, "fitnessGoal must be one of: weight_loss, muscle_growth, maintenance, endurance", got[0].Message)
}

func TestPlanRequest(t *testing.T) {
	in := PlanGeneration{
		DailyCalories:       calories(2200),
		FitnessGoal:         "muscle_growth",
		DietaryRestrictions: []string{"gluten-free"},
	}

	req := in.PlanRequest()
	assert.Equal(t, 2200, req.DailyCalories)
	assert.Equal(t, "muscle_growth", req.FitnessGoal)
	assert.Equal(t, []string{"gluten-free"}, req.DietaryRestrictions)
	assert.Nil(t, req.MealPreferences)
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		var p PlanGeneration
		require.NoError(t, DecodeJSON(strings.NewReader(`{"dailyCalories":2000,"fitnessGoal":"maintenance"}`), &p))
		assert.Equal(t, 2000.0, *p.DailyCalories)
	})

	t.Run("empty body decodes to zero value", func(t *testing.T) {
		var p PlanGeneration
		require.NoError(t, DecodeJSON(strings.NewReader(""), &p))
		assert.Nil(t, p.DailyCalories)
	})

	t.Run("wrong type is a field violation", func(t *testing.T) {
		var p PlanGeneration
		got := violations(t, DecodeJSON(strings.NewReader(`{"dailyCalories":"lots"}`), &p))
		assert.Equal(t, "dailyCalories", got[0].Field)
		assert.Equal(t, "Expected number, received string", got[0].Message)
	})

	t.Run("non-string list entry", func(t *testing.T) {
		var p PlanGeneration
		got := violations(t, DecodeJSON(strings.NewReader(`{"dietaryRestrictions":[1]}`), &p))
		assert.Contains(t, got[0].Field, "dietaryRestrictions")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		var p PlanGeneration
		got := violations(t, DecodeJSON(strings.NewReader(`{"dailyCalories":`), &p))
		assert.Equal(t, "body", got[0].Field)
	})
}
