package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/model"
)

type stubProvider struct {
	content string
	err     error
	calls   int
	system  string
	user    string
}

func (s *stubProvider) Complete(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.system, s.user = system, user
	return s.content, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func meal(name string, calories float64) map[string]any {
	return map[string]any{
		"name": name, "calories": calories, "protein": 30, "carbs": 40, "fats": 10,
		"ingredients": []string{"x"}, "prepTime": 10, "instructions": []string{"cook"},
	}
}

func planJSON(t *testing.T, days int, mutate func(day map[string]any)) string {
	t.Helper()

	list := make([]map[string]any, days)
	for i := range list {
		list[i] = map[string]any{
			"day":       fmt.Sprintf("Day %d", i+1),
			"breakfast": meal("Oats", 400),
			"lunch":     meal("Chicken bowl", 700),
			"dinner":    meal("Salmon", 800),
		}
		if mutate != nil && i == days-1 {
			mutate(list[i])
		}
	}

	b, err := json.Marshal(map[string]any{"weekStartDate": "2024-01-01", "days": list})
	require.NoError(t, err)
	return string(b)
}

func TestGenerate_ReturnsPayloadVerbatim(t *testing.T) {
	content := planJSON(t, 7, nil)
	p := &stubProvider{content: content}
	g := NewGenerator(p, Structural, discardLogger())

	got, err := g.Generate(context.Background(), model.PlanRequest{DailyCalories: 2000, FitnessGoal: model.GoalMaintenance})
	require.NoError(t, err)

	assert.Equal(t, content, string(got))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, SystemPrompt, p.system)
	assert.Contains(t, p.user, "Daily calorie target: 2000 calories")
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		wantMsg string
	}{
		{"provider error", "", errors.New("connection reset"), failedMessage},
		{"empty content", "   ", nil, "No response from AI provider"},
		{"not json", "Here is your plan!", nil, "AI provider returned invalid JSON"},
		{"no days", `{"weekStartDate":"2024-01-01"}`, nil, "Invalid meal plan structure: missing days array"},
		{"days not a list", `{"days":{"monday":{}}}`, nil, "Invalid meal plan structure: missing days array"},
		{"top level array", `[1,2,3]`, nil, "Invalid meal plan structure: missing days array"},
		{"six days", planJSON(t, 6, nil), nil, "Invalid meal plan: must have 7 days"},
		{"eight days", planJSON(t, 8, nil), nil, "Invalid meal plan: must have 7 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(&stubProvider{content: tt.content, err: tt.err}, Structural, discardLogger())

			_, err := g.Generate(context.Background(), model.PlanRequest{DailyCalories: 2000, FitnessGoal: model.GoalEndurance})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrGenerationFailed)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestGenerate_MisconfiguredPassesThrough(t *testing.T) {
	p := &stubProvider{err: apperror.ProviderMisconfigured("OPENAI_API_KEY is not set")}
	g := NewGenerator(p, Structural, discardLogger())

	_, err := g.Generate(context.Background(), model.PlanRequest{DailyCalories: 2000, FitnessGoal: model.GoalMaintenance})

	assert.ErrorIs(t, err, apperror.ErrProviderMisconfigured)
	assert.NotErrorIs(t, err, apperror.ErrGenerationFailed)
}

func TestCheckPlan_StructuralIgnoresMealContents(t *testing.T) {
	raw := planJSON(t, 7, func(day map[string]any) {
		delete(day, "dinner")
		day["lunch"] = map[string]any{"name": ""}
	})

	assert.NoError(t, CheckPlan([]byte(raw), Structural))
}

func TestCheckPlan_Strict(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(day map[string]any)
		wantErr string
	}{
		{"valid", nil, ""},
		{"missing dinner", func(d map[string]any) { delete(d, "dinner") }, "day 7 is missing dinner"},
		{"null lunch", func(d map[string]any) { d["lunch"] = nil }, "day 7 is missing lunch"},
		{"unnamed breakfast", func(d map[string]any) { d["breakfast"] = meal(" ", 300) }, "day 7 breakfast has no name"},
		{"negative calories", func(d map[string]any) { d["dinner"] = meal("Soup", -5) }, "day 7 dinner has negative calories"},
		{"missing macro", func(d map[string]any) {
			m := meal("Toast", 200)
			delete(m, "fats")
			d["breakfast"] = m
		}, "day 7 breakfast has no numeric fats"},
		{"bad snack", func(d map[string]any) { d["snacks"] = []any{meal("Apple", 95), map[string]any{"name": "Nuts"}} }, "day 7 snack 2 has no numeric calories"},
		{"good snacks", func(d map[string]any) { d["snacks"] = []any{meal("Apple", 95)} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPlan([]byte(planJSON(t, 7, tt.mutate)), Strict)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrGenerationFailed)
			assert.True(t, strings.HasSuffix(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}

func TestNewGenerator_UnknownStrictness(t *testing.T) {
	g := NewGenerator(&stubProvider{}, Strictness("lenient"), discardLogger())
	assert.Equal(t, Structural, g.strictness)
}
