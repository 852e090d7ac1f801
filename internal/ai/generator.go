// Package ai turns meal preferences into a weekly plan by delegating to an
// external chat-completion provider, then checks the returned document
// before anything is persisted.
//
// Any provider-side failure (transport, auth, rate limit, empty or malformed
// output, wrong day count) becomes an apperror.ErrGenerationFailed. Nothing
// is retried here; callers resubmit the whole request.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/metrics"
	"github.com/sakif/meal-planner/internal/model"
)

// DaysPerPlan is the number of day entries every plan must contain.
const DaysPerPlan = 7

// Strictness controls how much of the returned document is checked.
type Strictness string

const (
	// Structural only requires a days array with exactly seven entries.
	Structural Strictness = "structural"
	// Strict additionally requires the three main meals on every day with a
	// name and non-negative macros on every meal and snack.
	Strict Strictness = "strict"
)

const failedMessage = "Failed to generate meal plan with AI"

// Provider is a text-generation backend that answers with a JSON document.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator composes prompts, calls the provider and checks its answer.
type Generator struct {
	provider   Provider
	strictness Strictness
	logger     *slog.Logger
}

// NewGenerator creates a Generator. An unknown strictness falls back to Structural.
func NewGenerator(p Provider, strictness Strictness, logger *slog.Logger) *Generator {
	if strictness != Strict {
		strictness = Structural
	}
	return &Generator{provider: p, strictness: strictness, logger: logger}
}

// Generate returns the provider's plan document verbatim. Totals are not
// recomputed; the provider's own numbers are trusted.
func (g *Generator) Generate(ctx context.Context, req model.PlanRequest) (json.RawMessage, error) {
	start := time.Now()
	content, err := g.provider.Complete(ctx, SystemPrompt, UserPrompt(req))
	metrics.ObserveProviderCall(time.Since(start))

	if err != nil {
		if errors.Is(err, apperror.ErrProviderMisconfigured) {
			return nil, err
		}
		g.logger.Error("provider call failed", "error", err, "duration", time.Since(start))
		return nil, apperror.GenerationFailed(failedMessage, err)
	}

	if strings.TrimSpace(content) == "" {
		g.logger.Error("provider returned no content")
		return nil, apperror.GenerationFailed("No response from AI provider", nil)
	}

	if err := CheckPlan([]byte(content), g.strictness); err != nil {
		g.logger.Error("provider returned an unusable plan", "error", err)
		return nil, err
	}

	g.logger.Debug("plan generated", "duration", time.Since(start), "bytes", len(content))
	return json.RawMessage(content), nil
}

// CheckPlan verifies a plan document at the given strictness.
func CheckPlan(raw []byte, strictness Strictness) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperror.GenerationFailed("AI provider returned invalid JSON", err)
	}

	obj, _ := doc.(map[string]any)
	days, ok := obj["days"].([]any)
	if !ok {
		return apperror.GenerationFailed("Invalid meal plan structure: missing days array", nil)
	}
	if len(days) != DaysPerPlan {
		return apperror.GenerationFailed("Invalid meal plan: must have 7 days", nil)
	}

	if strictness != Strict {
		return nil
	}

	for i, d := range days {
		if err := checkDay(d); err != nil {
			return apperror.GenerationFailed(fmt.Sprintf("Invalid meal plan: day %d %s", i+1, err), nil)
		}
	}
	return nil
}

func checkDay(v any) error {
	day, ok := v.(map[string]any)
	if !ok {
		return errors.New("is not an object")
	}

	for _, slot := range []string{"breakfast", "lunch", "dinner"} {
		meal, ok := day[slot]
		if !ok || meal == nil {
			return fmt.Errorf("is missing %s", slot)
		}
		if err := checkMeal(meal); err != nil {
			return fmt.Errorf("%s %w", slot, err)
		}
	}

	if raw, ok := day["snacks"]; ok && raw != nil {
		snacks, ok := raw.([]any)
		if !ok {
			return errors.New("snacks is not a list")
		}
		for j, s := range snacks {
			if err := checkMeal(s); err != nil {
				return fmt.Errorf("snack %d %w", j+1, err)
			}
		}
	}
	return nil
}

func checkMeal(v any) error {
	meal, ok := v.(map[string]any)
	if !ok {
		return errors.New("is not an object")
	}

	if name, _ := meal["name"].(string); strings.TrimSpace(name) == "" {
		return errors.New("has no name")
	}

	for _, field := range []string{"calories", "protein", "carbs", "fats"} {
		n, ok := meal[field].(float64)
		if !ok {
			return fmt.Errorf("has no numeric %s", field)
		}
		if n < 0 {
			return fmt.Errorf("has negative %s", field)
		}
	}
	return nil
}
