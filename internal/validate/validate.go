// Package validate schema-checks incoming payloads before they reach any
// business logic.
//
// Validation is a pure function of the input: a payload either satisfies its
// schema (nil error) or produces an *apperror.AppError of kind ErrValidation
// carrying every violation in field order. Callers must handle both branches;
// nothing is coerced silently.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/model"
)

// Registration is the POST /auth/register payload.
type Registration struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Login is the POST /auth/login payload.
type Login struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PlanGeneration is the POST /meal-plan/generate payload.
//
// DailyCalories is a pointer so that an explicit 0 is reported as out of
// range rather than as missing.
type PlanGeneration struct {
	DailyCalories       *float64 `json:"dailyCalories"       validate:"required,whole,gte=1000,lte=5000"`
	FitnessGoal         string   `json:"fitnessGoal"         validate:"required,oneof=weight_loss muscle_growth maintenance endurance"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	MealPreferences     []string `json:"mealPreferences"`
	SessionID           string   `json:"sessionId"`
}

// PlanRequest converts a payload that already passed Struct into the
// generator's input.
func (p *PlanGeneration) PlanRequest() model.PlanRequest {
	var calories int
	if p.DailyCalories != nil {
		calories = int(*p.DailyCalories)
	}
	return model.PlanRequest{
		DailyCalories:       calories,
		FitnessGoal:         p.FitnessGoal,
		DietaryRestrictions: p.DietaryRestrictions,
		MealPreferences:     p.MealPreferences,
	}
}

// Validator wraps a configured go-playground validator. It is safe for
// concurrent use and should be built once.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// whole: a number with no fractional part
	_ = v.RegisterValidation("whole", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Float32, reflect.Float64:
			x := f.Float()
			return !math.IsInf(x, 0) && x == math.Trunc(x)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return true
		}
		return false
	})

	return &Validator{v: v}
}

// Struct checks s against its validate tags.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	violations := make([]apperror.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, apperror.Violation{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return apperror.Invalid(violations)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", capitalize(field), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", capitalize(field), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "whole":
		return fmt.Sprintf("%s must be an integer", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// DecodeJSON reads one JSON value from r into dst.
//
// An empty body decodes to the zero value so the schema check reports the
// missing fields. Type mismatches become a field-level violation; anything
// else that is not JSON is a body-level violation.
func DecodeJSON(r io.Reader, dst any) error {
	err := json.NewDecoder(r).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperror.ValidationFailed(field,
			fmt.Sprintf("Expected %s, received %s", jsonType(typeErr.Type), typeErr.Value))
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ValidationFailed("body", "Request body too large")
	}

	return apperror.ValidationFailed("body", "Invalid JSON body")
}

func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "number"
	}
	return t.String()
}
