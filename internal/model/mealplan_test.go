package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoDayPlan = `{
  "weekStartDate": "2026-10-19",
  "days": [
    {"day": "Monday",
     "breakfast": {"name": "Oats", "calories": 400, "protein": 20, "carbs": 60, "fats": 8, "ingredients": ["Oats", "Milk"], "prepTime": 5, "instructions": ["mix"]},
     "lunch": {"name": "Chicken bowl", "calories": 700, "protein": 50, "carbs": 70, "fats": 20, "ingredients": ["Chicken", "Rice"], "prepTime": 20, "instructions": ["cook"]},
     "dinner": {"name": "Salmon", "calories": 700, "protein": 45, "carbs": 40, "fats": 30, "ingredients": ["Salmon", "rice "], "prepTime": 25, "instructions": ["bake"]},
     "snacks": [{"name": "Apple", "calories": 100, "protein": 0, "carbs": 25, "fats": 0, "ingredients": ["Apple"], "prepTime": 0, "instructions": []}],
     "totalCalories": 1900, "totalProtein": 115, "totalCarbs": 195, "totalFats": 58},
    {"day": "Tuesday",
     "breakfast": {"name": "Eggs", "calories": 350, "protein": 25, "carbs": 5, "fats": 20, "ingredients": ["Eggs", "milk"], "prepTime": 10, "instructions": ["scramble"]},
     "totalCalories": 2000, "totalProtein": 120, "totalCarbs": 200, "totalFats": 60}
  ],
  "weeklyTotals": {"totalCalories": 3900, "totalProtein": 235, "totalCarbs": 395, "totalFats": 118},
  "shoppingList": [],
  "prepTips": ["Batch cook rice"]
}`

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"stored name wins", User{Name: "Ada", Email: "ada@example.com"}, "Ada"},
		{"falls back to email local part", User{Email: "grace.hopper@example.com"}, "grace.hopper"},
		{"email without at sign", User{Email: "weird"}, "weird"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestPublicUserOmitsHash(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.co", PasswordHash: "$2a$10$secret"}
	out, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.JSONEq(t, `{"id":"u1","email":"a@b.co","name":"a"}`, string(out))
}

func TestGroceryList_FallsBackToIngredients(t *testing.T) {
	plan, err := DecodePlan(json.RawMessage(twoDayPlan))
	require.NoError(t, err)

	// "rice " and "milk" duplicate earlier entries case-insensitively
	assert.Equal(t, []string{"Oats", "Milk", "Chicken", "Rice", "Salmon", "Apple", "Eggs"}, plan.GroceryList())
}

func TestGroceryList_PrefersShoppingList(t *testing.T) {
	plan := &MealPlan{ShoppingList: []string{"Eggs x12"}}
	assert.Equal(t, []string{"Eggs x12"}, plan.GroceryList())
}

func TestNutrition_UsesProviderTotals(t *testing.T) {
	plan, err := DecodePlan(json.RawMessage(twoDayPlan))
	require.NoError(t, err)

	rows := plan.Nutrition()
	require.Len(t, rows, 2)
	assert.Equal(t, "Tuesday", rows[1].Day)
	// Tuesday's totals are not the sum of its single breakfast.
	assert.Equal(t, 2000.0, rows[1].TotalCalories)
}

func TestDayMeals_SkipsMissingMeals(t *testing.T) {
	plan, err := DecodePlan(json.RawMessage(twoDayPlan))
	require.NoError(t, err)

	assert.Len(t, plan.Days[0].Meals(), 4)
	assert.Len(t, plan.Days[1].Meals(), 1)
}

// looseDay has the shape providers sometimes return: units inside numbers,
// a snack that is only a name, non-string ingredients.
const looseDay = `{"day": "Monday",
  "breakfast": {"name": "Oats", "calories": "450 kcal", "protein": "20g", "ingredients": ["Oats", 2, "Milk"], "prepTime": "10 minutes"},
  "lunch": "Leftover curry",
  "dinner": {"name": "Salmon", "calories": 700, "fats": null, "ingredients": "Salmon"},
  "snacks": ["Apple", {"name": "Yogurt", "calories": ".5e3"}],
  "totalCalories": "1900", "totalProtein": 115, "totalCarbs": "n/a", "totalFats": 58}`

func TestDecodePlan_Lenient(t *testing.T) {
	plan, err := DecodePlan(json.RawMessage(`{"days": [` + looseDay + `, 42, "Tuesday"],
		"weeklyTotals": {"totalCalories": "13300 kcal"}, "shoppingList": ["Oats", null, "Milk"]}`))
	require.NoError(t, err)

	require.Len(t, plan.Days, 1, "days that are not objects are skipped")
	day := plan.Days[0]

	require.NotNil(t, day.Breakfast)
	assert.Equal(t, 450.0, day.Breakfast.Calories)
	assert.Equal(t, 20.0, day.Breakfast.Protein)
	assert.Equal(t, 10.0, day.Breakfast.PrepTime)
	assert.Equal(t, []string{"Oats", "Milk"}, day.Breakfast.Ingredients)

	assert.Nil(t, day.Lunch, "a meal given as a bare string is skipped")
	require.NotNil(t, day.Dinner)
	assert.Zero(t, day.Dinner.Fats)
	assert.Empty(t, day.Dinner.Ingredients)

	require.Len(t, day.Snacks, 1)
	assert.Equal(t, "Yogurt", day.Snacks[0].Name)
	assert.Equal(t, 0.5, day.Snacks[0].Calories, "only the leading number of a string counts")

	assert.Equal(t, 1900.0, day.TotalCalories)
	assert.Zero(t, day.TotalCarbs)
	assert.Equal(t, 13300.0, plan.WeeklyTotals.TotalCalories)
	assert.Equal(t, []string{"Oats", "Milk"}, plan.GroceryList())
}

func TestDecodePlan_RejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `null`, `not json`} {
		_, err := DecodePlan(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
