package model

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MealPlanRecord is one generated plan plus its indexing metadata.
//
// Plan holds the provider's JSON verbatim. It is decoded into MealPlan only
// when a derived view needs typed access, so fields the provider adds are
// preserved on the round trip through the store.
type MealPlanRecord struct {
	ID            string          `json:"id"            db:"id"`
	SessionID     string          `json:"sessionId"     db:"session_id"`
	UserID        string          `json:"userId"        db:"user_id"`
	WeekStartDate string          `json:"weekStartDate" db:"week_start_date"`
	Plan          json.RawMessage `json:"plan"          db:"plan_data"`
	CreatedAt     time.Time       `json:"createdAt"     db:"created_at"`
}

// Meal is one recipe inside a day entry.
type Meal struct {
	Name         string   `json:"name"`
	Calories     float64  `json:"calories"`
	Protein      float64  `json:"protein"`
	Carbs        float64  `json:"carbs"`
	Fats         float64  `json:"fats"`
	Ingredients  []string `json:"ingredients"`
	PrepTime     float64  `json:"prepTime"`
	Instructions []string `json:"instructions"`
}

// DayMeals is one of the seven day entries. Pointers distinguish a missing
// meal from a zero-valued one.
type DayMeals struct {
	Day           string  `json:"day"`
	Breakfast     *Meal   `json:"breakfast"`
	Lunch         *Meal   `json:"lunch"`
	Dinner        *Meal   `json:"dinner"`
	Snacks        []Meal  `json:"snacks,omitempty"`
	TotalCalories float64 `json:"totalCalories"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalFats     float64 `json:"totalFats"`
}

type Totals struct {
	TotalCalories float64 `json:"totalCalories"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalFats     float64 `json:"totalFats"`
}

// MealPlan is the typed view of a plan payload.
type MealPlan struct {
	WeekStartDate string     `json:"weekStartDate"`
	Days          []DayMeals `json:"days"`
	WeeklyTotals  Totals     `json:"weeklyTotals"`
	ShoppingList  []string   `json:"shoppingList"`
	PrepTips      []string   `json:"prepTips"`
}

// DecodePlan builds the typed view of a stored payload.
//
// Only the top level has to be a JSON object. Below it the provider's
// output is taken as far as it is usable: numbers given as strings
// ("450 kcal") keep their leading value, other mistyped fields read as
// zero, and meals or days that are not objects are skipped.
func DecodePlan(raw json.RawMessage) (*MealPlan, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("model: plan is not a JSON object")
	}

	p := &MealPlan{
		WeekStartDate: text(doc["weekStartDate"]),
		WeeklyTotals:  totals(object(doc["weeklyTotals"])),
		ShoppingList:  texts(doc["shoppingList"]),
		PrepTips:      texts(doc["prepTips"]),
	}
	for _, v := range list(doc["days"]) {
		d := object(v)
		if d == nil {
			continue
		}
		day := DayMeals{
			Day:       text(d["day"]),
			Breakfast: meal(d["breakfast"]),
			Lunch:     meal(d["lunch"]),
			Dinner:    meal(d["dinner"]),
		}
		for _, s := range list(d["snacks"]) {
			if m := meal(s); m != nil {
				day.Snacks = append(day.Snacks, *m)
			}
		}
		t := totals(d)
		day.TotalCalories, day.TotalProtein, day.TotalCarbs, day.TotalFats =
			t.TotalCalories, t.TotalProtein, t.TotalCarbs, t.TotalFats
		p.Days = append(p.Days, day)
	}
	return p, nil
}

func meal(v any) *Meal {
	m := object(v)
	if m == nil {
		return nil
	}
	return &Meal{
		Name:         text(m["name"]),
		Calories:     number(m["calories"]),
		Protein:      number(m["protein"]),
		Carbs:        number(m["carbs"]),
		Fats:         number(m["fats"]),
		Ingredients:  texts(m["ingredients"]),
		PrepTime:     number(m["prepTime"]),
		Instructions: texts(m["instructions"]),
	}
}

func totals(m map[string]any) Totals {
	return Totals{
		TotalCalories: number(m["totalCalories"]),
		TotalProtein:  number(m["totalProtein"]),
		TotalCarbs:    number(m["totalCarbs"]),
		TotalFats:     number(m["totalFats"]),
	}
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func text(v any) string {
	s, _ := v.(string)
	return s
}

// texts keeps the string elements of an array.
func texts(v any) []string {
	var out []string
	for _, e := range list(v) {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)`)

// number reads a JSON number, or the number a string starts with.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(leadingNumber.FindString(strings.TrimSpace(n)), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// Meals returns the day's meals in serving order, skipping missing ones.
func (d *DayMeals) Meals() []Meal {
	meals := make([]Meal, 0, 3+len(d.Snacks))
	for _, m := range []*Meal{d.Breakfast, d.Lunch, d.Dinner} {
		if m != nil {
			meals = append(meals, *m)
		}
	}
	return append(meals, d.Snacks...)
}

// GroceryList returns the provider's shopping list, or when it is empty the
// de-duplicated ingredients of every meal in first-seen order.
func (p *MealPlan) GroceryList() []string {
	if len(p.ShoppingList) > 0 {
		return p.ShoppingList
	}

	seen := make(map[string]bool)
	items := []string{}
	for i := range p.Days {
		for _, meal := range p.Days[i].Meals() {
			for _, ing := range meal.Ingredients {
				key := strings.ToLower(strings.TrimSpace(ing))
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				items = append(items, strings.TrimSpace(ing))
			}
		}
	}
	return items
}

// DayNutrition is the per-day row of the nutrition view.
type DayNutrition struct {
	Day string `json:"day"`
	Totals
}

// Nutrition returns the provider's own per-day totals. Nothing is
// recomputed from the individual meals.
func (p *MealPlan) Nutrition() []DayNutrition {
	rows := make([]DayNutrition, 0, len(p.Days))
	for _, d := range p.Days {
		rows = append(rows, DayNutrition{
			Day: d.Day,
			Totals: Totals{
				TotalCalories: d.TotalCalories,
				TotalProtein:  d.TotalProtein,
				TotalCarbs:    d.TotalCarbs,
				TotalFats:     d.TotalFats,
			},
		})
	}
	return rows
}
