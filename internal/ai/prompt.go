package ai

import (
	"fmt"
	"strings"

	"github.com/sakif/meal-planner/internal/model"
)

// SystemPrompt describes the JSON document the provider must return.
const SystemPrompt = `You are a professional nutritionist and meal prep expert. Generate detailed, practical weekly meal prep plans that are:
- Nutritionally balanced and aligned with fitness goals
- Realistic for meal prep (can be prepared in advance)
- Include specific recipes with ingredients and instructions
- Provide accurate macronutrient information
- Include shopping lists and prep tips

Return your response as a valid JSON object matching this structure:
{
  "weekStartDate": "YYYY-MM-DD",
  "days": [
    {
      "day": "Monday",
      "breakfast": {
        "name": "Meal name",
        "calories": number,
        "protein": number (grams),
        "carbs": number (grams),
        "fats": number (grams),
        "ingredients": ["ingredient1", "ingredient2"],
        "prepTime": number (minutes),
        "instructions": ["step1", "step2"]
      },
      "lunch": { ... },
      "dinner": { ... },
      "snacks": [{ ... }] (optional),
      "totalCalories": number,
      "totalProtein": number,
      "totalCarbs": number,
      "totalFats": number
    }
  ],
  "weeklyTotals": {
    "totalCalories": number,
    "totalProtein": number,
    "totalCarbs": number,
    "totalFats": number
  },
  "shoppingList": ["item1", "item2"],
  "prepTips": ["tip1", "tip2"]
}`

// UserPrompt renders the caller's preferences as the user instruction.
func UserPrompt(req model.PlanRequest) string {
	var b strings.Builder

	b.WriteString("Generate a weekly meal prep plan with the following requirements:\n")
	fmt.Fprintf(&b, "- Daily calorie target: %d calories\n", req.DailyCalories)
	fmt.Fprintf(&b, "- Fitness goal: %s\n", req.FitnessGoal)

	if len(req.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "- Dietary restrictions: %s\n", strings.Join(req.DietaryRestrictions, ", "))
	} else {
		b.WriteString("- No specific dietary restrictions\n")
	}

	if len(req.MealPreferences) > 0 {
		fmt.Fprintf(&b, "- Meal preferences: %s\n", strings.Join(req.MealPreferences, ", "))
	} else {
		b.WriteString("- No specific meal preferences\n")
	}

	b.WriteString("\nMake sure the daily totals are close to the calorie target (within 100 calories). Include variety throughout the week.")

	return b.String()
}
