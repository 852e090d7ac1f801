package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/auth"
	"github.com/sakif/meal-planner/internal/service"
	"github.com/sakif/meal-planner/internal/validate"
)

const (
	msgGenerateFailed = "Failed to generate meal plan"
	msgFetchFailed    = "Failed to fetch meal plan"
	msgPlanNotFound   = "Meal plan not found"
)

// MealPlanHandler serves plan generation, retrieval and the derived views.
//
// Every read goes through MealPlanService.LatestPlan, so the signed-in
// user's own plan takes precedence over the session in the URL.
type MealPlanHandler struct {
	plans  *service.MealPlanService
	logger *slog.Logger
}

func NewMealPlanHandler(plans *service.MealPlanService, logger *slog.Logger) *MealPlanHandler {
	return &MealPlanHandler{plans: plans, logger: logger}
}

type generateResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"sessionId"`
	MealPlan  json.RawMessage `json:"mealPlan"`
}

type planResponse struct {
	Success  bool            `json:"success"`
	MealPlan json.RawMessage `json:"mealPlan"`
}

type groceryResponse struct {
	Success bool `json:"success"`
	*service.GroceryList
}

type nutritionResponse struct {
	Success bool `json:"success"`
	*service.NutritionReport
}

type historyResponse struct {
	Success bool                  `json:"success"`
	Plans   []service.PlanSummary `json:"plans"`
}

// HandleGenerate produces, stores and returns a new weekly plan.
//
// HTTP: POST /meal-plan/generate
// Body: {"dailyCalories": 2000, "fitnessGoal": "maintenance", ...}
func (h *MealPlanHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var in validate.PlanGeneration
	if err := validate.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &in); err != nil {
		writeError(w, h.logger, err, msgGenerateFailed)
		return
	}

	res, err := h.plans.Generate(r.Context(), in, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, msgGenerateFailed)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{Success: true, SessionID: res.SessionID, MealPlan: res.MealPlan})
}

// HandleMine returns the caller's latest plan. Mounted behind RequireAuth.
//
// HTTP: GET /meal-plan/me
func (h *MealPlanHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	record, err := h.plans.LatestPlan(r.Context(), "", auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Success: true, MealPlan: record.Plan})
}

// HandleBySession returns the latest plan for the session in the path.
//
// HTTP: GET /meal-plan/{sessionId}
func (h *MealPlanHandler) HandleBySession(w http.ResponseWriter, r *http.Request) {
	record, err := h.plans.LatestPlan(r.Context(), chi.URLParam(r, "sessionId"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Success: true, MealPlan: record.Plan})
}

// HandleGroceryList returns the shopping list of the resolved plan.
//
// HTTP: GET /meal-plan/{sessionId}/grocery-list
func (h *MealPlanHandler) HandleGroceryList(w http.ResponseWriter, r *http.Request) {
	list, err := h.plans.GroceryList(r.Context(), chi.URLParam(r, "sessionId"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groceryResponse{Success: true, GroceryList: list})
}

// HandleNutrition returns per-day and weekly macro totals of the resolved plan.
//
// HTTP: GET /meal-plan/{sessionId}/nutrition
func (h *MealPlanHandler) HandleNutrition(w http.ResponseWriter, r *http.Request) {
	report, err := h.plans.Nutrition(r.Context(), chi.URLParam(r, "sessionId"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nutritionResponse{Success: true, NutritionReport: report})
}

// HandleHistory lists the caller's plans, newest first. Mounted behind RequireAuth.
//
// HTTP: GET /meal-plan/history?limit=20&offset=0
func (h *MealPlanHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err, msgFetchFailed)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.logger, err, msgFetchFailed)
		return
	}

	plans, err := h.plans.History(r.Context(), auth.UserIDFromContext(r.Context()), limit, offset)
	if err != nil {
		writeError(w, h.logger, err, msgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Plans: plans})
}

// writeLookupError answers absence with a plain 404; it is not an error
// worth logging.
func (h *MealPlanHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, msgPlanNotFound)
		return
	}
	writeError(w, h.logger, err, msgFetchFailed)
}

// queryInt reads a non-negative integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}
