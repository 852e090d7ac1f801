package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/model"
	"github.com/sakif/meal-planner/internal/repository"
)

type preferencesDoc struct {
	ID                  primitive.ObjectID  `bson:"_id"`
	SessionID           string              `bson:"session_id"`
	UserID              *primitive.ObjectID `bson:"user_id,omitempty"`
	DailyCalories       int                 `bson:"daily_calories"`
	FitnessGoal         string              `bson:"fitness_goal"`
	DietaryRestrictions []string            `bson:"dietary_restrictions"`
	MealPreferences     []string            `bson:"meal_preferences"`
	CreatedAt           time.Time           `bson:"created_at"`
}

// planDoc stores the plan as an ordered document so field order survives.
type planDoc struct {
	ID            primitive.ObjectID  `bson:"_id"`
	SessionID     string              `bson:"session_id"`
	UserID        *primitive.ObjectID `bson:"user_id,omitempty"`
	WeekStartDate string              `bson:"week_start_date"`
	PlanData      bson.D              `bson:"plan_data"`
	CreatedAt     time.Time           `bson:"created_at"`
}

// latestFirst orders by creation time; ObjectIDs break ties in insertion order.
var latestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ownerID converts a user id to its stored form. "" means a guest.
func ownerID(userID string) (*primitive.ObjectID, error) {
	if userID == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("mongo: invalid user id %q: %w", userID, err)
	}
	return &oid, nil
}

func (s *Store) SavePreferences(ctx context.Context, p *model.MealPreferences) error {
	owner, err := ownerID(p.UserID)
	if err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	if p.MealPreferences == nil {
		p.MealPreferences = []string{}
	}

	doc := preferencesDoc{
		ID:                  primitive.NewObjectID(),
		SessionID:           p.SessionID,
		UserID:              owner,
		DailyCalories:       p.DailyCalories,
		FitnessGoal:         p.FitnessGoal,
		DietaryRestrictions: p.DietaryRestrictions,
		MealPreferences:     p.MealPreferences,
		CreatedAt:           p.CreatedAt,
	}
	if _, err := s.preferences.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting preferences for session %s: %w", p.SessionID, err)
	}

	p.ID = doc.ID.Hex()
	return nil
}

func (s *Store) SavePlan(ctx context.Context, p *model.MealPlanRecord) error {
	owner, err := ownerID(p.UserID)
	if err != nil {
		return err
	}

	// Relaxed extended JSON reads plain JSON as-is.
	var data bson.D
	if err := bson.UnmarshalExtJSON(p.Plan, false, &data); err != nil {
		return fmt.Errorf("mongo: plan for session %s is not a JSON object: %w", p.SessionID, err)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	doc := planDoc{
		ID:            primitive.NewObjectID(),
		SessionID:     p.SessionID,
		UserID:        owner,
		WeekStartDate: p.WeekStartDate,
		PlanData:      data,
		CreatedAt:     p.CreatedAt,
	}
	if _, err := s.plans.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting plan for session %s: %w", p.SessionID, err)
	}

	p.ID = doc.ID.Hex()
	return nil
}

func (s *Store) LatestPlanByUser(ctx context.Context, userID string) (*model.MealPlanRecord, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperror.NotFound("meal plan for user", userID)
	}
	return s.latestPlan(ctx, bson.M{"user_id": oid}, "meal plan for user", userID)
}

func (s *Store) LatestPlanBySession(ctx context.Context, sessionID string) (*model.MealPlanRecord, error) {
	return s.latestPlan(ctx, bson.M{"session_id": sessionID}, "meal plan for session", sessionID)
}

func (s *Store) latestPlan(ctx context.Context, filter bson.M, resource, key string) (*model.MealPlanRecord, error) {
	var doc planDoc
	err := s.plans.FindOne(ctx, filter, options.FindOne().SetSort(latestFirst)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("mongo: finding %s %s: %w", resource, key, err)
	}
	return doc.toModel()
}

func (s *Store) ListPlansByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.MealPlanRecord, error) {
	plans := []model.MealPlanRecord{}

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return plans, nil
	}

	cur, err := s.plans.Find(ctx, bson.M{"user_id": oid}, options.Find().
		SetSort(latestFirst).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing plans for user %s: %w", userID, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc planDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding plan: %w", err)
		}
		p, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating plans: %w", err)
	}
	return plans, nil
}

func (d *planDoc) toModel() (*model.MealPlanRecord, error) {
	raw, err := bson.MarshalExtJSON(d.PlanData, false, false)
	if err != nil {
		return nil, fmt.Errorf("mongo: encoding plan %s: %w", d.ID.Hex(), err)
	}

	p := &model.MealPlanRecord{
		ID:            d.ID.Hex(),
		SessionID:     d.SessionID,
		WeekStartDate: d.WeekStartDate,
		Plan:          json.RawMessage(raw),
		CreatedAt:     d.CreatedAt.UTC(),
	}
	if d.UserID != nil {
		p.UserID = d.UserID.Hex()
	}
	return p, nil
}
