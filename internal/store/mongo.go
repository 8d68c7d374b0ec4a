package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/recipe-catalog/backend/internal/models"
)

// MongoStore handles recipe document CRUD in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("recipes")}
}

// Insert stores a new recipe and returns it with the generated id.
func (s *MongoStore) Insert(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	recipe.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("mongo insert: %w", err)
	}
	recipe.ID = res.InsertedID.(primitive.ObjectID)
	return recipe, nil
}

// List returns every recipe, newest first.
func (s *MongoStore) List(ctx context.Context) ([]models.Recipe, error) {
	return s.find(ctx, bson.M{})
}

// ListByCreator returns the recipes owned by the given user.
func (s *MongoStore) ListByCreator(ctx context.Context, userID string) ([]models.Recipe, error) {
	return s.find(ctx, bson.M{"created_by": userID})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.Recipe, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recipes []models.Recipe
	if err := cur.All(ctx, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// GetByID returns a single recipe. An unparseable or unknown id maps to
// models.ErrNotFound.
func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Recipe, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var recipe models.Recipe
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&recipe); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// Replace swaps the whole document and returns the post-update record.
// Concurrent replaces are last-write-wins; there is no version token.
func (s *MongoStore) Replace(ctx context.Context, id string, recipe *models.Recipe) (*models.Recipe, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	recipe.ID = oid
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var updated models.Recipe
	if err := s.col.FindOneAndReplace(ctx, bson.M{"_id": oid}, recipe, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

// Delete removes a recipe and returns the deleted snapshot.
func (s *MongoStore) Delete(ctx context.Context, id string) (*models.Recipe, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var deleted models.Recipe
	if err := s.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&deleted); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &deleted, nil
}

// SetImage points the recipe at its stored image object.
func (s *MongoStore) SetImage(ctx context.Context, id, imageKey, imageURL string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"image_key": imageKey, "image_url": imageURL}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountByCategory aggregates the total recipe count and a per-category
// breakdown, recomputed from the collection on every call.
func (s *MongoStore) CountByCategory(ctx context.Context) (int, map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, nil, err
	}
	defer cur.Close(ctx)

	total := 0
	byCategory := map[string]int{}
	for cur.Next(ctx) {
		var group struct {
			Category string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cur.Decode(&group); err != nil {
			return 0, nil, err
		}
		byCategory[group.Category] = group.Count
		total += group.Count
	}
	return total, byCategory, cur.Err()
}
