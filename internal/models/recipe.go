package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty labels for a recipe.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Recipe is a single dish stored in MongoDB. CreatedBy holds the creating
// user's id; Creator is resolved from PostgreSQL at read time and never
// stored.
type Recipe struct {
	ID          primitive.ObjectID `json:"id"                 bson:"_id,omitempty"`
	Title       string             `json:"title"              bson:"title"`
	Description string             `json:"description"        bson:"description"`
	Ingredients []string           `json:"ingredients"        bson:"ingredients"`
	Steps       []string           `json:"steps"              bson:"steps"`
	CookingTime int                `json:"cookingTime"        bson:"cooking_time"`
	Servings    int                `json:"servings"           bson:"servings"`
	Category    string             `json:"category"           bson:"category"`
	Difficulty  string             `json:"difficulty"         bson:"difficulty"`
	ImageURL    string             `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	ImageKey    string             `json:"-"                  bson:"image_key,omitempty"`
	CreatedBy   string             `json:"createdBy"          bson:"created_by"`
	Creator     *UserSummary       `json:"creator,omitempty"  bson:"-"`
	CreatedAt   time.Time          `json:"createdAt"          bson:"created_at"`
}

// RecipeInput is the JSON body for POST /api/recipes and PUT /api/recipes/{id}.
type RecipeInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	CookingTime int      `json:"cookingTime"`
	Servings    int      `json:"servings"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
	ImageURL    string   `json:"imageUrl"`
}

// DashboardStats is the admin dashboard aggregate, recomputed on every call.
type DashboardStats struct {
	TotalUsers        int            `json:"totalUsers"`
	TotalAdmins       int            `json:"totalAdmins"`
	ActiveUsers       int            `json:"activeUsers"`
	TotalRecipes      int            `json:"totalRecipes"`
	RecipesByCategory map[string]int `json:"recipesByCategory"`
}
