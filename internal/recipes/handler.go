package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayush/recipe-catalog/backend/internal/auth"
	"github.com/ayush/recipe-catalog/backend/internal/httpx"
	"github.com/ayush/recipe-catalog/backend/internal/models"
)

// RecipeStore defines the interface for recipe persistence.
type RecipeStore interface {
	Insert(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error)
	List(ctx context.Context) ([]models.Recipe, error)
	GetByID(ctx context.Context, id string) (*models.Recipe, error)
	Replace(ctx context.Context, id string, recipe *models.Recipe) (*models.Recipe, error)
	Delete(ctx context.Context, id string) (*models.Recipe, error)
	SetImage(ctx context.Context, id, imageKey, imageURL string) error
	CountByCategory(ctx context.Context) (int, map[string]int, error)
}

// UserDirectory resolves creator summaries and user counts from the user
// store.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
	UserStats(ctx context.Context) (total, admins, active int, err error)
}

// ImageStore defines the interface for image object storage.
type ImageStore interface {
	PutImage(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	GetImage(ctx context.Context, key string) ([]byte, string, error)
	RemoveImage(ctx context.Context, key string) error
}

// Handler holds recipe HTTP handlers.
type Handler struct {
	store  RecipeStore
	users  UserDirectory
	images ImageStore
}

func NewHandler(store RecipeStore, users UserDirectory, images ImageStore) *Handler {
	return &Handler{store: store, users: users, images: images}
}

// validate checks the mandatory recipe fields and applies the difficulty
// default. Returns a user-facing message when the input is rejected.
func validate(in *models.RecipeInput) string {
	if in.Title == "" || in.Description == "" || len(in.Ingredients) == 0 ||
		len(in.Steps) == 0 || in.Category == "" || in.CookingTime == 0 || in.Servings == 0 {
		return "Please provide all required fields"
	}
	if in.CookingTime < 0 || in.Servings < 0 {
		return "Cooking time and servings must be positive"
	}
	switch in.Difficulty {
	case "":
		in.Difficulty = models.DifficultyMedium
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return "Difficulty must be Easy, Medium, or Hard"
	}
	return ""
}

// annotate attaches creator name/email summaries to the given recipes.
func (h *Handler) annotate(ctx context.Context, recipes []models.Recipe) error {
	seen := map[string]bool{}
	var ids []string
	for _, r := range recipes {
		if r.CreatedBy != "" && !seen[r.CreatedBy] {
			seen[r.CreatedBy] = true
			ids = append(ids, r.CreatedBy)
		}
	}
	creators, err := h.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range recipes {
		if summary, ok := creators[recipes[i].CreatedBy]; ok {
			recipes[i].Creator = &summary
		}
	}
	return nil
}

// Create stores a new recipe owned by the calling admin.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	var input models.RecipeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validate(&input); msg != "" {
		httpx.WriteMessage(w, http.StatusBadRequest, msg)
		return
	}

	recipe := &models.Recipe{
		Title:       input.Title,
		Description: input.Description,
		Ingredients: input.Ingredients,
		Steps:       input.Steps,
		CookingTime: input.CookingTime,
		Servings:    input.Servings,
		Category:    input.Category,
		Difficulty:  input.Difficulty,
		ImageURL:    input.ImageURL,
		CreatedBy:   claims.UserID,
	}

	saved, err := h.store.Insert(r.Context(), recipe)
	if err != nil {
		log.Error().Err(err).Msg("recipe insert failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	saved.Creator = &models.UserSummary{ID: claims.UserID, Email: claims.Email}
	if creators, err := h.users.GetUsersByIDs(r.Context(), []string{claims.UserID}); err == nil {
		if summary, ok := creators[claims.UserID]; ok {
			saved.Creator = &summary
		}
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Recipe added successfully",
		"recipe":  saved,
	})
}

// List returns every recipe with its creator annotation. Public.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("recipe list failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	if err := h.annotate(r.Context(), recipes); err != nil {
		log.Error().Err(err).Msg("creator annotation failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recipes)
}

// Get returns a single recipe. Public.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipe, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Recipe not found")
			return
		}
		log.Error().Err(err).Str("recipe_id", id).Msg("recipe lookup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	view := []models.Recipe{*recipe}
	if err := h.annotate(r.Context(), view); err != nil {
		log.Error().Err(err).Str("recipe_id", id).Msg("creator annotation failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view[0])
}

// Update replaces every mutable field, with the same validation as Create.
// Ownership and creation time are preserved; concurrent updates are
// last-write-wins.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input models.RecipeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validate(&input); msg != "" {
		httpx.WriteMessage(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Recipe not found")
			return
		}
		log.Error().Err(err).Str("recipe_id", id).Msg("recipe lookup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	replacement := &models.Recipe{
		Title:       input.Title,
		Description: input.Description,
		Ingredients: input.Ingredients,
		Steps:       input.Steps,
		CookingTime: input.CookingTime,
		Servings:    input.Servings,
		Category:    input.Category,
		Difficulty:  input.Difficulty,
		ImageURL:    input.ImageURL,
		ImageKey:    existing.ImageKey,
		CreatedBy:   existing.CreatedBy,
		CreatedAt:   existing.CreatedAt,
	}
	if replacement.ImageURL == "" {
		replacement.ImageURL = existing.ImageURL
	}

	updated, err := h.store.Replace(r.Context(), id, replacement)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Recipe not found")
			return
		}
		log.Error().Err(err).Str("recipe_id", id).Msg("recipe update failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Recipe updated successfully",
		"recipe":  updated,
	})
}

// Delete removes a recipe, returning the deleted snapshot, and cleans up its
// image object.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Recipe not found or already deleted")
			return
		}
		log.Error().Err(err).Str("recipe_id", id).Msg("recipe delete failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	if deleted.ImageKey != "" {
		if err := h.images.RemoveImage(r.Context(), deleted.ImageKey); err != nil {
			log.Warn().Err(err).Str("recipe_id", id).Msg("image cleanup failed")
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Recipe deleted successfully",
		"recipe":  deleted,
	})
}

// Dashboard computes the admin aggregate from a fresh scan of both stores.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	totalUsers, totalAdmins, activeUsers, err := h.users.UserStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("user stats failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	totalRecipes, byCategory, err := h.store.CountByCategory(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("recipe stats failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.DashboardStats{
		TotalUsers:        totalUsers,
		TotalAdmins:       totalAdmins,
		ActiveUsers:       activeUsers,
		TotalRecipes:      totalRecipes,
		RecipesByCategory: byCategory,
	})
}

// UploadImage stores a recipe image and points the recipe at it. The previous
// image object, if any, is removed.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		httpx.WriteMessage(w, http.StatusBadRequest, "Only image uploads are allowed")
		return
	}

	recipe, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.WriteMessage(w, http.StatusNotFound, "Recipe not found")
			return
		}
		log.Error().Err(err).Str("recipe_id", id).Msg("recipe lookup failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	key := fmt.Sprintf("recipes/%s/%s", id, uuid.New().String())
	if err := h.images.PutImage(r.Context(), key, r.Body, r.ContentLength, contentType); err != nil {
		log.Error().Err(err).Str("recipe_id", id).Msg("image upload failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	imageURL := fmt.Sprintf("/api/recipes/%s/image", id)
	if err := h.store.SetImage(r.Context(), id, key, imageURL); err != nil {
		log.Error().Err(err).Str("recipe_id", id).Msg("image reference update failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	if recipe.ImageKey != "" && recipe.ImageKey != key {
		if err := h.images.RemoveImage(r.Context(), recipe.ImageKey); err != nil {
			log.Warn().Err(err).Str("recipe_id", id).Msg("stale image cleanup failed")
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message":  "Image uploaded successfully",
		"imageUrl": imageURL,
	})
}

// DownloadImage streams a recipe's image. Public.
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipe, err := h.store.GetByID(r.Context(), id)
	if err != nil || recipe.ImageKey == "" {
		httpx.WriteMessage(w, http.StatusNotFound, "Image not found")
		return
	}

	data, contentType, err := h.images.GetImage(r.Context(), recipe.ImageKey)
	if err != nil {
		log.Error().Err(err).Str("recipe_id", id).Msg("image download failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
