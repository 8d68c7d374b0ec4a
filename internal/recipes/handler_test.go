package recipes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/recipe-catalog/backend/internal/auth"
	"github.com/ayush/recipe-catalog/backend/internal/models"
)

// fakeRecipeStore is an in-memory RecipeStore keyed by ObjectID hex.
type fakeRecipeStore struct {
	byID map[string]*models.Recipe
	err  error
}

func newFakeRecipeStore() *fakeRecipeStore {
	return &fakeRecipeStore{byID: map[string]*models.Recipe{}}
}

func (f *fakeRecipeStore) Insert(_ context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	recipe.ID = primitive.NewObjectID()
	recipe.CreatedAt = time.Now()
	copied := *recipe
	f.byID[recipe.ID.Hex()] = &copied
	return recipe, nil
}

func (f *fakeRecipeStore) List(_ context.Context) ([]models.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Recipe
	for _, r := range f.byID {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRecipeStore) GetByID(_ context.Context, id string) (*models.Recipe, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRecipeStore) Replace(_ context.Context, id string, recipe *models.Recipe) (*models.Recipe, error) {
	if _, ok := f.byID[id]; !ok {
		return nil, models.ErrNotFound
	}
	oid, _ := primitive.ObjectIDFromHex(id)
	recipe.ID = oid
	copied := *recipe
	f.byID[id] = &copied
	return recipe, nil
}

func (f *fakeRecipeStore) Delete(_ context.Context, id string) (*models.Recipe, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(f.byID, id)
	return r, nil
}

func (f *fakeRecipeStore) SetImage(_ context.Context, id, imageKey, imageURL string) error {
	r, ok := f.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	r.ImageKey = imageKey
	r.ImageURL = imageURL
	return nil
}

func (f *fakeRecipeStore) CountByCategory(_ context.Context) (int, map[string]int, error) {
	byCategory := map[string]int{}
	total := 0
	for _, r := range f.byID {
		byCategory[r.Category]++
		total++
	}
	return total, byCategory, nil
}

type fakeDirectory struct {
	summaries             map[string]models.UserSummary
	total, admins, active int
}

func (f *fakeDirectory) GetUsersByIDs(_ context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := map[string]models.UserSummary{}
	for _, id := range ids {
		if s, ok := f.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeDirectory) UserStats(_ context.Context) (int, int, int, error) {
	return f.total, f.admins, f.active, nil
}

type fakeImageStore struct {
	objects map[string][]byte
	types   map[string]string
	removed []string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeImageStore) PutImage(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeImageStore) GetImage(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", models.ErrNotFound
	}
	return data, f.types[key], nil
}

func (f *fakeImageStore) RemoveImage(_ context.Context, key string) error {
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

type env struct {
	store  *fakeRecipeStore
	users  *fakeDirectory
	images *fakeImageStore
	router *chi.Mux
}

func newEnv() *env {
	e := &env{
		store:  newFakeRecipeStore(),
		users:  &fakeDirectory{summaries: map[string]models.UserSummary{}},
		images: newFakeImageStore(),
	}
	h := NewHandler(e.store, e.users, e.images)

	r := chi.NewRouter()
	r.Get("/api/recipes", h.List)
	r.Post("/api/recipes", h.Create)
	r.Get("/api/recipes/{id}", h.Get)
	r.Put("/api/recipes/{id}", h.Update)
	r.Delete("/api/recipes/{id}", h.Delete)
	r.Get("/api/recipes/{id}/image", h.DownloadImage)
	r.Post("/api/recipes/{id}/image", h.UploadImage)
	r.Get("/api/admin/dashboard", h.Dashboard)
	e.router = r
	return e
}

func validInput() models.RecipeInput {
	return models.RecipeInput{
		Title:       "Masala Chai",
		Description: "Spiced tea",
		Ingredients: []string{"tea", "milk", "cardamom"},
		Steps:       []string{"boil", "strain"},
		CookingTime: 10,
		Servings:    2,
		Category:    "Beverage",
	}
}

func (e *env) do(t *testing.T, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func adminClaims() *auth.Claims {
	return &auth.Claims{UserID: "admin-1", Email: "admin@x.com", Role: models.RoleAdmin}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreate_RoundTrip(t *testing.T) {
	e := newEnv()
	e.users.summaries["admin-1"] = models.UserSummary{ID: "admin-1", Name: "Admin", Email: "admin@x.com"}

	rec := e.do(t, http.MethodPost, "/api/recipes", validInput(), adminClaims())
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Recipe added successfully", body["message"])
	created := body["recipe"].(map[string]interface{})
	id := created["id"].(string)
	assert.Equal(t, models.DifficultyMedium, created["difficulty"], "difficulty defaults to Medium")
	assert.Equal(t, "admin-1", created["createdBy"])
	assert.NotEmpty(t, created["createdAt"])

	got := e.do(t, http.MethodGet, "/api/recipes/"+id, nil, nil)
	require.Equal(t, http.StatusOK, got.Code)
	var fetched models.Recipe
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &fetched))
	assert.Equal(t, "Masala Chai", fetched.Title)
	assert.Equal(t, []string{"tea", "milk", "cardamom"}, fetched.Ingredients)
	assert.Equal(t, 10, fetched.CookingTime)
	assert.Equal(t, "admin-1", fetched.CreatedBy)
	require.NotNil(t, fetched.Creator)
	assert.Equal(t, "Admin", fetched.Creator.Name)
}

func TestCreate_MissingFields(t *testing.T) {
	e := newEnv()
	input := validInput()
	input.Ingredients = nil

	rec := e.do(t, http.MethodPost, "/api/recipes", input, adminClaims())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide all required fields", decode(t, rec)["message"])
}

func TestCreate_NegativeDurations(t *testing.T) {
	e := newEnv()
	input := validInput()
	input.CookingTime = -5

	rec := e.do(t, http.MethodPost, "/api/recipes", input, adminClaims())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_BadDifficulty(t *testing.T) {
	e := newEnv()
	input := validInput()
	input.Difficulty = "Impossible"

	rec := e.do(t, http.MethodPost, "/api/recipes", input, adminClaims())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_NotFound(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodGet, "/api/recipes/"+primitive.NewObjectID().Hex(), nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Recipe not found"}`, rec.Body.String())
}

func TestList_AnnotatesCreator(t *testing.T) {
	e := newEnv()
	e.users.summaries["u1"] = models.UserSummary{ID: "u1", Name: "Asha", Email: "asha@x.com"}
	e.store.Insert(context.Background(), &models.Recipe{Title: "Dal", Category: "Curry", CreatedBy: "u1"})
	e.store.Insert(context.Background(), &models.Recipe{Title: "Soup", Category: "Starter", CreatedBy: "ghost"})

	rec := e.do(t, http.MethodGet, "/api/recipes", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, r := range list {
		switch r.Title {
		case "Dal":
			require.NotNil(t, r.Creator)
			assert.Equal(t, "asha@x.com", r.Creator.Email)
		case "Soup":
			assert.Nil(t, r.Creator, "unknown creator stays unannotated")
		}
	}
}

func TestUpdate_FullReplace(t *testing.T) {
	e := newEnv()
	orig := &models.Recipe{Title: "Dal", Description: "old", Ingredients: []string{"lentils"},
		Steps: []string{"cook"}, CookingTime: 30, Servings: 4, Category: "Curry",
		Difficulty: models.DifficultyEasy, CreatedBy: "u1"}
	e.store.Insert(context.Background(), orig)
	id := orig.ID.Hex()
	createdAt := e.store.byID[id].CreatedAt

	input := validInput()
	rec := e.do(t, http.MethodPut, "/api/recipes/"+id, input, adminClaims())
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Recipe updated successfully", body["message"])
	updated := e.store.byID[id]
	assert.Equal(t, "Masala Chai", updated.Title)
	assert.Equal(t, "u1", updated.CreatedBy, "ownership survives replace")
	assert.Equal(t, createdAt, updated.CreatedAt, "creation time survives replace")
}

func TestUpdate_ValidatesLikeCreate(t *testing.T) {
	e := newEnv()
	orig := &models.Recipe{Title: "Dal", Category: "Curry"}
	e.store.Insert(context.Background(), orig)

	input := validInput()
	input.Title = ""
	rec := e.do(t, http.MethodPut, "/api/recipes/"+orig.ID.Hex(), input, adminClaims())

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdate_NotFound(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodPut, "/api/recipes/"+primitive.NewObjectID().Hex(), validInput(), adminClaims())

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete_ReturnsSnapshotAndCleansImage(t *testing.T) {
	e := newEnv()
	orig := &models.Recipe{Title: "Dal", Category: "Curry", ImageKey: "recipes/x/img"}
	e.store.Insert(context.Background(), orig)
	e.images.objects["recipes/x/img"] = []byte("png")
	id := orig.ID.Hex()

	rec := e.do(t, http.MethodDelete, "/api/recipes/"+id, nil, adminClaims())
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	deleted := body["recipe"].(map[string]interface{})
	assert.Equal(t, "Dal", deleted["title"])
	assert.Contains(t, e.images.removed, "recipes/x/img")

	again := e.do(t, http.MethodDelete, "/api/recipes/"+id, nil, adminClaims())
	require.Equal(t, http.StatusNotFound, again.Code)
	assert.Equal(t, "Recipe not found or already deleted", decode(t, again)["message"])
}

func TestDashboard_Invariants(t *testing.T) {
	e := newEnv()
	e.users.total, e.users.admins, e.users.active = 5, 2, 4
	e.store.Insert(context.Background(), &models.Recipe{Title: "a", Category: "Curry"})
	e.store.Insert(context.Background(), &models.Recipe{Title: "b", Category: "Curry"})
	e.store.Insert(context.Background(), &models.Recipe{Title: "c", Category: "Dessert"})

	rec := e.do(t, http.MethodGet, "/api/admin/dashboard", nil, adminClaims())
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 5, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalAdmins)
	assert.Equal(t, 3, stats.TotalRecipes)

	sum := 0
	for _, n := range stats.RecipesByCategory {
		sum += n
	}
	assert.Equal(t, stats.TotalRecipes, sum)
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	e := newEnv()
	orig := &models.Recipe{Title: "Dal", Category: "Curry"}
	e.store.Insert(context.Background(), orig)

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/"+orig.ID.Hex()+"/image", bytes.NewReader([]byte("nope")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAndDownloadImage(t *testing.T) {
	e := newEnv()
	orig := &models.Recipe{Title: "Dal", Category: "Curry"}
	e.store.Insert(context.Background(), orig)
	id := orig.ID.Hex()

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/"+id+"/image", bytes.NewReader([]byte("fake-png")))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/recipes/"+id+"/image", decode(t, rec)["imageUrl"])
	assert.Equal(t, "/api/recipes/"+id+"/image", e.store.byID[id].ImageURL)

	down := e.do(t, http.MethodGet, "/api/recipes/"+id+"/image", nil, nil)
	require.Equal(t, http.StatusOK, down.Code)
	assert.Equal(t, "image/png", down.Header().Get("Content-Type"))
	assert.Equal(t, "fake-png", down.Body.String())
}

func TestDownloadImage_NoneStored(t *testing.T) {
	e := newEnv()
	orig := &models.Recipe{Title: "Dal", Category: "Curry"}
	e.store.Insert(context.Background(), orig)

	rec := e.do(t, http.MethodGet, "/api/recipes/"+orig.ID.Hex()+"/image", nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
