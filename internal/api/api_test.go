package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/forkfeed/backend/internal/api"
	"github.com/forkfeed/backend/internal/database"
	"github.com/forkfeed/backend/internal/models"
	"github.com/forkfeed/backend/internal/router"
	"github.com/forkfeed/backend/internal/service"
)

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	authService := service.NewAuthService(db, nil, "test-secret")
	imageService := service.NewImageService(t.TempDir(), nil)
	recipeService := service.NewRecipeService(db, imageService)
	followService := service.NewFollowService(db)
	catalogService := service.NewCatalogService(db)
	shoppingListService := service.NewShoppingListService(db)

	engine := router.SetupRouter(router.Handlers{
		Auth:    api.NewAuthHandler(authService, followService),
		Recipe:  api.NewRecipeHandler(recipeService, shoppingListService),
		Catalog: api.NewCatalogHandler(catalogService),
		Follow:  api.NewFollowHandler(followService),
	}, authService)

	return &testApp{engine: engine, db: db}
}

// do issues a JSON request against the in-memory router. A non-empty token is
// sent as a bearer token.
func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    username + "@example.com",
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testApp) createIngredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, a.db.Create(&ingredient).Error)
	return ingredient
}

func (a *testApp) createTag(t *testing.T, name, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Color: "#" + slug, Slug: slug}
	require.NoError(t, a.db.Create(&tag).Error)
	return tag
}

func decodeRecipe(t *testing.T, rec *httptest.ResponseRecorder) api.RecipeResponse {
	t.Helper()
	var resp api.RecipeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRegisterLoginMe(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")

	rec := app.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me api.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/users/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")
	flour := app.createIngredient(t, "Flour", "g")
	breakfast := app.createTag(t, "Breakfast", "breakfast")

	rec := app.do(t, http.MethodPost, "/api/v1/recipes", token, gin.H{
		"name":         "Pancakes",
		"text":         "Mix and fry.",
		"cooking_time": 20,
		"tags":         []string{breakfast.ID.String()},
		"ingredients": []gin.H{
			{"id": flour.ID.String(), "amount": 200},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeRecipe(t, rec)
	assert.Equal(t, "Pancakes", created.Name)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, "Flour", created.Ingredients[0].Name)

	// Anonymous readers see the recipe with both flags false.
	rec = app.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeRecipe(t, rec)
	assert.False(t, got.IsFavorited)
	assert.False(t, got.IsInShoppingCart)

	rec = app.do(t, http.MethodPut, "/api/v1/recipes/"+created.ID, token, gin.H{
		"name":         "Fluffy pancakes",
		"text":         "Mix well and fry.",
		"cooking_time": 25,
		"ingredients": []gin.H{
			{"id": flour.ID.String(), "amount": 250},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Fluffy pancakes", decodeRecipe(t, rec).Name)

	rec = app.do(t, http.MethodDelete, "/api/v1/recipes/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipeValidationError(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")
	flour := app.createIngredient(t, "Flour", "g")

	rec := app.do(t, http.MethodPost, "/api/v1/recipes", token, gin.H{
		"name":         "Bad",
		"text":         "Too quick.",
		"cooking_time": 0.5,
		"ingredients": []gin.H{
			{"id": flour.ID.String(), "amount": 100},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteForeignRecipeForbidden(t *testing.T) {
	app := newTestApp(t)
	aliceToken := app.register(t, "alice")
	bobToken := app.register(t, "bob")

	rec := app.do(t, http.MethodPost, "/api/v1/recipes", aliceToken, gin.H{
		"name":         "Alice's soup",
		"text":         "Simmer.",
		"cooking_time": 40,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeRecipe(t, rec)

	rec = app.do(t, http.MethodDelete, "/api/v1/recipes/"+created.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFavoriteAndCartEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")

	rec := app.do(t, http.MethodPost, "/api/v1/recipes", token, gin.H{
		"name":         "Salad",
		"text":         "Chop and toss.",
		"cooking_time": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeRecipe(t, rec)

	rec = app.do(t, http.MethodPost, "/api/v1/recipes/"+created.ID+"/favorite", token, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Favoriting twice is a validation failure.
	rec = app.do(t, http.MethodPost, "/api/v1/recipes/"+created.ID+"/favorite", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/recipes/"+created.ID+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/recipes/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeRecipe(t, rec)
	assert.True(t, got.IsFavorited)
	assert.True(t, got.IsInShoppingCart)

	rec = app.do(t, http.MethodDelete, "/api/v1/recipes/"+created.ID+"/favorite", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodDelete, "/api/v1/recipes/"+created.ID+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Removing again fails.
	rec = app.do(t, http.MethodDelete, "/api/v1/recipes/"+created.ID+"/favorite", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadShoppingCart(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")
	flour := app.createIngredient(t, "Flour", "g")

	for i, amount := range []float64{200, 100} {
		rec := app.do(t, http.MethodPost, "/api/v1/recipes", token, gin.H{
			"name":         fmt.Sprintf("Bake %d", i),
			"text":         "Bake it.",
			"cooking_time": 30,
			"ingredients": []gin.H{
				{"id": flour.ID.String(), "amount": amount},
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decodeRecipe(t, rec)

		rec = app.do(t, http.MethodPost, "/api/v1/recipes/"+created.ID+"/shopping_cart", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "shopping_list.txt")
	assert.Equal(t, "Flour : 300 g\n", rec.Body.String())
}

func TestDownloadEmptyCart(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")

	rec := app.do(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestListRecipesTagFilter(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")
	breakfast := app.createTag(t, "Breakfast", "breakfast")
	dinner := app.createTag(t, "Dinner", "dinner")

	for name, tag := range map[string]models.Tag{"Omelette": breakfast, "Stew": dinner} {
		rec := app.do(t, http.MethodPost, "/api/v1/recipes", token, gin.H{
			"name":         name,
			"text":         "Cook.",
			"cooking_time": 15,
			"tags":         []string{tag.ID.String()},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(t, http.MethodGet, "/api/v1/recipes?tags=breakfast", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Recipes []api.RecipeResponse `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Recipes, 1)
	assert.Equal(t, "Omelette", resp.Recipes[0].Name)
}

func TestListRecipesRejectsMalformedPagination(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/v1/recipes?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/recipes?offset=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionsRejectsMalformedRecipesLimit(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "alice")

	rec := app.do(t, http.MethodGet, "/api/v1/users/subscriptions?recipes_limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeFlow(t *testing.T) {
	app := newTestApp(t)
	aliceToken := app.register(t, "alice")
	app.register(t, "bob")

	var bob models.User
	require.NoError(t, app.db.Where("username = ?", "bob").First(&bob).Error)

	rec := app.do(t, http.MethodPost, "/api/v1/users/"+bob.ID.String()+"/subscribe", aliceToken, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/v1/users/"+bob.ID.String(), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile api.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.True(t, profile.IsSubscribed)

	rec = app.do(t, http.MethodGet, "/api/v1/users/subscriptions", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var subs struct {
		Subscriptions []api.SubscriptionResponse `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs.Subscriptions, 1)
	assert.Equal(t, "bob", subs.Subscriptions[0].Username)

	rec = app.do(t, http.MethodDelete, "/api/v1/users/"+bob.ID.String()+"/subscribe", aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.createTag(t, "Breakfast", "breakfast")
	app.createIngredient(t, "Flour", "g")
	app.createIngredient(t, "Milk", "ml")

	rec := app.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tags []api.TagResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "breakfast", tags[0].Slug)

	rec = app.do(t, http.MethodGet, "/api/v1/ingredients?name=fl", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ingredients []api.IngredientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingredients))
	require.Len(t, ingredients, 1)
	assert.Equal(t, "Flour", ingredients[0].Name)
}
