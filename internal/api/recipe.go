package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkfeed/backend/internal/models"
	"github.com/forkfeed/backend/internal/service"
)

type RecipeHandler struct {
	recipeService       *service.RecipeService
	shoppingListService *service.ShoppingListService
}

func NewRecipeHandler(recipeService *service.RecipeService, shoppingListService *service.ShoppingListService) *RecipeHandler {
	return &RecipeHandler{
		recipeService:       recipeService,
		shoppingListService: shoppingListService,
	}
}

type recipeRequest struct {
	Name        string  `json:"name" binding:"required"`
	Text        string  `json:"text" binding:"required"`
	Image       string  `json:"image"`
	CookingTime float64 `json:"cooking_time" binding:"required"`
	Tags        []string `json:"tags"`
	Ingredients []struct {
		ID     string  `json:"id" binding:"required"`
		Amount float64 `json:"amount"`
	} `json:"ingredients"`
}

func (r recipeRequest) toInput() (service.RecipeInput, error) {
	in := service.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
	for _, raw := range r.Tags {
		id, err := uuid.Parse(raw)
		if err != nil {
			return in, err
		}
		in.TagIDs = append(in.TagIDs, id)
	}
	for _, line := range r.Ingredients {
		id, err := uuid.Parse(line.ID)
		if err != nil {
			return in, err
		}
		in.Ingredients = append(in.Ingredients, service.IngredientLineInput{
			IngredientID: id,
			Amount:       line.Amount,
		})
	}
	return in, nil
}

// ListRecipes returns filtered recipes annotated for the viewer. Supported
// query parameters: tags (repeatable slug), author, is_favorited,
// is_in_shopping_cart, limit, offset.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter := service.RecipeFilter{
		TagSlugs:      c.QueryArray("tags"),
		FavoritedOnly: queryFlag(c, "is_favorited"),
		InCartOnly:    queryFlag(c, "is_in_shopping_cart"),
	}

	if author := c.Query("author"); author != "" {
		id, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
			return
		}
		filter.AuthorID = &id
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		filter.Offset = n
	}

	details, err := h.recipeService.ListRecipes(c.Request.Context(), viewerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	recipes := make([]RecipeResponse, len(details))
	for i, d := range details {
		recipes[i] = newRecipeResponse(d)
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	detail, err := h.recipeService.GetRecipe(c.Request.Context(), viewerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRecipeResponse(*detail))
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id in request"})
		return
	}

	detail, err := h.recipeService.CreateRecipe(c.Request.Context(), *viewerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRecipeResponse(*detail))
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id in request"})
		return
	}

	detail, err := h.recipeService.UpdateRecipe(c.Request.Context(), *viewerID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRecipeResponse(*detail))
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	if err := h.recipeService.DeleteRecipe(c.Request.Context(), *viewerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *RecipeHandler) FavoriteRecipe(c *gin.Context) {
	h.addPair(c, h.recipeService.FavoriteRecipe)
}

func (h *RecipeHandler) UnfavoriteRecipe(c *gin.Context) {
	h.removePair(c, h.recipeService.UnfavoriteRecipe)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addPair(c, h.recipeService.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removePair(c, h.recipeService.RemoveFromCart)
}

// DownloadShoppingCart exports the viewer's aggregated shopping list as a
// plain-text attachment. An empty cart downloads as an empty file.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	items, err := h.shoppingListService.Build(c.Request.Context(), *viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", service.Render(items))
}

// addPair and removePair share the plumbing of the four favorite/cart
// toggles: parse the recipe id, run the operation for the viewer, and return
// either a recipe summary or no content.
func (h *RecipeHandler) addPair(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	recipe, err := add(c.Request.Context(), *viewerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRecipeSummary(*recipe))
}

func (h *RecipeHandler) removePair(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	if err := remove(c.Request.Context(), *viewerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// queryFlag treats "1" and "true" as true; absent or false values leave the
// filter inactive rather than excluding the opposite state.
func queryFlag(c *gin.Context, name string) bool {
	v := c.Query(name)
	return v == "1" || v == "true"
}
