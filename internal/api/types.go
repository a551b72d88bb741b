package api

import (
	"time"

	"github.com/forkfeed/backend/internal/models"
	"github.com/forkfeed/backend/internal/service"
)

type UserResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

type TagResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type IngredientResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// IngredientLineResponse flattens a recipe's ingredient line: the referenced
// ingredient's fields plus the amount used.
type IngredientLineResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	MeasurementUnit string  `json:"measurement_unit"`
	Amount          float64 `json:"amount"`
}

type RecipeResponse struct {
	ID               string                   `json:"id"`
	Tags             []TagResponse            `json:"tags"`
	Author           UserResponse             `json:"author"`
	Ingredients      []IngredientLineResponse `json:"ingredients"`
	IsFavorited      bool                     `json:"is_favorited"`
	IsInShoppingCart bool                     `json:"is_in_shopping_cart"`
	Name             string                   `json:"name"`
	Image            string                   `json:"image"`
	Text             string                   `json:"text"`
	CookingTime      float64                  `json:"cooking_time"`
	CreatedAt        time.Time                `json:"created_at"`
}

// RecipeSummaryResponse is the short recipe form used in favorite/cart
// confirmations and subscription listings.
type RecipeSummaryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	CookingTime float64 `json:"cooking_time"`
}

type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeSummaryResponse `json:"recipes"`
	RecipesCount int64                   `json:"recipes_count"`
}

func newUserResponse(u models.User, isSubscribed bool) UserResponse {
	return UserResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}

func newTagResponse(t models.Tag) TagResponse {
	return TagResponse{
		ID:    t.ID.String(),
		Name:  t.Name,
		Color: t.Color,
		Slug:  t.Slug,
	}
}

func newIngredientResponse(i models.Ingredient) IngredientResponse {
	return IngredientResponse{
		ID:              i.ID.String(),
		Name:            i.Name,
		MeasurementUnit: i.MeasurementUnit,
	}
}

func newRecipeResponse(d service.RecipeDetail) RecipeResponse {
	r := d.Recipe

	tags := make([]TagResponse, len(r.Tags))
	for i, tag := range r.Tags {
		tags[i] = newTagResponse(tag)
	}

	lines := make([]IngredientLineResponse, len(r.Ingredients))
	for i, line := range r.Ingredients {
		lines[i] = IngredientLineResponse{
			ID:              line.IngredientID.String(),
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		}
	}

	return RecipeResponse{
		ID:               r.ID.String(),
		Tags:             tags,
		Author:           newUserResponse(r.Author, d.AuthorFollowed),
		Ingredients:      lines,
		IsFavorited:      d.IsFavorited,
		IsInShoppingCart: d.IsInShoppingCart,
		Name:             r.Name,
		Image:            r.ImageURL,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		CreatedAt:        r.CreatedAt,
	}
}

func newRecipeSummary(r models.Recipe) RecipeSummaryResponse {
	return RecipeSummaryResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Image:       r.ImageURL,
		CookingTime: r.CookingTime,
	}
}

func newSubscriptionResponse(sub service.Subscription) SubscriptionResponse {
	recipes := make([]RecipeSummaryResponse, len(sub.Recipes))
	for i, r := range sub.Recipes {
		recipes[i] = newRecipeSummary(r)
	}
	return SubscriptionResponse{
		UserResponse: newUserResponse(sub.User, true),
		Recipes:      recipes,
		RecipesCount: sub.RecipesCount,
	}
}
