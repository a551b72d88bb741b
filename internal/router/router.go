package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/forkfeed/backend/internal/api"
	"github.com/forkfeed/backend/internal/middleware"
)

// Handlers bundles the API handlers the router wires up.
type Handlers struct {
	Auth    *api.AuthHandler
	Recipe  *api.RecipeHandler
	Catalog *api.CatalogHandler
	Follow  *api.FollowHandler
}

// SetupRouter configures the application routes
func SetupRouter(h Handlers, tokens middleware.TokenValidator) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	// Decoded recipe images are served straight from the media directory.
	router.Static("/media", "media")

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", middleware.RequireAuth(tokens), h.Auth.Logout)
	}

	tags := v1.Group("/tags")
	{
		tags.GET("", h.Catalog.ListTags)
		tags.GET("/:id", h.Catalog.GetTag)
	}

	ingredients := v1.Group("/ingredients")
	{
		ingredients.GET("", h.Catalog.ListIngredients)
		ingredients.GET("/:id", h.Catalog.GetIngredient)
	}

	recipes := v1.Group("/recipes")
	{
		// Reads are open; the viewer is resolved when a token is present so
		// the per-user flags come back annotated.
		recipes.GET("", middleware.OptionalAuth(tokens), h.Recipe.ListRecipes)
		recipes.GET("/:id", middleware.OptionalAuth(tokens), h.Recipe.GetRecipe)

		authed := recipes.Group("", middleware.RequireAuth(tokens))
		{
			authed.POST("", h.Recipe.CreateRecipe)
			authed.PUT("/:id", h.Recipe.UpdateRecipe)
			authed.DELETE("/:id", h.Recipe.DeleteRecipe)
			authed.POST("/:id/favorite", h.Recipe.FavoriteRecipe)
			authed.DELETE("/:id/favorite", h.Recipe.UnfavoriteRecipe)
			authed.POST("/:id/shopping_cart", h.Recipe.AddToCart)
			authed.DELETE("/:id/shopping_cart", h.Recipe.RemoveFromCart)
			authed.GET("/download_shopping_cart", h.Recipe.DownloadShoppingCart)
		}
	}

	users := v1.Group("/users")
	{
		users.GET("/me", middleware.RequireAuth(tokens), h.Auth.Me)
		users.GET("/subscriptions", middleware.RequireAuth(tokens), h.Follow.Subscriptions)
		users.GET("/:id", middleware.OptionalAuth(tokens), h.Auth.GetUser)
		users.POST("/:id/subscribe", middleware.RequireAuth(tokens), h.Follow.Subscribe)
		users.DELETE("/:id/subscribe", middleware.RequireAuth(tokens), h.Follow.Unsubscribe)
	}

	return router
}
