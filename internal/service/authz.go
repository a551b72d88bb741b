package service

import "github.com/forkfeed/backend/internal/models"

// CanModifyRecipe is the authorization gate for recipe mutations: reads are
// open to everyone, writes require the recipe's author or an admin.
func CanModifyRecipe(viewer *models.User, recipe *models.Recipe) bool {
	if viewer == nil {
		return false
	}
	return viewer.IsAdmin || viewer.ID == recipe.AuthorID
}
