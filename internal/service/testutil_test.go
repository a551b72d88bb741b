package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/forkfeed/backend/internal/database"
	"github.com/forkfeed/backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive for the test.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createAdmin(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := createUser(t, db, username)
	require.NoError(t, db.Model(&user).Update("is_admin", true).Error)
	user.IsAdmin = true
	return user
}

func createIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

func createTag(t *testing.T, db *gorm.DB, name, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Color: fmt.Sprintf("#%s", slug), Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

// createRecipe goes through the mutation service so every test recipe is
// built the same way production recipes are.
func createRecipe(t *testing.T, db *gorm.DB, author models.User, name string, in RecipeInput) RecipeDetail {
	t.Helper()
	svc := NewRecipeService(db, nil)
	if in.Name == "" {
		in.Name = name
	}
	if in.Text == "" {
		in.Text = "Some instructions for " + name
	}
	if in.CookingTime == 0 {
		in.CookingTime = 30
	}
	detail, err := svc.CreateRecipe(context.Background(), author.ID, in)
	require.NoError(t, err)
	return *detail
}
