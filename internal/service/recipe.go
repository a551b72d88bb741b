package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfeed/backend/internal/models"
)

// RecipeService handles recipe listing, retrieval and mutation.
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

// NewRecipeService creates a new RecipeService instance.
func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// RecipeFilter narrows a recipe listing. TagSlugs match any-of; AuthorID is
// exact; the two boolean filters only take effect when true.
type RecipeFilter struct {
	TagSlugs      []string
	AuthorID      *uuid.UUID
	FavoritedOnly bool
	InCartOnly    bool
	Limit         int
	Offset        int
}

// RecipeDetail is a recipe annotated with the per-viewer derived flags.
type RecipeDetail struct {
	Recipe           models.Recipe
	IsFavorited      bool
	IsInShoppingCart bool
	AuthorFollowed   bool
}

// IngredientLineInput is one {ingredient id, amount} pair on a create/update.
type IngredientLineInput struct {
	IngredientID uuid.UUID
	Amount       float64
}

// RecipeInput carries the caller-supplied recipe fields. Image is an inline
// base64 payload; empty means keep the current image on update.
type RecipeInput struct {
	Name        string
	Text        string
	Image       string
	CookingTime float64
	TagIDs      []uuid.UUID
	Ingredients []IngredientLineInput
}

// ListRecipes returns recipes matching the filter, newest first, annotated
// for the given viewer (nil = anonymous). An anonymous viewer combined with
// a personalized filter yields an empty result set by design: there is no
// user whose favorites or cart could match.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer *uuid.UUID, f RecipeFilter) ([]RecipeDetail, error) {
	if viewer == nil && (f.FavoritedOnly || f.InCartOnly) {
		return []RecipeDetail{}, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.created_at DESC")

	if len(f.TagSlugs) > 0 {
		query = query.
			Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs).
			Distinct("recipes.*")
	}

	if f.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *f.AuthorID)
	}

	if f.FavoritedOnly {
		query = query.
			Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
			Where("favorites.user_id = ?", *viewer)
	}

	if f.InCartOnly {
		query = query.
			Joins("JOIN cart_items ON cart_items.recipe_id = recipes.id").
			Where("cart_items.user_id = ?", *viewer)
	}

	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	return s.annotate(ctx, viewer, recipes)
}

// GetRecipe retrieves a single recipe with its viewer annotations.
func (s *RecipeService) GetRecipe(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*RecipeDetail, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	details, err := s.annotate(ctx, viewer, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// annotate attaches is_favorited / is_in_shopping_cart / author-followed
// flags with three batched queries instead of one per recipe.
func (s *RecipeService) annotate(ctx context.Context, viewer *uuid.UUID, recipes []models.Recipe) ([]RecipeDetail, error) {
	details := make([]RecipeDetail, len(recipes))
	for i := range recipes {
		details[i].Recipe = recipes[i]
	}
	if viewer == nil || len(recipes) == 0 {
		return details, nil
	}

	recipeIDs := make([]uuid.UUID, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	var favorited []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
		Pluck("recipe_id", &favorited).Error; err != nil {
		return nil, err
	}

	var inCart []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
		Pluck("recipe_id", &inCart).Error; err != nil {
		return nil, err
	}

	var followed []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id IN ?", *viewer, authorIDs).
		Pluck("followed_id", &followed).Error; err != nil {
		return nil, err
	}

	favoritedSet := toSet(favorited)
	inCartSet := toSet(inCart)
	followedSet := toSet(followed)
	for i := range details {
		details[i].IsFavorited = favoritedSet[details[i].Recipe.ID]
		details[i].IsInShoppingCart = inCartSet[details[i].Recipe.ID]
		details[i].AuthorFollowed = followedSet[details[i].Recipe.AuthorID]
	}
	return details, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// CreateRecipe validates and persists a new recipe, its ingredient lines and
// tag associations as one transaction. Any unresolved ingredient or tag id
// fails the whole operation.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uuid.UUID, in RecipeInput) (*RecipeDetail, error) {
	if err := validateRecipeInput(in); err != nil {
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Text:        in.Text,
		ImageURL:    imageURL,
		CookingTime: in.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := resolveTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		ingredients, err := resolveIngredients(tx, in.Ingredients)
		if err != nil {
			return err
		}

		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := createLines(tx, recipe.ID, in.Ingredients, ingredients); err != nil {
			return err
		}
		return replaceTags(tx, &recipe, tags)
	})
	if err != nil {
		return nil, err
	}

	return s.GetRecipe(ctx, &authorID, recipe.ID)
}

// UpdateRecipe replaces the recipe's scalar fields and wholesale-replaces
// its tag set and ingredient lines in one transaction, so a failed update
// can never leave the recipe with zero lines.
func (s *RecipeService) UpdateRecipe(ctx context.Context, viewerID, recipeID uuid.UUID, in RecipeInput) (*RecipeDetail, error) {
	viewer, recipe, err := s.loadForMutation(ctx, viewerID, recipeID)
	if err != nil {
		return nil, err
	}
	if !CanModifyRecipe(viewer, recipe) {
		return nil, ErrForbidden
	}

	if err := validateRecipeInput(in); err != nil {
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := resolveTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		ingredients, err := resolveIngredients(tx, in.Ingredients)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         in.Name,
			"text":         in.Text,
			"cooking_time": in.CookingTime,
		}
		if imageURL != "" {
			updates["image_url"] = imageURL
		}
		if err := tx.Model(recipe).Updates(updates).Error; err != nil {
			return err
		}

		// Replace-all semantics: old lines go, new lines come in.
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := createLines(tx, recipe.ID, in.Ingredients, ingredients); err != nil {
			return err
		}
		return replaceTags(tx, recipe, tags)
	})
	if err != nil {
		return nil, err
	}

	return s.GetRecipe(ctx, &viewerID, recipe.ID)
}

// DeleteRecipe removes a recipe along with its lines, favorites and cart
// entries. Dependents are deleted explicitly so behavior does not hinge on
// driver-level foreign-key enforcement.
func (s *RecipeService) DeleteRecipe(ctx context.Context, viewerID, recipeID uuid.UUID) error {
	viewer, recipe, err := s.loadForMutation(ctx, viewerID, recipeID)
	if err != nil {
		return err
	}
	if !CanModifyRecipe(viewer, recipe) {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(recipe).Error
	})
}

func (s *RecipeService) loadForMutation(ctx context.Context, viewerID, recipeID uuid.UUID) (*models.User, *models.Recipe, error) {
	var viewer models.User
	if err := s.db.WithContext(ctx).First(&viewer, "id = ?", viewerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	return &viewer, &recipe, nil
}

func (s *RecipeService) storeImage(ctx context.Context, payload string) (string, error) {
	if payload == "" || s.images == nil {
		return "", nil
	}
	return s.images.Store(ctx, payload)
}

// validateRecipeInput rejects the whole operation before anything is
// persisted: cooking time below one minute or any non-positive line amount.
func validateRecipeInput(in RecipeInput) error {
	if in.CookingTime < 1 {
		return invalidf("cooking time must be at least 1 minute")
	}
	for _, line := range in.Ingredients {
		if line.Amount <= 0 {
			return invalidf("ingredient amount must be greater than zero")
		}
	}
	return nil
}

func resolveTags(tx *gorm.DB, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(uniqueIDs(ids)) {
		return nil, invalidf("one or more tags do not exist")
	}
	return tags, nil
}

func resolveIngredients(tx *gorm.DB, lines []IngredientLineInput) (map[uuid.UUID]models.Ingredient, error) {
	if len(lines) == 0 {
		return map[uuid.UUID]models.Ingredient{}, nil
	}
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.IngredientID
	}
	var ingredients []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		byID[ing.ID] = ing
	}
	for _, line := range lines {
		if _, ok := byID[line.IngredientID]; !ok {
			return nil, invalidf("ingredient %s does not exist", line.IngredientID)
		}
	}
	return byID, nil
}

func createLines(tx *gorm.DB, recipeID uuid.UUID, lines []IngredientLineInput, ingredients map[uuid.UUID]models.Ingredient) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.IngredientID,
			Amount:       line.Amount,
		}
	}
	return tx.Create(&rows).Error
}

func replaceTags(tx *gorm.DB, recipe *models.Recipe, tags []models.Tag) error {
	assoc := tx.Model(recipe).Association("Tags")
	if len(tags) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(&tags)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
