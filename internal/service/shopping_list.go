package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShoppingListService turns a user's cart into an aggregated ingredient
// manifest. Nothing is cached; every export walks the cart fresh.
type ShoppingListService struct {
	db *gorm.DB
}

// NewShoppingListService creates a new ShoppingListService instance.
func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// ShoppingItem is one aggregated line of the manifest.
type ShoppingItem struct {
	Name   string
	Unit   string
	Amount float64
}

type shoppingKey struct {
	name string
	unit string
}

// Build collects every ingredient line across the user's cart recipes and
// sums amounts keyed by (name, unit). Keying includes the unit so that two
// ingredient records sharing a name merge when their units agree, while a
// same-name line in a different unit stays a separate entry instead of being
// summed into nonsense. Items come back sorted by name for a byte-stable
// export. Runs in O(total lines): one join query, one pass.
func (s *ShoppingListService) Build(ctx context.Context, userID uuid.UUID) ([]ShoppingItem, error) {
	var lines []struct {
		Name   string
		Unit   string
		Amount float64
	}
	err := s.db.WithContext(ctx).
		Table("cart_items").
		Select("ingredients.name AS name, ingredients.measurement_unit AS unit, recipe_ingredients.amount AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = cart_items.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("cart_items.user_id = ?", userID).
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[shoppingKey]float64, len(lines))
	for _, line := range lines {
		totals[shoppingKey{line.Name, line.Unit}] += line.Amount
	}

	items := make([]ShoppingItem, 0, len(totals))
	for key, amount := range totals {
		items = append(items, ShoppingItem{Name: key.name, Unit: key.unit, Amount: amount})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Unit < items[j].Unit
	})
	return items, nil
}

// Render produces the downloadable plain-text manifest, one line per item.
// An empty cart renders to an empty file.
func Render(items []ShoppingItem) []byte {
	var buf bytes.Buffer
	for _, item := range items {
		fmt.Fprintf(&buf, "%s : %s %s\n", item.Name, formatAmount(item.Amount), item.Unit)
	}
	return buf.Bytes()
}

// formatAmount prints whole quantities without a decimal point.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
