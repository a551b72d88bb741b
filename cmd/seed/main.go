package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/forkfeed/backend/config"
	"github.com/forkfeed/backend/internal/database"
	"github.com/forkfeed/backend/internal/models"
	"gorm.io/gorm"
)

// Seeds the reference data: the three meal tags and the ingredient catalog.
// Safe to re-run; existing rows are left alone.

var defaultTags = []models.Tag{
	{Name: "breakfast", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "lunch", Color: "#49B64E", Slug: "lunch"},
	{Name: "dinner", Color: "#8775D2", Slug: "dinner"},
}

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.json", "path to the ingredient catalog")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	for _, tag := range defaultTags {
		if err := db.Where(models.Tag{Slug: tag.Slug}).FirstOrCreate(&tag).Error; err != nil {
			log.Fatalf("Failed to seed tag %s: %v", tag.Slug, err)
		}
	}
	log.Printf("Seeded %d tags", len(defaultTags))

	count, err := seedIngredients(db, *ingredientsPath)
	if err != nil {
		log.Fatalf("Failed to seed ingredients: %v", err)
	}
	log.Printf("Seeded %d ingredients", count)
}

func seedIngredients(db *gorm.DB, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var entries []struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}
	if err := json.Unmarshal(content, &entries); err != nil {
		return 0, err
	}

	for _, entry := range entries {
		ingredient := models.Ingredient{
			Name:            entry.Name,
			MeasurementUnit: entry.MeasurementUnit,
		}
		if err := db.Where(models.Ingredient{
			Name:            entry.Name,
			MeasurementUnit: entry.MeasurementUnit,
		}).FirstOrCreate(&ingredient).Error; err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}
