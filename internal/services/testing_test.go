package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visualbites/server/internal/models"
)

// newTestDB поднимает in-memory SQLite с полной схемой.
// Одно соединение, чтобы все запросы видели одну и ту же базу
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Product{},
		&models.ProductIngredient{},
		&models.Order{},
		&models.OrderItem{},
	))

	return db
}

func daysFromNow(days int) *time.Time {
	ts := time.Now().UTC().AddDate(0, 0, days)
	return &ts
}

func seedBatch(t *testing.T, db *gorm.DB, name string, quantity float64, expiry *time.Time) models.Ingredient {
	t.Helper()
	batch := models.Ingredient{
		Name:       name,
		Quantity:   quantity,
		Unit:       "g",
		ExpiryDate: expiry,
	}
	require.NoError(t, db.Create(&batch).Error)
	return batch
}

func batchQuantity(t *testing.T, db *gorm.DB, id string) float64 {
	t.Helper()
	var batch models.Ingredient
	require.NoError(t, db.First(&batch, "id = ?", id).Error)
	return batch.Quantity
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price int) models.Product {
	t.Helper()
	product := models.Product{
		Name:        name,
		Tag:         "dessert",
		Description: "test product",
		Price:       price,
		Image:       "/uploads/test.webp",
		Status:      models.ProductStatusActive,
		FlavorList:  []string{},
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedRecipeLine(t *testing.T, db *gorm.DB, productID, ingredientID string, quantity float64) {
	t.Helper()
	line := models.ProductIngredient{
		ProductID:    productID,
		IngredientID: ingredientID,
		Quantity:     quantity,
	}
	require.NoError(t, db.Create(&line).Error)
}
