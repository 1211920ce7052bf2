package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"visualbites/server/internal/models"
	"visualbites/server/internal/utils"
)

// ProductService управляет товарами витрины и их рецептами
type ProductService struct {
	db       *gorm.DB
	cache    *utils.RedisClient
	cacheTTL time.Duration
}

// NewProductService создает новый сервис товаров
func NewProductService(db *gorm.DB, cache *utils.RedisClient, cacheTTL time.Duration) *ProductService {
	return &ProductService{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// CreateProductInput — данные для создания товара
type CreateProductInput struct {
	Name        string
	Tag         string
	Badge       *string
	Description string
	Price       int
	Stock       int
	Flavors     []string
	Image       string
	Sticker     *string
	Status      models.ProductStatus
}

// UpdateProductInput — частичное обновление товара (nil = не менять)
type UpdateProductInput struct {
	Name        *string
	Tag         *string
	Badge       *string
	Description *string
	Price       *int
	Stock       *int
	Flavors     []string
	Image       *string
	Sticker     *string
	Status      *models.ProductStatus
	SoldCount   *int
}

// RecipeItemInput — строка рецепта при его замене
type RecipeItemInput struct {
	IngredientID string
	Quantity     float64
}

// List возвращает товары с расчетной доступностью по рецептам.
// Остатки читаются одним агрегирующим запросом (без N+1), расчет идет
// по одному снимку склада на весь запрос
func (s *ProductService) List() ([]models.Product, error) {
	if s.cache != nil {
		var cached []models.Product
		if err := s.cache.GetJSON(cacheKeyProducts, &cached); err == nil {
			return cached, nil
		}
	}

	var products []models.Product
	if err := s.db.Preload("Recipe").Preload("Recipe.Ingredient").
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("ошибка загрузки товаров: %w", err)
	}

	// Собираем имена ингредиентов, встречающихся хоть в одном рецепте
	nameSet := map[string]bool{}
	for i := range products {
		for j := range products[i].Recipe {
			if ing := products[i].Recipe[j].Ingredient; ing != nil {
				nameSet[ing.Name] = true
			}
		}
	}

	stockByName := map[string]float64{}
	if len(nameSet) > 0 {
		names := make([]string, 0, len(nameSet))
		for name := range nameSet {
			names = append(names, name)
		}

		type stockRow struct {
			Name  string
			Total float64
		}
		var rows []stockRow
		if err := s.db.Model(&models.Ingredient{}).
			Select("name, SUM(quantity) AS total").
			Where("name IN ?", names).
			Group("name").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("ошибка агрегации остатков: %w", err)
		}
		for _, row := range rows {
			stockByName[row.Name] = row.Total
		}
	}

	for i := range products {
		s.applyStockProjection(&products[i], stockByName)
	}

	if s.cache != nil {
		if err := s.cache.Set(cacheKeyProducts, products, s.cacheTTL); err != nil {
			log.Printf("⚠️ Не удалось закэшировать товары: %v", err)
		}
	}

	return products, nil
}

// applyStockProjection заполняет расчетные поля товара по снимку остатков.
// Доступное количество = минимум по строкам рецепта из floor(остаток/расход).
// Без рецепта используется ручное поле stock
func (s *ProductService) applyStockProjection(p *models.Product, stockByName map[string]float64) {
	if len(p.Recipe) == 0 {
		p.ProducibleStock = p.Stock
		p.HasOutOfStock = false
		return
	}

	producible := math.MaxInt32
	for j := range p.Recipe {
		line := &p.Recipe[j]
		if line.Ingredient == nil || line.Quantity <= 0 {
			continue
		}

		available := stockByName[line.Ingredient.Name]
		line.AvailableStock = available
		line.IsOutOfStock = available < line.Quantity
		if line.IsOutOfStock {
			p.HasOutOfStock = true
		}

		canMake := int(math.Floor(available / line.Quantity))
		if canMake < producible {
			producible = canMake
		}
	}

	if producible == math.MaxInt32 {
		producible = p.Stock
	}
	p.ProducibleStock = producible
}

// Get возвращает один товар с рецептом
func (s *ProductService) Get(id string) (*models.Product, error) {
	var product models.Product
	if err := s.db.Preload("Recipe").Preload("Recipe.Ingredient").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Create создает товар
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	status := input.Status
	if status == "" {
		status = models.ProductStatusActive
	}
	flavors := input.Flavors
	if flavors == nil {
		flavors = []string{}
	}

	product := models.Product{
		Name:        input.Name,
		Tag:         input.Tag,
		Badge:       input.Badge,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		FlavorList:  flavors,
		Image:       input.Image,
		Sticker:     input.Sticker,
		Status:      status,
	}

	if err := s.db.Create(&product).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания товара: %w", err)
	}

	s.invalidateCache()
	return &product, nil
}

// Update изменяет товар (частичное обновление)
func (s *ProductService) Update(id string, input UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Tag != nil {
		product.Tag = *input.Tag
	}
	if input.Badge != nil {
		product.Badge = input.Badge
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Flavors != nil {
		product.FlavorList = input.Flavors
	}
	if input.Image != nil {
		product.Image = *input.Image
	}
	if input.Sticker != nil {
		product.Sticker = input.Sticker
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	if input.SoldCount != nil {
		product.SoldCount = *input.SoldCount
	}

	if err := s.db.Omit("Recipe").Save(product).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления товара: %w", err)
	}

	s.invalidateCache()
	return product, nil
}

// Delete удаляет товар вместе со строками рецепта
func (s *ProductService) Delete(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProductIngredient{}, "product_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Product{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateCache()
	return nil
}

// SetRecipe заменяет рецепт товара целиком: старые строки удаляются,
// новые вставляются одним набором
func (s *ProductService) SetRecipe(productID string, items []RecipeItemInput) (*models.Product, error) {
	if _, err := s.Get(productID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProductIngredient{}, "product_id = ?", productID).Error; err != nil {
			return err
		}
		for _, item := range items {
			line := models.ProductIngredient{
				ProductID:    productID,
				IngredientID: item.IngredientID,
				Quantity:     item.Quantity,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка замены рецепта: %w", err)
	}

	s.invalidateCache()
	return s.Get(productID)
}

// invalidateCache сбрасывает кэш списка товаров
func (s *ProductService) invalidateCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cacheKeyProducts); err != nil {
		log.Printf("⚠️ Не удалось сбросить кэш товаров: %v", err)
	}
}
