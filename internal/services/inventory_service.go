package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"visualbites/server/internal/models"
	"visualbites/server/internal/utils"
)

// InventoryService управляет складом ингредиентов (партионный учет)
type InventoryService struct {
	db    *gorm.DB
	cache *utils.RedisClient
}

// NewInventoryService создает новый сервис склада
func NewInventoryService(db *gorm.DB, cache *utils.RedisClient) *InventoryService {
	return &InventoryService{
		db:    db,
		cache: cache,
	}
}

// CreateIngredientInput — данные для оприходования новой партии
type CreateIngredientInput struct {
	Name              string
	Quantity          float64
	Unit              string
	MinStock          float64
	ExpiryDate        *time.Time
	ExpiryWarningDays *int
}

// UpdateIngredientInput — частичное обновление партии (nil = не менять)
type UpdateIngredientInput struct {
	Name              *string
	Quantity          *float64
	Unit              *string
	MinStock          *float64
	ExpiryDate        *time.Time
	ClearExpiryDate   bool
	ExpiryWarningDays *int
}

// IngredientGroup — агрегат по наименованию: суммарный остаток + список партий
type IngredientGroup struct {
	Name              string              `json:"name"`
	Unit              string              `json:"unit"`
	MinStock          float64             `json:"minStock"`
	ExpiryWarningDays int                 `json:"expiryWarningDays"`
	TotalQuantity     float64             `json:"totalQuantity"`
	Batches           []models.Ingredient `json:"batches"`
}

// List возвращает склад, сгруппированный по наименованию.
// Партии внутри группы идут в порядке списания (FIFO по сроку годности)
func (s *InventoryService) List() ([]IngredientGroup, error) {
	batches, err := s.ListFlat()
	if err != nil {
		return nil, err
	}

	groups := []IngredientGroup{}
	index := map[string]int{}
	for _, batch := range batches {
		i, ok := index[batch.Name]
		if !ok {
			groups = append(groups, IngredientGroup{
				Name:              batch.Name,
				Unit:              batch.Unit,
				MinStock:          batch.MinStock,
				ExpiryWarningDays: batch.ExpiryWarningDays,
			})
			i = len(groups) - 1
			index[batch.Name] = i
		}
		groups[i].TotalQuantity += batch.Quantity
		groups[i].Batches = append(groups[i].Batches, batch)
	}

	return groups, nil
}

// ListFlat возвращает все партии без группировки
func (s *InventoryService) ListFlat() ([]models.Ingredient, error) {
	var batches []models.Ingredient
	if err := s.db.Order("name ASC, expiry_date ASC NULLS FIRST").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("ошибка загрузки склада: %w", err)
	}
	return batches, nil
}

// Get возвращает одну партию
func (s *InventoryService) Get(id string) (*models.Ingredient, error) {
	var batch models.Ingredient
	if err := s.db.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// Create оприходует новую партию. Партии с одинаковым именем не сливаются
func (s *InventoryService) Create(input CreateIngredientInput) (*models.Ingredient, error) {
	batch := models.Ingredient{
		Name:              input.Name,
		Quantity:          input.Quantity,
		Unit:              input.Unit,
		MinStock:          input.MinStock,
		ExpiryDate:        input.ExpiryDate,
		ExpiryWarningDays: 7,
	}
	if input.ExpiryWarningDays != nil {
		batch.ExpiryWarningDays = *input.ExpiryWarningDays
	}

	if err := s.db.Create(&batch).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания партии: %w", err)
	}

	s.invalidateCache()
	return &batch, nil
}

// Update изменяет партию (частичное обновление)
func (s *InventoryService) Update(id string, input UpdateIngredientInput) (*models.Ingredient, error) {
	batch, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		batch.Name = *input.Name
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, ErrNegativeQuantity
		}
		batch.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		batch.Unit = *input.Unit
	}
	if input.MinStock != nil {
		batch.MinStock = *input.MinStock
	}
	if input.ExpiryDate != nil {
		batch.ExpiryDate = input.ExpiryDate
	} else if input.ClearExpiryDate {
		batch.ExpiryDate = nil
	}
	if input.ExpiryWarningDays != nil {
		batch.ExpiryWarningDays = *input.ExpiryWarningDays
	}

	if err := s.db.Save(batch).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления партии: %w", err)
	}

	s.invalidateCache()
	return batch, nil
}

// Delete удаляет партию
func (s *InventoryService) Delete(id string) error {
	result := s.db.Delete(&models.Ingredient{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("ошибка удаления партии: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIngredientNotFound
	}

	s.invalidateCache()
	return nil
}

// Adjust корректирует остаток партии: operation = "add" | "subtract".
// Списание ниже нуля запрещено, партия при этом не меняется
func (s *InventoryService) Adjust(id string, amount float64, operation string) (*models.Ingredient, error) {
	batch, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	switch operation {
	case "add":
		batch.Quantity += amount
	case "subtract":
		if batch.Quantity-amount < 0 {
			return nil, ErrNegativeQuantity
		}
		batch.Quantity -= amount
	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}

	if err := s.db.Save(batch).Error; err != nil {
		return nil, fmt.Errorf("ошибка корректировки партии: %w", err)
	}

	s.invalidateCache()
	return batch, nil
}

// ConsumeInTx списывает required единиц ингредиента name по партиям в порядке
// истечения срока годности (NULL — первыми). Работает внутри переданной
// транзакции: при нехватке вызывающий код обязан откатить всю транзакцию.
func (s *InventoryService) ConsumeInTx(tx *gorm.DB, name string, required float64) error {
	var batches []models.Ingredient
	if err := tx.Where("name = ? AND quantity > 0", name).
		Order("expiry_date ASC NULLS FIRST").
		Find(&batches).Error; err != nil {
		return fmt.Errorf("ошибка загрузки партий %s: %w", name, err)
	}

	remainingToDeduct := required

	for i := range batches {
		if remainingToDeduct <= 0 {
			break
		}
		batch := &batches[i]

		deductQuantity := remainingToDeduct
		if batch.Quantity < deductQuantity {
			deductQuantity = batch.Quantity
		}

		batch.Quantity -= deductQuantity
		if err := tx.Model(&models.Ingredient{}).
			Where("id = ?", batch.ID).
			Update("quantity", batch.Quantity).Error; err != nil {
			return fmt.Errorf("ошибка списания партии %s: %w", batch.ID, err)
		}

		remainingToDeduct -= deductQuantity
	}

	if remainingToDeduct > 0 {
		return &InsufficientStockError{Ingredient: name, Shortfall: remainingToDeduct}
	}

	return nil
}

// StockAlerts — позиции склада, требующие внимания
type StockAlerts struct {
	LowStock []IngredientGroup   `json:"lowStock"` // Суммарный остаток ниже minStock
	Expiring []models.Ingredient `json:"expiring"` // Партии в окне предупреждения о сроке
}

// Alerts возвращает наименования ниже минимального остатка и партии,
// у которых скоро истекает срок годности
func (s *InventoryService) Alerts() (*StockAlerts, error) {
	groups, err := s.List()
	if err != nil {
		return nil, err
	}

	alerts := &StockAlerts{
		LowStock: []IngredientGroup{},
		Expiring: []models.Ingredient{},
	}

	now := time.Now().UTC()
	for _, group := range groups {
		if group.TotalQuantity < group.MinStock {
			alerts.LowStock = append(alerts.LowStock, group)
		}
		for _, batch := range group.Batches {
			if batch.Quantity > 0 && batch.IsExpiringSoon(now) {
				alerts.Expiring = append(alerts.Expiring, batch)
			}
		}
	}

	return alerts, nil
}

// ExportXLSX выгружает склад в Excel для ручной инвентаризации
func (s *InventoryService) ExportXLSX() (*excelize.File, error) {
	batches, err := s.ListFlat()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Stock"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Name", "Quantity", "Unit", "Min stock", "Expiry date", "Updated at"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, batch := range batches {
		expiry := ""
		if batch.ExpiryDate != nil {
			expiry = batch.ExpiryDate.UTC().Format("2006-01-02")
		}
		values := []interface{}{
			batch.Name,
			batch.Quantity,
			batch.Unit,
			batch.MinStock,
			expiry,
			batch.UpdatedAt.UTC().Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}

// invalidateCache сбрасывает кэш витрины: остатки влияют на доступность товаров
func (s *InventoryService) invalidateCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cacheKeyProducts); err != nil {
		log.Printf("⚠️ Не удалось сбросить кэш товаров: %v", err)
	}
}
