package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"visualbites/server/internal/services"
)

// InventoryController управляет API endpoints склада ингредиентов
type InventoryController struct {
	inventoryService *services.InventoryService
}

// NewInventoryController создает новый контроллер склада
func NewInventoryController(inventoryService *services.InventoryService) *InventoryController {
	return &InventoryController{
		inventoryService: inventoryService,
	}
}

// GetInventory возвращает склад, сгруппированный по наименованию
// GET /api/v1/inventory?flat=true — плоский список партий
func (ic *InventoryController) GetInventory(c *gin.Context) {
	flatStr := c.DefaultQuery("flat", "false")
	flat, _ := strconv.ParseBool(flatStr)

	if flat {
		batches, err := ic.inventoryService.ListFlat()
		if err != nil {
			handleServiceError(c, err, "Ошибка получения склада")
			return
		}
		c.JSON(http.StatusOK, batches)
		return
	}

	groups, err := ic.inventoryService.List()
	if err != nil {
		handleServiceError(c, err, "Ошибка получения склада")
		return
	}

	c.JSON(http.StatusOK, groups)
}

// CreateIngredient оприходует новую партию
// POST /api/v1/inventory
func (ic *InventoryController) CreateIngredient(c *gin.Context) {
	var request struct {
		Name              string     `json:"name" binding:"required"`
		Quantity          float64    `json:"quantity" binding:"min=0"`
		Unit              string     `json:"unit" binding:"required"`
		MinStock          float64    `json:"minStock" binding:"min=0"`
		ExpiryDate        *time.Time `json:"expiryDate"`
		ExpiryWarningDays *int       `json:"expiryWarningDays" binding:"omitempty,min=0"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	batch, err := ic.inventoryService.Create(services.CreateIngredientInput{
		Name:              request.Name,
		Quantity:          request.Quantity,
		Unit:              request.Unit,
		MinStock:          request.MinStock,
		ExpiryDate:        request.ExpiryDate,
		ExpiryWarningDays: request.ExpiryWarningDays,
	})
	if err != nil {
		handleServiceError(c, err, "Ошибка создания партии")
		return
	}

	c.JSON(http.StatusCreated, batch)
}

// UpdateIngredient частично обновляет партию
// PATCH /api/v1/inventory/:id
func (ic *InventoryController) UpdateIngredient(c *gin.Context) {
	var request struct {
		Name              *string    `json:"name"`
		Quantity          *float64   `json:"quantity" binding:"omitempty,min=0"`
		Unit              *string    `json:"unit"`
		MinStock          *float64   `json:"minStock" binding:"omitempty,min=0"`
		ExpiryDate        *time.Time `json:"expiryDate"`
		ClearExpiryDate   bool       `json:"clearExpiryDate"`
		ExpiryWarningDays *int       `json:"expiryWarningDays" binding:"omitempty,min=0"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	batch, err := ic.inventoryService.Update(c.Param("id"), services.UpdateIngredientInput{
		Name:              request.Name,
		Quantity:          request.Quantity,
		Unit:              request.Unit,
		MinStock:          request.MinStock,
		ExpiryDate:        request.ExpiryDate,
		ClearExpiryDate:   request.ClearExpiryDate,
		ExpiryWarningDays: request.ExpiryWarningDays,
	})
	if err != nil {
		handleServiceError(c, err, "Ошибка обновления партии")
		return
	}

	c.JSON(http.StatusOK, batch)
}

// DeleteIngredient удаляет партию
// DELETE /api/v1/inventory/:id
func (ic *InventoryController) DeleteIngredient(c *gin.Context) {
	if err := ic.inventoryService.Delete(c.Param("id")); err != nil {
		handleServiceError(c, err, "Ошибка удаления партии")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ingredient deleted"})
}

// AdjustQuantity корректирует остаток партии (приход/списание)
// PATCH /api/v1/inventory/:id/adjust
func (ic *InventoryController) AdjustQuantity(c *gin.Context) {
	var request struct {
		Amount    float64 `json:"amount" binding:"required,gt=0"`
		Operation string  `json:"operation" binding:"required,oneof=add subtract"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	batch, err := ic.inventoryService.Adjust(c.Param("id"), request.Amount, request.Operation)
	if err != nil {
		handleServiceError(c, err, "Ошибка корректировки партии")
		return
	}

	c.JSON(http.StatusOK, batch)
}

// GetAlerts возвращает позиции ниже минимального остатка и истекающие партии
// GET /api/v1/inventory/alerts
func (ic *InventoryController) GetAlerts(c *gin.Context) {
	alerts, err := ic.inventoryService.Alerts()
	if err != nil {
		handleServiceError(c, err, "Ошибка получения уведомлений")
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// ExportInventory выгружает склад в XLSX
// GET /api/v1/inventory/export
func (ic *InventoryController) ExportInventory(c *gin.Context) {
	file, err := ic.inventoryService.ExportXLSX()
	if err != nil {
		handleServiceError(c, err, "Ошибка выгрузки склада")
		return
	}

	filename := fmt.Sprintf("inventory_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		log.Printf("❌ Ошибка записи файла выгрузки: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка записи файла"})
	}
}
