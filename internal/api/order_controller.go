package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visualbites/server/internal/models"
	"visualbites/server/internal/services"
)

// OrderController управляет API endpoints заказов
type OrderController struct {
	orderService *services.OrderService
}

// NewOrderController создает новый контроллер заказов
func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// CreateOrder создает заказ в статусе PENDING
// POST /api/v1/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var request struct {
		CustomerName  string `json:"customerName" binding:"required"`
		CustomerPhone string `json:"customerPhone" binding:"required"`
		Total         int    `json:"total" binding:"min=0"`
		Items         []struct {
			ProductID string  `json:"productId" binding:"required"`
			Quantity  int     `json:"quantity" binding:"required,min=1"`
			Price     int     `json:"price" binding:"min=0"`
			Flavor    *string `json:"flavor"`
		} `json:"items" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	input := services.CreateOrderInput{
		CustomerName:  request.CustomerName,
		CustomerPhone: request.CustomerPhone,
		Total:         request.Total,
	}
	for _, item := range request.Items {
		input.Items = append(input.Items, services.CreateOrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Flavor:    item.Flavor,
		})
	}

	order, err := oc.orderService.Create(input)
	if err != nil {
		handleServiceError(c, err, "Ошибка создания заказа")
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrders возвращает заказы, опционально по статусу
// GET /api/v1/orders?status=PENDING
func (oc *OrderController) GetOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
		return
	}

	orders, err := oc.orderService.List(status)
	if err != nil {
		handleServiceError(c, err, "Ошибка получения заказов")
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrderStats возвращает сводку продаж по активным заказам
// GET /api/v1/orders/stats
func (oc *OrderController) GetOrderStats(c *gin.Context) {
	stats, err := oc.orderService.GetStatistics()
	if err != nil {
		handleServiceError(c, err, "Ошибка получения статистики")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetOrder возвращает один заказ с позициями
// GET /api/v1/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.orderService.Get(c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Ошибка получения заказа")
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrder изменяет контактные данные заказа
// PATCH /api/v1/orders/:id
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	var request struct {
		CustomerName  *string `json:"customerName"`
		CustomerPhone *string `json:"customerPhone"`
		Total         *int    `json:"total" binding:"omitempty,min=0"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	order, err := oc.orderService.Update(c.Param("id"), services.UpdateOrderInput{
		CustomerName:  request.CustomerName,
		CustomerPhone: request.CustomerPhone,
		Total:         request.Total,
	})
	if err != nil {
		handleServiceError(c, err, "Ошибка обновления заказа")
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus переводит заказ в новый статус.
// PENDING -> CONFIRMED списывает ингредиенты по рецептам позиций
// PATCH /api/v1/orders/:id/status
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var request struct {
		Status string `json:"status" binding:"required,oneof=PENDING CONFIRMED PROCESSING READY SHIPPED COMPLETED CANCELLED"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	order, err := oc.orderService.UpdateStatus(c.Param("id"), models.OrderStatus(request.Status))
	if err != nil {
		handleServiceError(c, err, "Ошибка смены статуса заказа")
		return
	}

	c.JSON(http.StatusOK, order)
}

// DeleteOrder удаляет заказ вместе с позициями
// DELETE /api/v1/orders/:id
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	if err := oc.orderService.Remove(c.Param("id")); err != nil {
		handleServiceError(c, err, "Ошибка удаления заказа")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}
