package services

import (
	"errors"
	"fmt"
	"strconv"

	"visualbites/server/internal/models"
)

// Ошибки "не найдено" — контроллеры мапят их в 404
var (
	ErrProductNotFound    = errors.New("Product not found")
	ErrIngredientNotFound = errors.New("Ingredient not found")
	ErrOrderNotFound      = errors.New("Order not found")
	ErrUserNotFound       = errors.New("User not found")
)

// ErrNegativeQuantity возвращается при попытке списать со склада больше, чем есть
var ErrNegativeQuantity = errors.New("Cannot reduce quantity below 0")

// InsufficientStockError возвращается, когда партий ингредиента не хватает
// для подтверждения заказа. Текст сообщения показывается оператору как есть.
type InsufficientStockError struct {
	Ingredient string
	Shortfall  float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Short by %s",
		e.Ingredient, strconv.FormatFloat(e.Shortfall, 'f', -1, 64))
}

// InvalidTransitionError возвращается при запрещенном переходе статуса заказа
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}
