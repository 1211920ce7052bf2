package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"visualbites/server/internal/services"
)

// handleServiceError мапит доменные ошибки сервисов в HTTP статусы.
// Тексты доменных ошибок уходят клиенту как есть; внутренние ошибки
// попадают только в серверный лог, клиент видит generic сообщение
func handleServiceError(c *gin.Context, err error, fallback string) {
	var stockErr *services.InsufficientStockError
	var transitionErr *services.InvalidTransitionError

	switch {
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrIngredientNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": stockErr.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": transitionErr.Error()})
	case errors.Is(err, services.ErrNegativeQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
