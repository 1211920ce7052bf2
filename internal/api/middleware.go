package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuditLogger пишет аудит-след по мутирующим запросам: метод, путь,
// id затронутого ресурса, клиентский IP и итоговый статус.
// Чтение (GET/OPTIONS) в аудит не попадает
func AuditLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return
		}

		id := c.Param("id")
		if id == "" {
			id = "-"
		}

		log.Printf("📝 %s %s - id: %s - IP: %s - Status: %d",
			c.Request.Method, c.Request.URL.Path, id, c.ClientIP(), c.Writer.Status())
	}
}
