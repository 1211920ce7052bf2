package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"visualbites/server/internal/api"
	"visualbites/server/internal/config"
	"visualbites/server/internal/database"
	"visualbites/server/internal/models"
	"visualbites/server/internal/services"
	"visualbites/server/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	// Игнорируем ошибку, если файл не найден (для production окружений)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	// Загрузка конфигурации
	cfg := config.Load()

	// Логируем наличие DATABASE_URL (без пароля)
	if cfg.DatabaseURL != "" {
		safeURL := cfg.DatabaseURL
		if idx := strings.Index(safeURL, "@"); idx > 0 {
			if schemeIdx := strings.Index(safeURL, "://"); schemeIdx > 0 {
				safeURL = safeURL[:schemeIdx+3] + "***@" + safeURL[idx+1:]
			}
		}
		log.Printf("📋 DATABASE_URL установлен: %s", safeURL)
	}

	// Подключение к PostgreSQL (обязательно: без БД сервис бессмысленен)
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ PostgreSQL connection failed: %v", err)
	}
	defer database.ClosePostgres(db)

	// Выполняем миграции
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Создаем дефолтного админа, если пользователей еще нет
	if err := models.InitDefaultData(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("⚠️ Ошибка инициализации дефолтных данных: %v", err)
	}

	// Подключение к Redis (опционально: без него работаем без кэша витрины)
	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	var redisUtil *utils.RedisClient
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
		redisClient = nil
		redisUtil = nil
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
	}
	defer database.CloseRedis(redisClient)

	// Каталог для загруженных изображений
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("❌ Не удалось создать каталог загрузок %s: %v", cfg.UploadDir, err)
	}

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	// Инициализация сервисов
	inventoryService := services.NewInventoryService(db, redisUtil)
	log.Println("✅ Inventory service initialized")

	productService := services.NewProductService(db, redisUtil, cacheTTL)
	log.Println("✅ Product service initialized")

	orderService := services.NewOrderService(db, redisUtil, inventoryService, cacheTTL)
	log.Println("✅ Order service initialized")

	authService := services.NewAuthService(db, cfg.JWTSecret)
	log.Println("✅ Auth service initialized")

	// Отключаем логи gin для скорости
	gin.SetMode(gin.ReleaseMode)

	// Создаем пустой движок без лишних прослоек
	r := gin.New()

	// Health check endpoint
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "VisualBites API",
			"version": "1.0.0",
		})
	})

	// Логирование всех запросов
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, status, latency)
	})

	// Аудит мутирующих запросов (создание/изменение/удаление ресурсов)
	r.Use(api.AuditLogger())

	// CORS для фронтенда: куки требуют точный origin и credentials
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.FrontendURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Статика: загруженные изображения товаров
	r.Static("/uploads", cfg.UploadDir)

	// API routes
	apiGroup := r.Group("/api/v1")

	// Авторизация
	secureCookies := cfg.Environment == "production"
	authController := api.NewAuthController(authService, secureCookies)
	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/login", authController.Login)     // Вход администратора
		authGroup.POST("/refresh", authController.Refresh) // Обновление пары токенов
		authGroup.POST("/logout", authController.Logout)   // Сброс кук
		authGroup.GET("/me", authController.Me)            // Текущий пользователь
	}

	// Товары витрины
	productController := api.NewProductController(productService, cfg.UploadDir)
	productGroup := apiGroup.Group("/products")
	{
		productGroup.GET("", productController.GetProducts)          // Список с расчетной доступностью
		productGroup.POST("", productController.CreateProduct)       // Создать товар
		productGroup.POST("/upload", productController.UploadImage)  // Загрузить изображение
		productGroup.GET("/:id", productController.GetProduct)       // Один товар
		productGroup.PATCH("/:id", productController.UpdateProduct)  // Частичное обновление
		productGroup.DELETE("/:id", productController.DeleteProduct) // Удалить вместе с рецептом
		productGroup.POST("/:id/recipe", productController.SetRecipe) // Заменить рецепт целиком
	}

	// Склад ингредиентов
	inventoryController := api.NewInventoryController(inventoryService)
	inventoryGroup := apiGroup.Group("/inventory")
	{
		inventoryGroup.GET("", inventoryController.GetInventory)            // Сгруппировано по имени (?flat=true — партии)
		inventoryGroup.POST("", inventoryController.CreateIngredient)       // Оприходовать партию
		inventoryGroup.GET("/alerts", inventoryController.GetAlerts)        // Низкие остатки + истекающие сроки
		inventoryGroup.GET("/export", inventoryController.ExportInventory)  // Выгрузка в XLSX
		inventoryGroup.PATCH("/:id", inventoryController.UpdateIngredient)  // Изменить партию
		inventoryGroup.DELETE("/:id", inventoryController.DeleteIngredient) // Удалить партию
		inventoryGroup.PATCH("/:id/adjust", inventoryController.AdjustQuantity) // Приход/списание
	}

	// Заказы
	orderController := api.NewOrderController(orderService)
	orderGroup := apiGroup.Group("/orders")
	{
		orderGroup.POST("", orderController.CreateOrder)               // Новый заказ (PENDING)
		orderGroup.GET("", orderController.GetOrders)                  // Список (?status=)
		orderGroup.GET("/stats", orderController.GetOrderStats)        // Сводка продаж
		orderGroup.GET("/:id", orderController.GetOrder)               // Один заказ
		orderGroup.PATCH("/:id", orderController.UpdateOrder)          // Контактные данные
		orderGroup.PATCH("/:id/status", orderController.UpdateOrderStatus) // Смена статуса (CONFIRMED списывает склад)
		orderGroup.DELETE("/:id", orderController.DeleteOrder)         // Удалить заказ
	}

	port := cfg.ServerPort
	log.Printf("🚀 VisualBites API запущен на порту %s", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
