package api

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"visualbites/server/internal/models"
	"visualbites/server/internal/services"
)

// Максимальный размер загружаемого изображения товара
const maxUploadSize = 5 << 20 // 5 MB

// Разрешенные расширения изображений
var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".avif": true,
	".gif":  true,
}

// ProductController управляет API endpoints товаров витрины
type ProductController struct {
	productService *services.ProductService
	uploadDir      string
}

// NewProductController создает новый контроллер товаров
func NewProductController(productService *services.ProductService, uploadDir string) *ProductController {
	return &ProductController{
		productService: productService,
		uploadDir:      uploadDir,
	}
}

// GetProducts возвращает все товары с расчетной доступностью по рецептам
// GET /api/v1/products
func (pc *ProductController) GetProducts(c *gin.Context) {
	products, err := pc.productService.List()
	if err != nil {
		handleServiceError(c, err, "Ошибка получения товаров")
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct возвращает один товар
// GET /api/v1/products/:id
func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.productService.Get(c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Ошибка получения товара")
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct создает товар
// POST /api/v1/products
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var request struct {
		Name        string   `json:"name" binding:"required"`
		Tag         string   `json:"tag" binding:"required"`
		Badge       *string  `json:"badge"`
		Description string   `json:"description" binding:"required"`
		Price       int      `json:"price" binding:"required,min=0"`
		Stock       int      `json:"stock" binding:"min=0"`
		Flavors     []string `json:"flavors"`
		Image       string   `json:"image" binding:"required"`
		Sticker     *string  `json:"sticker"`
		Status      string   `json:"status" binding:"omitempty,oneof=ACTIVE DRAFT ARCHIVED"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	product, err := pc.productService.Create(services.CreateProductInput{
		Name:        request.Name,
		Tag:         request.Tag,
		Badge:       request.Badge,
		Description: request.Description,
		Price:       request.Price,
		Stock:       request.Stock,
		Flavors:     request.Flavors,
		Image:       request.Image,
		Sticker:     request.Sticker,
		Status:      models.ProductStatus(request.Status),
	})
	if err != nil {
		handleServiceError(c, err, "Ошибка создания товара")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct частично обновляет товар
// PATCH /api/v1/products/:id
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var request struct {
		Name        *string  `json:"name"`
		Tag         *string  `json:"tag"`
		Badge       *string  `json:"badge"`
		Description *string  `json:"description"`
		Price       *int     `json:"price" binding:"omitempty,min=0"`
		Stock       *int     `json:"stock" binding:"omitempty,min=0"`
		Flavors     []string `json:"flavors"`
		Image       *string  `json:"image"`
		Sticker     *string  `json:"sticker"`
		Status      *string  `json:"status" binding:"omitempty,oneof=ACTIVE DRAFT ARCHIVED"`
		SoldCount   *int     `json:"soldCount" binding:"omitempty,min=0"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	input := services.UpdateProductInput{
		Name:        request.Name,
		Tag:         request.Tag,
		Badge:       request.Badge,
		Description: request.Description,
		Price:       request.Price,
		Stock:       request.Stock,
		Flavors:     request.Flavors,
		Image:       request.Image,
		Sticker:     request.Sticker,
		SoldCount:   request.SoldCount,
	}
	if request.Status != nil {
		status := models.ProductStatus(*request.Status)
		input.Status = &status
	}

	product, err := pc.productService.Update(c.Param("id"), input)
	if err != nil {
		handleServiceError(c, err, "Ошибка обновления товара")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct удаляет товар вместе с рецептом
// DELETE /api/v1/products/:id
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.productService.Delete(c.Param("id")); err != nil {
		handleServiceError(c, err, "Ошибка удаления товара")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// SetRecipe заменяет рецепт товара целиком
// POST /api/v1/products/:id/recipe
func (pc *ProductController) SetRecipe(c *gin.Context) {
	var request struct {
		Items []struct {
			IngredientID string  `json:"ingredientId" binding:"required"`
			Quantity     float64 `json:"quantity" binding:"required,gt=0"`
		} `json:"items" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	items := make([]services.RecipeItemInput, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, services.RecipeItemInput{
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
		})
	}

	product, err := pc.productService.SetRecipe(c.Param("id"), items)
	if err != nil {
		handleServiceError(c, err, "Ошибка замены рецепта")
		return
	}

	c.JSON(http.StatusOK, product)
}

// UploadImage принимает изображение товара и возвращает его URL
// POST /api/v1/products/upload
func (pc *ProductController) UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Файл не передан",
			"details": err.Error(),
		})
		return
	}

	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл больше 5MB"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый формат изображения"})
		return
	}

	// Имя файла генерируем сами: оригинальное имя не попадает на диск
	filename := uuid.New().String() + ext
	dst := filepath.Join(pc.uploadDir, filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Printf("❌ Ошибка сохранения файла %s: %v", dst, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка сохранения файла"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": fmt.Sprintf("/uploads/%s", filename)})
}
