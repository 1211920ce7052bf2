package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductStatus представляет статус товара на витрине
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// Product представляет товар витрины (замороженные десерты)
type Product struct {
	ID          string        `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string        `json:"name" gorm:"type:varchar(255);not null"`
	Tag         string        `json:"tag" gorm:"type:varchar(100);not null"`
	Badge       *string       `json:"badge,omitempty" gorm:"type:varchar(100)"`
	Description string        `json:"description" gorm:"type:text;not null"`
	Price       int           `json:"price" gorm:"not null"` // Цена в IDR, целое число
	Stock       int           `json:"stock" gorm:"not null;default:0"` // Ручной остаток, используется если рецепт не задан
	Flavors     string        `json:"-" gorm:"type:text"` // JSON массив вкусов
	Image       string        `json:"image" gorm:"type:text;not null"`
	Sticker     *string       `json:"sticker,omitempty" gorm:"type:text"`
	Status      ProductStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	SoldCount   int           `json:"soldCount" gorm:"not null;default:0"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`

	// Relations
	Recipe []ProductIngredient `json:"recipe,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	// Virtual fields for UI
	FlavorList      []string `json:"flavors" gorm:"-"`
	ProducibleStock int      `json:"producibleStock" gorm:"-"` // Сколько единиц можно собрать из текущих остатков
	HasOutOfStock   bool     `json:"hasOutOfStock" gorm:"-"`   // Хотя бы одна позиция рецепта не покрыта остатками
}

// TableName указывает имя таблицы
func (Product) TableName() string {
	return "products"
}

// BeforeCreate генерирует UUID
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave сериализует список вкусов в JSON строку
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.FlavorList == nil {
		return nil
	}
	data, err := json.Marshal(p.FlavorList)
	if err != nil {
		return err
	}
	p.Flavors = string(data)
	return nil
}

// AfterFind восстанавливает список вкусов из JSON строки
func (p *Product) AfterFind(tx *gorm.DB) error {
	p.FlavorList = []string{}
	if p.Flavors == "" {
		return nil
	}
	return json.Unmarshal([]byte(p.Flavors), &p.FlavorList)
}

// ProductIngredient представляет строку рецепта: сколько ингредиента
// уходит на одну единицу товара
type ProductIngredient struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID    string      `json:"productId" gorm:"type:uuid;not null;index;uniqueIndex:idx_product_ingredient"`
	IngredientID string      `json:"ingredientId" gorm:"type:uuid;not null;uniqueIndex:idx_product_ingredient"`
	Ingredient   *Ingredient `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Quantity     float64     `json:"quantity" gorm:"not null"` // Расход на единицу товара

	// Virtual fields for UI
	AvailableStock float64 `json:"availableStock" gorm:"-"` // Суммарный остаток по имени ингредиента
	IsOutOfStock   bool    `json:"isOutOfStock" gorm:"-"`
}

// TableName указывает имя таблицы
func (ProductIngredient) TableName() string {
	return "product_ingredients"
}

// BeforeCreate генерирует UUID
func (pi *ProductIngredient) BeforeCreate(tx *gorm.DB) error {
	if pi.ID == "" {
		pi.ID = uuid.New().String()
	}
	return nil
}
