package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ingredient представляет партию ингредиента на складе
// Одно наименование (name) может состоять из нескольких партий с разными
// сроками годности. Партии никогда не сливаются: каждая поставка — новая строка.
type Ingredient struct {
	ID                string     `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string     `json:"name" gorm:"type:varchar(255);not null;index"`
	Quantity          float64    `json:"quantity" gorm:"not null;default:0"`
	Unit              string     `json:"unit" gorm:"type:varchar(20);not null"`
	MinStock          float64    `json:"minStock" gorm:"not null;default:0"`
	ExpiryDate        *time.Time `json:"expiryDate" gorm:"index"` // NULL если срок годности не отслеживается
	ExpiryWarningDays int        `json:"expiryWarningDays" gorm:"not null;default:7"`
	CreatedAt         time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (Ingredient) TableName() string {
	return "ingredients"
}

// BeforeCreate генерирует UUID
func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// IsExpiringSoon проверяет, попадает ли партия в окно предупреждения о сроке годности
func (i *Ingredient) IsExpiringSoon(now time.Time) bool {
	if i.ExpiryDate == nil {
		return false
	}
	warningWindow := time.Duration(i.ExpiryWarningDays) * 24 * time.Hour
	return i.ExpiryDate.Before(now.Add(warningWindow))
}
