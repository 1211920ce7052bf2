package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusReady      OrderStatus = "READY"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Valid проверяет, что статус входит в список известных
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusReady, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// ActiveOrderStatuses — статусы, которые учитываются в статистике продаж
// (подтвержденные и далее; PENDING и CANCELLED не считаются)
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusReady,
	OrderStatusShipped,
	OrderStatusCompleted,
}

// Order представляет заказ покупателя
type Order struct {
	ID            string      `json:"id" gorm:"type:uuid;primaryKey"`
	CustomerName  string      `json:"customerName" gorm:"type:varchar(255);not null"`
	CustomerPhone string      `json:"customerPhone" gorm:"type:varchar(20);not null"`
	Total         int         `json:"total" gorm:"not null"` // Сумма заказа в IDR, приходит от клиента
	Status        OrderStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CreatedAt     time.Time   `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`

	// Relations
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName указывает имя таблицы
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate генерирует UUID
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// CanTransitionTo проверяет, разрешен ли переход статуса (State Machine)
// Переходы "назад" на один шаг разрешены для исправления ошибок оператора
func (o *Order) CanTransitionTo(newStatus OrderStatus) bool {
	currentStatus := o.Status

	// CANCELLED -> ANY: STRICTLY PROHIBITED
	if currentStatus == OrderStatusCancelled {
		return false
	}

	// Разрешенные переходы
	allowedTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusReady, OrderStatusConfirmed},
		OrderStatusReady:      {OrderStatusShipped, OrderStatusProcessing},
		OrderStatusShipped:    {OrderStatusCompleted, OrderStatusReady},
		OrderStatusCompleted:  {OrderStatusShipped},
	}

	if allowed, ok := allowedTransitions[currentStatus]; ok {
		for _, allowedStatus := range allowed {
			if allowedStatus == newStatus {
				return true
			}
		}
	}

	return false
}

// OrderItem представляет позицию заказа. После создания не изменяется:
// price — снимок цены товара на момент оформления
type OrderItem struct {
	ID        string   `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   string   `json:"orderId" gorm:"type:uuid;not null;index"`
	ProductID string   `json:"productId" gorm:"type:uuid;not null"`
	Product   *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity  int      `json:"quantity" gorm:"not null"`
	Price     int      `json:"price" gorm:"not null"`
	Flavor    *string  `json:"flavor,omitempty" gorm:"type:varchar(100)"`
}

// TableName указывает имя таблицы
func (OrderItem) TableName() string {
	return "order_items"
}

// BeforeCreate генерирует UUID
func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == "" {
		oi.ID = uuid.New().String()
	}
	return nil
}
