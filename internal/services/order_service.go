package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"visualbites/server/internal/models"
	"visualbites/server/internal/utils"
)

// OrderService управляет заказами и их жизненным циклом.
// Списание ингредиентов происходит ровно один раз — при переходе
// PENDING -> CONFIRMED, в одной транзакции со сменой статуса.
type OrderService struct {
	db        *gorm.DB
	cache     *utils.RedisClient
	inventory *InventoryService
	cacheTTL  time.Duration
}

// NewOrderService создает новый сервис заказов
func NewOrderService(db *gorm.DB, cache *utils.RedisClient, inventory *InventoryService, cacheTTL time.Duration) *OrderService {
	return &OrderService{
		db:        db,
		cache:     cache,
		inventory: inventory,
		cacheTTL:  cacheTTL,
	}
}

// CreateOrderItemInput — позиция нового заказа
type CreateOrderItemInput struct {
	ProductID string
	Quantity  int
	Price     int
	Flavor    *string
}

// CreateOrderInput — данные нового заказа.
// Сумма приходит от клиента и сохраняется как есть (совместимость с витриной)
type CreateOrderInput struct {
	CustomerName  string
	CustomerPhone string
	Total         int
	Items         []CreateOrderItemInput
}

// UpdateOrderInput — частичное обновление контактных данных заказа
type UpdateOrderInput struct {
	CustomerName  *string
	CustomerPhone *string
	Total         *int
}

// Create создает заказ в статусе PENDING вместе с позициями
func (s *OrderService) Create(input CreateOrderInput) (*models.Order, error) {
	order := models.Order{
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Total:         input.Total,
		Status:        models.OrderStatusPending,
	}
	for _, item := range input.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Flavor:    item.Flavor,
		})
	}

	if err := s.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	return &order, nil
}

// List возвращает заказы, опционально отфильтрованные по статусу
func (s *OrderService) List(status models.OrderStatus) ([]models.Order, error) {
	query := s.db.Preload("Items").Preload("Items.Product").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("ошибка загрузки заказов: %w", err)
	}
	return orders, nil
}

// Get возвращает заказ с позициями
func (s *OrderService) Get(id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Preload("Items.Product").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Update изменяет контактные данные заказа. Позиции после создания неизменны
func (s *OrderService) Update(id string, input UpdateOrderInput) (*models.Order, error) {
	order, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.CustomerName != nil {
		order.CustomerName = *input.CustomerName
	}
	if input.CustomerPhone != nil {
		order.CustomerPhone = *input.CustomerPhone
	}
	if input.Total != nil {
		order.Total = *input.Total
	}

	if err := s.db.Omit("Items").Save(order).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
	}

	s.invalidateStatsCache()
	return order, nil
}

// UpdateStatus переводит заказ в новый статус с проверкой таблицы переходов.
// Только переход PENDING -> CONFIRMED списывает ингредиенты; возврат на
// CONFIRMED из PROCESSING повторного списания не вызывает
func (s *OrderService) UpdateStatus(id string, target models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: order.Status, To: target}
	}

	if order.Status == models.OrderStatusPending && target == models.OrderStatusConfirmed {
		if err := s.confirmWithRetry(order.ID); err != nil {
			return nil, err
		}
		// Подтверждение изменило остатки — кэш витрины устарел
		s.invalidateProductsCache()
	} else {
		if err := s.db.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", target).Error; err != nil {
			return nil, fmt.Errorf("ошибка обновления статуса заказа: %w", err)
		}
	}

	s.invalidateStatsCache()
	return s.Get(id)
}

// confirmWithRetry выполняет подтверждение заказа с retry при
// serialization failure (SERIALIZABLE изоляция может отклонять транзакции)
func (s *OrderService) confirmWithRetry(orderID string) error {
	maxRetries := 5
	baseDelay := 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.confirmInTransaction(orderID)
		if err == nil {
			if attempt > 0 {
				log.Printf("✅ Подтверждение заказа %s: успешно после %d попыток", orderID, attempt+1)
			}
			return nil
		}

		if isSerializationFailure(err) {
			if attempt < maxRetries-1 {
				// Exponential backoff with jitter
				delay := baseDelay * time.Duration(1<<uint(attempt))
				jitter := time.Duration(rand.Intn(10)) * time.Millisecond
				totalDelay := delay + jitter

				log.Printf("⚠️ Подтверждение заказа %s: serialization failure (попытка %d/%d), retry через %v",
					orderID, attempt+1, maxRetries, totalDelay)
				time.Sleep(totalDelay)
				continue
			}
			return fmt.Errorf("serialization failure after %d attempts: %w", maxRetries, err)
		}

		// Ошибки домена (нехватка остатков) возвращаем без ретраев
		return err
	}

	return fmt.Errorf("unreachable code")
}

// confirmInTransaction списывает ингредиенты по всем позициям заказа и
// меняет статус на CONFIRMED в одной транзакции с SERIALIZABLE изоляцией.
// Любая нехватка откатывает и списания, и смену статуса
func (s *OrderService) confirmInTransaction(orderID string) error {
	ctx := context.Background()

	tx := s.db.WithContext(ctx).Begin(&sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if tx.Error != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Перечитываем заказ внутри транзакции: параллельное подтверждение
	// того же заказа не должно списать ингредиенты дважды
	var order models.Order
	if err := tx.Preload("Items").Preload("Items.Product").
		Preload("Items.Product.Recipe").Preload("Items.Product.Recipe.Ingredient").
		First(&order, "id = ?", orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status != models.OrderStatusPending {
		tx.Rollback()
		return &InvalidTransitionError{From: order.Status, To: models.OrderStatusConfirmed}
	}

	for _, item := range order.Items {
		if item.Product == nil {
			continue
		}
		for _, line := range item.Product.Recipe {
			if line.Ingredient == nil {
				continue
			}
			totalNeeded := line.Quantity * float64(item.Quantity)
			if err := s.inventory.ConsumeInTx(tx, line.Ingredient.Name, totalNeeded); err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	if err := tx.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", models.OrderStatusConfirmed).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка смены статуса: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("ошибка commit транзакции: %w", err)
	}

	return nil
}

// isSerializationFailure проверяет, является ли ошибка serialization failure
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL error codes:
	// 40001 - serialization_failure
	// 40P01 - deadlock_detected
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	// Check error message as fallback
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "could not serialize") ||
		strings.Contains(errMsg, "deadlock")
}

// Remove удаляет заказ вместе с позициями
func (s *OrderService) Remove(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Order{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateStatsCache()
	return nil
}

// RevenuePoint — выручка за календарный день (UTC)
type RevenuePoint struct {
	Date    string `json:"date"`
	Revenue int    `json:"revenue"`
}

// OrderStatistics — сводка продаж по активным заказам
type OrderStatistics struct {
	ActiveOrders  int            `json:"activeOrders"`
	TotalEarnings int            `json:"totalEarnings"`
	ItemsSold     int            `json:"itemsSold"`
	Chart         []RevenuePoint `json:"chart"`
}

// GetStatistics считает сводку по заказам в статусах CONFIRMED..COMPLETED.
// PENDING и CANCELLED в статистику не входят
func (s *OrderService) GetStatistics() (*OrderStatistics, error) {
	if s.cache != nil {
		var cached OrderStatistics
		if err := s.cache.GetJSON(cacheKeyOrderStats, &cached); err == nil {
			return &cached, nil
		}
	}

	var orders []models.Order
	if err := s.db.Preload("Items").
		Where("status IN ?", models.ActiveOrderStatuses).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("ошибка загрузки заказов для статистики: %w", err)
	}

	stats := &OrderStatistics{Chart: []RevenuePoint{}}
	revenueByDay := map[string]int{}

	for _, order := range orders {
		stats.ActiveOrders++
		stats.TotalEarnings += order.Total
		for _, item := range order.Items {
			stats.ItemsSold += item.Quantity
		}

		day := order.CreatedAt.UTC().Format("2006-01-02")
		revenueByDay[day] += order.Total
	}

	days := make([]string, 0, len(revenueByDay))
	for day := range revenueByDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		stats.Chart = append(stats.Chart, RevenuePoint{Date: day, Revenue: revenueByDay[day]})
	}

	if s.cache != nil {
		if err := s.cache.Set(cacheKeyOrderStats, stats, s.cacheTTL); err != nil {
			log.Printf("⚠️ Не удалось закэшировать статистику: %v", err)
		}
	}

	return stats, nil
}

func (s *OrderService) invalidateStatsCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cacheKeyOrderStats); err != nil {
		log.Printf("⚠️ Не удалось сбросить кэш статистики: %v", err)
	}
}

func (s *OrderService) invalidateProductsCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cacheKeyProducts); err != nil {
		log.Printf("⚠️ Не удалось сбросить кэш товаров: %v", err)
	}
}
