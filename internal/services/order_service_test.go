package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"visualbites/server/internal/models"
)

func newOrderService(t *testing.T) (*gorm.DB, *OrderService) {
	t.Helper()
	db := newTestDB(t)
	inventory := NewInventoryService(db, nil)
	return db, NewOrderService(db, nil, inventory, 30*time.Second)
}

func createOrder(t *testing.T, svc *OrderService, productID string, quantity, price int) *models.Order {
	t.Helper()
	order, err := svc.Create(CreateOrderInput{
		CustomerName:  "Dewi",
		CustomerPhone: "+628123456789",
		Total:         quantity * price,
		Items: []CreateOrderItemInput{
			{ProductID: productID, Quantity: quantity, Price: price},
		},
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderStartsPending(t *testing.T) {
	db, svc := newOrderService(t)
	product := seedProduct(t, db, "Mango Cheesecake", 45000)

	order := createOrder(t, svc, product.ID, 2, 45000)

	assert.Equal(t, models.OrderStatusPending, order.Status)

	loaded, err := svc.Get(order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
	assert.Equal(t, 45000, loaded.Items[0].Price)
}

func TestConfirmDeductsIngredientsFIFO(t *testing.T) {
	db, svc := newOrderService(t)

	early := seedBatch(t, db, "Strawberry", 4, daysFromNow(1))
	late := seedBatch(t, db, "Strawberry", 5, daysFromNow(10))

	product := seedProduct(t, db, "Strawberry Tart", 30000)
	seedRecipeLine(t, db, product.ID, early.ID, 1.5)

	// 4 единицы * 1.5 на единицу = 6: первая партия в ноль, вторая частично
	order := createOrder(t, svc, product.ID, 4, 30000)

	updated, err := svc.UpdateStatus(order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)

	assert.Equal(t, 0.0, batchQuantity(t, db, early.ID))
	assert.Equal(t, 3.0, batchQuantity(t, db, late.ID))
}

func TestConfirmShortfallRollsBackEverything(t *testing.T) {
	db, svc := newOrderService(t)

	first := seedBatch(t, db, "Blueberry", 4, daysFromNow(1))
	second := seedBatch(t, db, "Blueberry", 5, daysFromNow(10))

	product := seedProduct(t, db, "Blueberry Pie", 50000)
	seedRecipeLine(t, db, product.ID, first.ID, 10)

	order := createOrder(t, svc, product.ID, 1, 50000)

	_, err := svc.UpdateStatus(order.ID, models.OrderStatusConfirmed)
	require.Error(t, err)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Not enough stock for Blueberry. Short by 1", stockErr.Error())

	// Заказ остался PENDING, партии не тронуты
	loaded, err := svc.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, loaded.Status)
	assert.Equal(t, 4.0, batchQuantity(t, db, first.ID))
	assert.Equal(t, 5.0, batchQuantity(t, db, second.ID))
}

func TestReconfirmDoesNotDeductTwice(t *testing.T) {
	db, svc := newOrderService(t)

	batch := seedBatch(t, db, "Coconut", 10, nil)
	product := seedProduct(t, db, "Coconut Bites", 20000)
	seedRecipeLine(t, db, product.ID, batch.ID, 2)

	order := createOrder(t, svc, product.ID, 1, 20000)

	_, err := svc.UpdateStatus(order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 8.0, batchQuantity(t, db, batch.ID))

	// Туда-обратно по конвейеру: списание не повторяется
	_, err = svc.UpdateStatus(order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	assert.Equal(t, 8.0, batchQuantity(t, db, batch.ID))
}

func TestConfirmSpansMultipleItemsAndIngredients(t *testing.T) {
	db, svc := newOrderService(t)

	mango := seedBatch(t, db, "Mango", 20, nil)
	cream := seedBatch(t, db, "Cream", 15, daysFromNow(5))

	tart := seedProduct(t, db, "Mango Tart", 30000)
	seedRecipeLine(t, db, tart.ID, mango.ID, 3)
	seedRecipeLine(t, db, tart.ID, cream.ID, 1)

	order, err := svc.Create(CreateOrderInput{
		CustomerName:  "Budi",
		CustomerPhone: "+628111111111",
		Total:         150000,
		Items: []CreateOrderItemInput{
			{ProductID: tart.ID, Quantity: 3, Price: 30000},
			{ProductID: tart.ID, Quantity: 2, Price: 30000},
		},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	// 5 единиц: манго 5*3=15, сливки 5*1=5
	assert.Equal(t, 5.0, batchQuantity(t, db, mango.ID))
	assert.Equal(t, 10.0, batchQuantity(t, db, cream.ID))
}

func TestProductWithoutRecipeConfirms(t *testing.T) {
	db, svc := newOrderService(t)

	product := seedProduct(t, db, "Gift Card", 100000)
	order := createOrder(t, svc, product.ID, 1, 100000)

	updated, err := svc.UpdateStatus(order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
}

func TestInvalidTransitionRejected(t *testing.T) {
	db, svc := newOrderService(t)

	product := seedProduct(t, db, "Brownie", 25000)
	order := createOrder(t, svc, product.ID, 1, 25000)

	_, err := svc.UpdateStatus(order.ID, models.OrderStatusShipped)
	require.Error(t, err)

	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.OrderStatusPending, transitionErr.From)
	assert.Equal(t, models.OrderStatusShipped, transitionErr.To)
}

func TestCancelledIsTerminal(t *testing.T) {
	db, svc := newOrderService(t)

	product := seedProduct(t, db, "Eclair", 15000)
	order := createOrder(t, svc, product.ID, 1, 15000)

	_, err := svc.UpdateStatus(order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	for _, target := range []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusCompleted,
	} {
		_, err := svc.UpdateStatus(order.ID, target)
		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr, "CANCELLED -> %s должен быть запрещен", target)
	}
}

func TestCancelDoesNotTouchStock(t *testing.T) {
	db, svc := newOrderService(t)

	batch := seedBatch(t, db, "Almond", 10, nil)
	product := seedProduct(t, db, "Almond Cake", 40000)
	seedRecipeLine(t, db, product.ID, batch.ID, 2)

	order := createOrder(t, svc, product.ID, 3, 40000)

	_, err := svc.UpdateStatus(order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, 10.0, batchQuantity(t, db, batch.ID))
}

func TestListFiltersByStatus(t *testing.T) {
	db, svc := newOrderService(t)

	product := seedProduct(t, db, "Cookie", 10000)
	createOrder(t, svc, product.ID, 1, 10000)
	confirmed := createOrder(t, svc, product.ID, 1, 10000)

	_, err := svc.UpdateStatus(confirmed.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	pending, err := svc.List(models.OrderStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStatisticsCountActiveOrdersOnly(t *testing.T) {
	db, svc := newOrderService(t)

	product := seedProduct(t, db, "Tiramisu", 60000)

	// PENDING — не считается
	createOrder(t, svc, product.ID, 1, 60000)

	confirmed := createOrder(t, svc, product.ID, 2, 60000)
	_, err := svc.UpdateStatus(confirmed.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)

	cancelled := createOrder(t, svc, product.ID, 5, 60000)
	_, err = svc.UpdateStatus(cancelled.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	stats, err := svc.GetStatistics()
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ActiveOrders)
	assert.Equal(t, 120000, stats.TotalEarnings)
	assert.Equal(t, 2, stats.ItemsSold)

	require.Len(t, stats.Chart, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), stats.Chart[0].Date)
	assert.Equal(t, 120000, stats.Chart[0].Revenue)
}

func TestRemoveDeletesItems(t *testing.T) {
	db, svc := newOrderService(t)

	product := seedProduct(t, db, "Donut", 12000)
	order := createOrder(t, svc, product.ID, 2, 12000)

	require.NoError(t, svc.Remove(order.ID))

	_, err := svc.Get(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	var count int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRemoveUnknownOrder(t *testing.T) {
	_, svc := newOrderService(t)
	err := svc.Remove("00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
