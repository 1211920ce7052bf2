package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConsumeDeductsByExpiryOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	// Партия с поздним сроком создана первой: порядок списания
	// определяется сроком годности, а не порядком создания
	late := seedBatch(t, db, "Mango", 5, daysFromNow(10))
	early := seedBatch(t, db, "Mango", 4, daysFromNow(2))

	require.NoError(t, svc.ConsumeInTx(db, "Mango", 6))

	assert.Equal(t, 0.0, batchQuantity(t, db, early.ID))
	assert.Equal(t, 3.0, batchQuantity(t, db, late.ID))
}

func TestConsumeNullExpiryFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	dated := seedBatch(t, db, "Vanilla", 5, daysFromNow(1))
	undated := seedBatch(t, db, "Vanilla", 3, nil)

	require.NoError(t, svc.ConsumeInTx(db, "Vanilla", 4))

	// Партии без срока годности уходят первыми
	assert.Equal(t, 0.0, batchQuantity(t, db, undated.ID))
	assert.Equal(t, 4.0, batchQuantity(t, db, dated.ID))
}

func TestConsumeExactDepletion(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	first := seedBatch(t, db, "Choco", 4, daysFromNow(1))
	second := seedBatch(t, db, "Choco", 5, daysFromNow(2))

	require.NoError(t, svc.ConsumeInTx(db, "Choco", 9))

	assert.Equal(t, 0.0, batchQuantity(t, db, first.ID))
	assert.Equal(t, 0.0, batchQuantity(t, db, second.ID))
}

func TestConsumeShortfallReportsExactAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	first := seedBatch(t, db, "Matcha", 2, daysFromNow(1))
	second := seedBatch(t, db, "Matcha", 1, daysFromNow(2))

	// Списание в транзакции: нехватка откатывает частичные списания
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ConsumeInTx(tx, "Matcha", 5)
	})

	require.Error(t, err)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Matcha", stockErr.Ingredient)
	assert.Equal(t, 2.0, stockErr.Shortfall)
	assert.Equal(t, "Not enough stock for Matcha. Short by 2", err.Error())

	// Откат вернул партии в исходное состояние
	assert.Equal(t, 2.0, batchQuantity(t, db, first.ID))
	assert.Equal(t, 1.0, batchQuantity(t, db, second.ID))
}

func TestConsumeIgnoresEmptyBatchesAndOtherNames(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	empty := seedBatch(t, db, "Berry", 0, nil)
	other := seedBatch(t, db, "Cream", 10, nil)
	target := seedBatch(t, db, "Berry", 5, daysFromNow(3))

	require.NoError(t, svc.ConsumeInTx(db, "Berry", 5))

	assert.Equal(t, 0.0, batchQuantity(t, db, target.ID))
	assert.Equal(t, 0.0, batchQuantity(t, db, empty.ID))
	assert.Equal(t, 10.0, batchQuantity(t, db, other.ID))
}

func TestConsumeConservation(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	seedBatch(t, db, "Milk", 7, daysFromNow(1))
	seedBatch(t, db, "Milk", 4, daysFromNow(5))
	seedBatch(t, db, "Milk", 2, nil)

	require.NoError(t, svc.ConsumeInTx(db, "Milk", 8.5))

	groups, err := svc.List()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.InDelta(t, 13-8.5, groups[0].TotalQuantity, 1e-9)
}

func TestAdjustSubtractBelowZeroRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	batch := seedBatch(t, db, "Sugar", 30, nil)

	_, err := svc.Adjust(batch.ID, 50, "subtract")
	require.ErrorIs(t, err, ErrNegativeQuantity)

	// Партия не изменилась
	assert.Equal(t, 30.0, batchQuantity(t, db, batch.ID))

	// Списание ровно до нуля разрешено
	updated, err := svc.Adjust(batch.ID, 30, "subtract")
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.Quantity)
}

func TestAdjustAdd(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	batch := seedBatch(t, db, "Flour", 10, nil)

	updated, err := svc.Adjust(batch.ID, 2.5, "add")
	require.NoError(t, err)
	assert.Equal(t, 12.5, updated.Quantity)
}

func TestAdjustUnknownBatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	_, err := svc.Adjust("00000000-0000-0000-0000-000000000000", 1, "add")
	assert.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestCreateNeverMergesBatches(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	_, err := svc.Create(CreateIngredientInput{Name: "Salt", Quantity: 5, Unit: "g"})
	require.NoError(t, err)
	_, err = svc.Create(CreateIngredientInput{Name: "Salt", Quantity: 3, Unit: "g"})
	require.NoError(t, err)

	batches, err := svc.ListFlat()
	require.NoError(t, err)
	assert.Len(t, batches, 2)

	groups, err := svc.List()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 8.0, groups[0].TotalQuantity)
	assert.Len(t, groups[0].Batches, 2)
}

func TestListGroupsByName(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	seedBatch(t, db, "Mango", 5, daysFromNow(10))
	seedBatch(t, db, "Mango", 4, daysFromNow(2))
	seedBatch(t, db, "Cream", 7, nil)

	groups, err := svc.List()
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Имена по алфавиту, партии внутри группы — в порядке списания
	assert.Equal(t, "Cream", groups[0].Name)
	assert.Equal(t, "Mango", groups[1].Name)
	require.Len(t, groups[1].Batches, 2)
	assert.Equal(t, 4.0, groups[1].Batches[0].Quantity)
	assert.Equal(t, 5.0, groups[1].Batches[1].Quantity)
}

func TestAlerts(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	// Остаток ниже минимума
	low := seedBatch(t, db, "Pistachio", 2, nil)
	low.MinStock = 10
	require.NoError(t, db.Save(&low).Error)

	// Срок годности внутри окна предупреждения (дефолт 7 дней)
	seedBatch(t, db, "Cream", 50, daysFromNow(3))

	// Все в порядке
	seedBatch(t, db, "Sugar", 100, daysFromNow(60))

	alerts, err := svc.Alerts()
	require.NoError(t, err)

	require.Len(t, alerts.LowStock, 1)
	assert.Equal(t, "Pistachio", alerts.LowStock[0].Name)

	require.Len(t, alerts.Expiring, 1)
	assert.Equal(t, "Cream", alerts.Expiring[0].Name)
}

func TestUpdateAndDeleteBatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	batch := seedBatch(t, db, "Honey", 5, nil)

	newName := "Wild Honey"
	newQty := 8.0
	updated, err := svc.Update(batch.ID, UpdateIngredientInput{Name: &newName, Quantity: &newQty})
	require.NoError(t, err)
	assert.Equal(t, "Wild Honey", updated.Name)
	assert.Equal(t, 8.0, updated.Quantity)

	require.NoError(t, svc.Delete(batch.ID))
	_, err = svc.Get(batch.ID)
	assert.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestExportXLSX(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db, nil)

	seedBatch(t, db, "Mango", 5, daysFromNow(10))
	seedBatch(t, db, "Cream", 7, nil)

	f, err := svc.ExportXLSX()
	require.NoError(t, err)

	rows, err := f.GetRows("Stock")
	require.NoError(t, err)
	// Заголовок + две партии
	assert.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "Cream", rows[1][0])
}
