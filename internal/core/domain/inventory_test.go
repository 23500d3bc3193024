package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(quantity, minStock, maxStock int) InventoryRecord {
	return InventoryRecord{ProductID: "p-1", Quantity: quantity, MinStock: minStock, MaxStock: maxStock, Version: 1}
}

func TestValidate_LowStock(t *testing.T) {
	res := record(5, 10, 100).Validate(3, ProductStatusActive, testNow)

	assert.True(t, res.IsAvailable)
	assert.Equal(t, 2, res.RemainingStock)
	assert.True(t, res.Has(StockLow))
	assert.True(t, res.Has(StockAvailable))
}

func TestValidate_Insufficient(t *testing.T) {
	res := record(5, 0, 100).Validate(6, ProductStatusActive, testNow)

	assert.False(t, res.IsAvailable)
	assert.Equal(t, 0, res.RemainingStock)
	assert.True(t, res.Has(StockInsufficient))
	assert.False(t, res.Has(StockAvailable))
}

func TestValidate_OutOfStock(t *testing.T) {
	res := record(0, 0, 100).Validate(1, ProductStatusActive, testNow)

	assert.False(t, res.IsAvailable)
	assert.True(t, res.Has(StockOutOfStock))
	assert.False(t, res.Has(StockInsufficient))
}

func TestValidate_ExpiredRegardlessOfQuantity(t *testing.T) {
	for _, expiry := range []time.Time{testNow, testNow.Add(-48 * time.Hour)} {
		rec := record(1000, 0, 1000)
		rec.ExpiryDate = &expiry

		res := rec.Validate(1, ProductStatusActive, testNow)

		assert.False(t, res.IsAvailable)
		assert.True(t, res.Has(StockExpired))
		require.NotNil(t, res.DaysUntilExpiry)
	}
}

func TestValidate_ExpiryWindows(t *testing.T) {
	soon := testNow.AddDate(0, 0, 30)
	notice := testNow.AddDate(0, 0, 60)
	far := testNow.AddDate(1, 0, 0)

	rec := record(50, 0, 100)
	rec.ExpiryDate = &soon
	res := rec.Validate(1, ProductStatusActive, testNow)
	assert.True(t, res.IsAvailable)
	assert.True(t, res.Has(StockExpiringSoon))
	assert.Equal(t, 30, *res.DaysUntilExpiry)

	rec.ExpiryDate = &notice
	res = rec.Validate(1, ProductStatusActive, testNow)
	assert.False(t, res.Has(StockExpiringSoon))
	assert.Len(t, res.Warnings, 1)

	rec.ExpiryDate = &far
	res = rec.Validate(1, ProductStatusActive, testNow)
	assert.Empty(t, res.Warnings)
}

func TestValidate_InactiveProduct(t *testing.T) {
	res := record(50, 0, 100).Validate(1, ProductStatusInactive, testNow)

	assert.False(t, res.IsAvailable)
	assert.True(t, res.Has(StockInactive))
}

func TestValidate_Idempotent(t *testing.T) {
	expiry := testNow.AddDate(0, 0, 10)
	rec := record(5, 10, 100)
	rec.ExpiryDate = &expiry

	first := rec.Validate(3, ProductStatusActive, testNow)
	second := rec.Validate(3, ProductStatusActive, testNow)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, rec.Quantity)
}

func TestAdjust(t *testing.T) {
	rec := record(10, 0, 20)

	next, movement, err := rec.Adjust(5, "restock", MovementIncrease, testNow)
	require.NoError(t, err)
	assert.Equal(t, 15, next.Quantity)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, MovementIncrease, movement.Kind)
	assert.Equal(t, 15, movement.QuantityAfter)

	next, _, err = rec.Adjust(-10, "shrinkage", MovementDecrease, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Quantity)

	_, _, err = rec.Adjust(11, "restock", MovementIncrease, testNow)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
	_, _, err = rec.Adjust(-11, "shrinkage", MovementDecrease, testNow)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
	_, _, err = rec.Adjust(1, "  ", MovementIncrease, testNow)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
	_, _, err = rec.Adjust(1, "x", MovementRelease, testNow)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}

func TestDebit(t *testing.T) {
	rec := record(5, 0, 100)

	next, movement, err := rec.Debit(5, "order-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Quantity)
	assert.Equal(t, -5, movement.Delta)
	assert.Equal(t, MovementRelease, movement.Kind)
	assert.Equal(t, "order-1", movement.Reference)

	_, _, err = rec.Debit(6, "order-2", testNow)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, _, err = rec.Debit(0, "order-3", testNow)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}
