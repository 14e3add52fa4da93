package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEquipmentStartsFullyAvailable(t *testing.T) {
	database, ctx := newTestStore(t)

	equipment, err := CreateEquipment(ctx, database, "Canon R5", "camera", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, equipment.TotalQty)
	assert.Equal(t, 4, equipment.AvailableQty)
}

func TestDecrementAvailable(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Tripod", 10)

	require.NoError(t, DecrementAvailable(ctx, database, equipment.ID, 3))
	assert.Equal(t, 7, availableQty(t, database, equipment.ID))
}

func TestDecrementInsufficientStockLeavesLedgerUntouched(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Tripod", 3)

	err := DecrementAvailable(ctx, database, equipment.ID, 5)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	assert.Equal(t, 3, availableQty(t, database, equipment.ID))
}

func TestDecrementToZeroThenFail(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Lens 50mm", 10)

	// Drain 5, then 2 and 3 to reach zero.
	require.NoError(t, DecrementAvailable(ctx, database, equipment.ID, 5))
	require.NoError(t, DecrementAvailable(ctx, database, equipment.ID, 2))
	require.NoError(t, DecrementAvailable(ctx, database, equipment.ID, 3))
	assert.Equal(t, 0, availableQty(t, database, equipment.ID))

	err := DecrementAvailable(ctx, database, equipment.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, availableQty(t, database, equipment.ID))
}

func TestIncrementAvailable(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Flash", 8)

	require.NoError(t, DecrementAvailable(ctx, database, equipment.ID, 5))
	require.NoError(t, IncrementAvailable(ctx, database, equipment.ID, 2))
	assert.Equal(t, 5, availableQty(t, database, equipment.ID))
}

func TestIncrementClampedToTotal(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Reflector", 5)

	// Nothing is checked out; a stray restock must not push past total.
	require.NoError(t, IncrementAvailable(ctx, database, equipment.ID, 3))
	assert.Equal(t, 5, availableQty(t, database, equipment.ID))
}

func TestIncrementOvershootClamped(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Monitor", 6)

	require.NoError(t, DecrementAvailable(ctx, database, equipment.ID, 2))
	require.NoError(t, IncrementAvailable(ctx, database, equipment.ID, 100))
	assert.Equal(t, 6, availableQty(t, database, equipment.ID))
}

func TestSetAvailableClamped(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Gimbal", 7)

	require.NoError(t, SetAvailable(ctx, database, equipment.ID, 3))
	assert.Equal(t, 3, availableQty(t, database, equipment.ID))

	require.NoError(t, SetAvailable(ctx, database, equipment.ID, 100))
	assert.Equal(t, 7, availableQty(t, database, equipment.ID))

	require.NoError(t, SetAvailable(ctx, database, equipment.ID, -5))
	assert.Equal(t, 0, availableQty(t, database, equipment.ID))
}

func TestDecrementRejectsNonPositiveQty(t *testing.T) {
	database, ctx := newTestStore(t)
	equipment := seedEquipment(t, database, "Slider", 2)

	require.ErrorIs(t, DecrementAvailable(ctx, database, equipment.ID, 0), ErrInvalidQuantity)
	require.ErrorIs(t, DecrementAvailable(ctx, database, equipment.ID, -1), ErrInvalidQuantity)
}

func TestLedgerOpsOnMissingEquipment(t *testing.T) {
	database, ctx := newTestStore(t)

	require.ErrorIs(t, DecrementAvailable(ctx, database, 999, 1), ErrNotFound)
	require.ErrorIs(t, IncrementAvailable(ctx, database, 999, 1), ErrNotFound)
	require.ErrorIs(t, SetAvailable(ctx, database, 999, 1), ErrNotFound)
}

func TestUpdateEquipmentCapacityShiftsAvailable(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	equipment := seedEquipment(t, database, "Drone", 5)
	mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: equipment.ID, Qty: 2})

	// 3 available of 5. Raising capacity to 8 adds the new units to the pool.
	require.NoError(t, UpdateEquipment(ctx, database, equipment.ID, "Drone", "camera", 8))
	assert.Equal(t, 6, availableQty(t, database, equipment.ID))

	// Shrinking capacity takes units from the loanable pool first, floored at 0.
	require.NoError(t, UpdateEquipment(ctx, database, equipment.ID, "Drone", "camera", 1))
	assert.Equal(t, 0, availableQty(t, database, equipment.ID))
}

func TestDeleteEquipmentBlockedWhileCheckedOut(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	equipment := seedEquipment(t, database, "Drone", 5)
	transaction := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: equipment.ID, Qty: 2})

	err := DeleteEquipment(ctx, database, equipment.ID)
	require.Error(t, err)

	// After the gear comes back, deletion succeeds.
	require.NoError(t, SettleAndClose(ctx, database, transaction.ID, []ItemSettlement{
		{ItemID: transaction.Items[0].ID, ReturnedQty: 2},
	}, timeNow()))
	require.NoError(t, DeleteEquipment(ctx, database, equipment.ID))

	items, err := ListEquipment(ctx, database, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListEquipmentByCategory(t *testing.T) {
	database, ctx := newTestStore(t)
	seedEquipment(t, database, "Canon R5", 2)
	_, err := CreateEquipment(ctx, database, "C-Stand", "grip", 10)
	require.NoError(t, err)

	cameras, err := ListEquipment(ctx, database, "camera")
	require.NoError(t, err)
	require.Len(t, cameras, 1)
	assert.Equal(t, "Canon R5", cameras[0].Name)

	all, err := ListEquipment(ctx, database, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
