package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyItemIdempotent(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)

	transaction := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})
	itemID := transaction.Items[0].ID

	require.NoError(t, VerifyItem(ctx, database, itemID))
	require.NoError(t, VerifyItem(ctx, database, itemID))

	got, err := GetTransaction(ctx, database, transaction.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].AdminVerified)
}

func TestVerifyItemNotFound(t *testing.T) {
	database, ctx := newTestStore(t)
	require.ErrorIs(t, VerifyItem(ctx, database, 999), ErrNotFound)
}

func TestCanCloseTracksVerification(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)
	tripod := seedEquipment(t, database, "Tripod", 5)

	transaction := mustCheckout(t, database, user.ID,
		CheckoutLine{EquipmentID: camera.ID, Qty: 1},
		CheckoutLine{EquipmentID: tripod.ID, Qty: 1},
	)

	ok, err := CanClose(ctx, database, transaction.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, VerifyItem(ctx, database, transaction.Items[0].ID))
	ok, err = CanClose(ctx, database, transaction.ID)
	require.NoError(t, err)
	assert.False(t, ok, "one unverified item still blocks closure")

	require.NoError(t, VerifyItem(ctx, database, transaction.Items[1].ID))
	ok, err = CanClose(ctx, database, transaction.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListPendingVerification(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 10)

	pendingTx := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})
	verifiedTx := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})
	require.NoError(t, VerifyItem(ctx, database, verifiedTx.Items[0].ID))

	closedTx := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})
	require.NoError(t, SettleAndClose(ctx, database, closedTx.ID, []ItemSettlement{
		{ItemID: closedTx.Items[0].ID, ReturnedQty: 1},
	}, timeNow()))

	pending, err := ListPendingVerification(ctx, database)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pendingTx.ID, pending[0].ID)
	require.Len(t, pending[0].Items, 1)
	assert.False(t, pending[0].Items[0].AdminVerified)
}
