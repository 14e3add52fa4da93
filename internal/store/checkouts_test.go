package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsaleh/gearroom/internal/model"
)

func TestCreateCheckoutReservesStock(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)
	tripod := seedEquipment(t, database, "Tripod", 10)

	transaction, err := CreateCheckout(ctx, database, CheckoutParams{
		ProjectName:  "Wedding",
		ProjectOwner: "Client X",
		UserID:       user.ID,
		CheckoutTime: timeNow(),
		Lines: []CheckoutLine{
			{EquipmentID: camera.ID, Qty: 2},
			{EquipmentID: tripod.ID, Qty: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusOpen, transaction.Status)
	assert.Len(t, transaction.Items, 2)
	assert.Equal(t, 3, availableQty(t, database, camera.ID))
	assert.Equal(t, 7, availableQty(t, database, tripod.ID))
}

func TestCreateCheckoutEmptyRejected(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")

	_, err := CreateCheckout(ctx, database, CheckoutParams{
		ProjectName: "Wedding",
		UserID:      user.ID,
	})
	require.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestCreateCheckoutInsufficientStockIsAllOrNothing(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)
	tripod := seedEquipment(t, database, "Tripod", 3)

	// Second line exceeds stock; the first line's reservation must not stick.
	_, err := CreateCheckout(ctx, database, CheckoutParams{
		ProjectName:  "Wedding",
		UserID:       user.ID,
		CheckoutTime: timeNow(),
		Lines: []CheckoutLine{
			{EquipmentID: camera.ID, Qty: 2},
			{EquipmentID: tripod.ID, Qty: 5},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 5, availableQty(t, database, camera.ID))
	assert.Equal(t, 3, availableQty(t, database, tripod.ID))

	transactions, err := ListTransactions(ctx, database, "", 0)
	require.NoError(t, err)
	assert.Empty(t, transactions, "failed checkout must not persist a transaction")
}

func TestCheckoutSequenceDrainsStock(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 10)
	require.NoError(t, SetAvailable(ctx, database, camera.ID, 5))

	mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 2})
	assert.Equal(t, 3, availableQty(t, database, camera.ID))

	mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 3})
	assert.Equal(t, 0, availableQty(t, database, camera.ID))

	_, err := CreateCheckout(ctx, database, CheckoutParams{
		ProjectName:  "One more",
		UserID:       user.ID,
		CheckoutTime: timeNow(),
		Lines:        []CheckoutLine{{EquipmentID: camera.ID, Qty: 1}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, availableQty(t, database, camera.ID))
}

func TestCreateCheckoutInvalidLineQty(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)

	_, err := CreateCheckout(ctx, database, CheckoutParams{
		ProjectName:  "Wedding",
		UserID:       user.ID,
		CheckoutTime: timeNow(),
		Lines:        []CheckoutLine{{EquipmentID: camera.ID, Qty: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCreateCheckoutWithAssistants(t *testing.T) {
	database, ctx := newTestStore(t)
	owner := seedUser(t, database, "amal", "employee")
	assistant := seedUser(t, database, "badr", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)

	transaction, err := CreateCheckout(ctx, database, CheckoutParams{
		ProjectName:  "Studio Session",
		UserID:       owner.ID,
		AssistantIDs: []int64{assistant.ID},
		CheckoutTime: timeNow(),
		Lines:        []CheckoutLine{{EquipmentID: camera.ID, Qty: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{assistant.ID}, transaction.AssistantIDs)

	// The assistant sees the transaction in their listing.
	listed, err := ListTransactions(ctx, database, "", assistant.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, transaction.ID, listed[0].ID)
}

func TestDeleteTransactionRestoresOnlyUnreturnedStock(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 10)

	transaction := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 10})
	assert.Equal(t, 0, availableQty(t, database, camera.ID))

	// 4 of 10 returned and restocked at settlement.
	require.NoError(t, SettleItem(ctx, database, ItemSettlement{
		ItemID: transaction.Items[0].ID, ReturnedQty: 4,
	}))
	assert.Equal(t, 4, availableQty(t, database, camera.ID))

	// Deletion restores the 6 still out, not the full 10 and not the 4 again.
	require.NoError(t, DeleteTransaction(ctx, database, transaction.ID))
	assert.Equal(t, 10, availableQty(t, database, camera.ID))

	_, err := GetTransaction(ctx, database, transaction.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTransactionNotFound(t *testing.T) {
	database, ctx := newTestStore(t)
	require.ErrorIs(t, DeleteTransaction(ctx, database, "no-such-id"), ErrNotFound)
}

func TestDeleteTransactionCascadesItems(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)

	transaction := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 2})
	require.NoError(t, DeleteTransaction(ctx, database, transaction.ID))

	var orphans int
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_items WHERE transaction_id = ?`, transaction.ID,
	).Scan(&orphans)
	require.NoError(t, err)
	assert.Zero(t, orphans)
}

func TestCloseTransactionGating(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)
	tripod := seedEquipment(t, database, "Tripod", 5)

	transaction := mustCheckout(t, database, user.ID,
		CheckoutLine{EquipmentID: camera.ID, Qty: 1},
		CheckoutLine{EquipmentID: tripod.ID, Qty: 1},
	)

	// Nothing settled yet.
	err := CloseTransaction(ctx, database, transaction.ID, timeNow(), false)
	require.ErrorIs(t, err, ErrNotAllSettled)

	// One of two settled is still not enough.
	require.NoError(t, SettleItem(ctx, database, ItemSettlement{
		ItemID: transaction.Items[0].ID, ReturnedQty: 1,
	}))
	err = CloseTransaction(ctx, database, transaction.ID, timeNow(), false)
	require.ErrorIs(t, err, ErrNotAllSettled)

	require.NoError(t, SettleItem(ctx, database, ItemSettlement{
		ItemID: transaction.Items[1].ID, ReturnedQty: 1,
	}))

	returnTime := time.Date(2025, time.June, 1, 17, 0, 0, 0, time.UTC)
	require.NoError(t, CloseTransaction(ctx, database, transaction.ID, returnTime, false))

	closed, err := GetTransaction(ctx, database, transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, closed.Status)
	require.NotNil(t, closed.ReturnTime)
	assert.True(t, closed.ReturnTime.Equal(returnTime))

	// The transition happens exactly once.
	err = CloseTransaction(ctx, database, transaction.ID, timeNow(), false)
	require.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestCloseTransactionVerificationGate(t *testing.T) {
	database, ctx := newTestStore(t)
	user := seedUser(t, database, "amal", "employee")
	camera := seedEquipment(t, database, "Canon R5", 5)

	transaction := mustCheckout(t, database, user.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})
	require.NoError(t, SettleItem(ctx, database, ItemSettlement{
		ItemID: transaction.Items[0].ID, ReturnedQty: 1,
	}))

	// Settled but unverified: the standard path refuses, the quick path would not.
	err := CloseTransaction(ctx, database, transaction.ID, timeNow(), true)
	require.ErrorIs(t, err, ErrNotVerified)

	require.NoError(t, VerifyItem(ctx, database, transaction.Items[0].ID))
	require.NoError(t, CloseTransaction(ctx, database, transaction.ID, timeNow(), true))
}

func TestListTransactionsFilters(t *testing.T) {
	database, ctx := newTestStore(t)
	amal := seedUser(t, database, "amal", "employee")
	badr := seedUser(t, database, "badr", "employee")
	camera := seedEquipment(t, database, "Canon R5", 10)

	first := mustCheckout(t, database, amal.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})
	mustCheckout(t, database, badr.ID, CheckoutLine{EquipmentID: camera.ID, Qty: 1})

	require.NoError(t, SettleAndClose(ctx, database, first.ID, []ItemSettlement{
		{ItemID: first.Items[0].ID, ReturnedQty: 1},
	}, timeNow()))

	open, err := ListTransactions(ctx, database, model.StatusOpen, 0)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	mine, err := ListTransactions(ctx, database, "", amal.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
}
