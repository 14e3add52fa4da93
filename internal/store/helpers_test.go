package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rsaleh/gearroom/internal/db"
	"github.com/rsaleh/gearroom/internal/model"
)

func seedUser(t *testing.T, database *sql.DB, username, role string) *model.User {
	t.Helper()
	user, err := CreateUser(context.Background(), database, username, "unused-hash", role)
	require.NoError(t, err)
	return user
}

func seedEquipment(t *testing.T, database *sql.DB, name string, totalQty int) *model.Equipment {
	t.Helper()
	equipment, err := CreateEquipment(context.Background(), database, name, "camera", totalQty)
	require.NoError(t, err)
	return equipment
}

func mustCheckout(t *testing.T, database *sql.DB, userID int64, lines ...CheckoutLine) *model.Transaction {
	t.Helper()
	transaction, err := CreateCheckout(context.Background(), database, CheckoutParams{
		ProjectName:  "Test Shoot",
		ProjectOwner: "Client",
		UserID:       userID,
		CheckoutTime: time.Now().UTC(),
		Lines:        lines,
	})
	require.NoError(t, err)
	return transaction
}

func availableQty(t *testing.T, database *sql.DB, equipmentID int64) int {
	t.Helper()
	equipment, err := GetEquipment(context.Background(), database, equipmentID)
	require.NoError(t, err)
	return equipment.AvailableQty
}

func newTestStore(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	return db.NewTestDB(t), context.Background()
}

func timeNow() time.Time {
	return time.Now().UTC()
}
