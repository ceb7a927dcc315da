package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-raffle/internal/models"
	"ms-raffle/internal/order/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Raffle)(nil),
		(*models.Order)(nil),
		(*models.Ticket)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func seedRaffle(t *testing.T, store *db.DB, raffleID string) {
	t.Helper()
	raffle := models.Raffle{
		RaffleID:  raffleID,
		Slug:      raffleID,
		Title:     "Test Raffle",
		UnitPrice: 10,
		Digits:    4,
		CreatedAt: time.Now().UTC(),
	}
	_, err := store.Bun.NewInsert().Model(&raffle).Exec(context.Background())
	require.NoError(t, err)
}

func seedOrder(t *testing.T, store *db.DB, orderID, raffleID, status string) {
	t.Helper()
	err := store.CreateOrder(models.Order{
		OrderID:       orderID,
		RaffleID:      raffleID,
		CustomerName:  "Maria Lopez",
		CustomerPhone: "+50588887777",
		Quantity:      2,
		VoucherRef:    "vouchers/" + orderID + ".jpg",
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
}

func claim(t *testing.T, store *db.DB, raffleID, orderID, number string, position int) {
	t.Helper()
	err := store.ClaimTicket(models.Ticket{
		RaffleID: raffleID,
		Number:   number,
		OrderID:  orderID,
		Position: position,
		IssuedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestConfirmOrderSucceedsExactlyOnce(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	seedOrder(t, store, "order-1", "raffle-1", models.StatusPendingReview)

	order, err := store.GetOrderByID("order-1")
	require.NoError(t, err)
	order.Status = models.StatusConfirmed
	order.ConfirmedAt = time.Now().UTC()

	won, err := store.ConfirmOrder(*order)
	require.NoError(t, err)
	assert.True(t, won)

	// The status guard makes the second update affect zero rows.
	won, err = store.ConfirmOrder(*order)
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := store.GetOrderByID("order-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.False(t, stored.ConfirmedAt.IsZero())
}

func TestRejectOrderOnlyFromPending(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	seedOrder(t, store, "order-1", "raffle-1", models.StatusPendingReview)

	ok, err := store.RejectOrder("order-1", "illegible voucher")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.RejectOrder("order-1", "again")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := store.GetOrderByID("order-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "illegible voucher", stored.RejectReason)

	// A rejected order can no longer be confirmed.
	stored.Status = models.StatusConfirmed
	stored.ConfirmedAt = time.Now().UTC()
	won, err := store.ConfirmOrder(*stored)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestAttachVoucherPendingOnly(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	seedOrder(t, store, "order-1", "raffle-1", models.StatusPendingReview)

	ok, err := store.AttachVoucher("order-1", "vouchers/updated.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := store.GetOrderByID("order-1")
	require.NoError(t, err)
	assert.Equal(t, "vouchers/updated.jpg", stored.VoucherRef)

	stored.Status = models.StatusConfirmed
	stored.ConfirmedAt = time.Now().UTC()
	won, err := store.ConfirmOrder(*stored)
	require.NoError(t, err)
	require.True(t, won)

	ok, err = store.AttachVoucher("order-1", "vouchers/too-late.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimTicketDuplicateNumber(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	seedRaffle(t, store, "raffle-2")
	seedOrder(t, store, "order-1", "raffle-1", models.StatusPendingReview)

	claim(t, store, "raffle-1", "order-1", "0042", 0)

	err := store.ClaimTicket(models.Ticket{
		RaffleID: "raffle-1",
		Number:   "0042",
		OrderID:  "order-2",
		Position: 0,
		IssuedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, db.ErrDuplicateNumber)

	// Uniqueness is scoped to the raffle, not global.
	claim(t, store, "raffle-2", "order-3", "0042", 0)
}

func TestReleaseNumbersRemovesOnlyListedClaims(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")

	claim(t, store, "raffle-1", "order-1", "1111", 0)
	claim(t, store, "raffle-1", "order-1", "2222", 1)
	claim(t, store, "raffle-1", "order-1", "3333", 2)
	claim(t, store, "raffle-1", "order-2", "4444", 0)

	require.NoError(t, store.ReleaseNumbers("order-1", []string{"1111", "3333"}))

	remaining, err := store.GetTicketNumbersByOrder("order-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2222"}, remaining)

	other, err := store.GetTicketNumbersByOrder("order-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"4444"}, other)
}

func TestReleaseNumbersEmptyListIsNoop(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	claim(t, store, "raffle-1", "order-1", "1111", 0)

	require.NoError(t, store.ReleaseNumbers("order-1", nil))

	remaining, err := store.GetTicketNumbersByOrder("order-1")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestGetTicketNumbersByOrderFollowsAllocationOrder(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")

	// Insert out of positional order on purpose.
	claim(t, store, "raffle-1", "order-1", "9999", 2)
	claim(t, store, "raffle-1", "order-1", "0001", 0)
	claim(t, store, "raffle-1", "order-1", "5555", 1)

	numbers, err := store.GetTicketNumbersByOrder("order-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001", "5555", "9999"}, numbers)
}

func TestCountIssuedPerRaffle(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	seedRaffle(t, store, "raffle-2")

	claim(t, store, "raffle-1", "order-1", "1111", 0)
	claim(t, store, "raffle-1", "order-2", "2222", 0)
	claim(t, store, "raffle-2", "order-3", "3333", 0)

	count, err := store.CountIssued("raffle-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountIssued("raffle-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetOrdersByStatus(t *testing.T) {
	store := setupTestDB(t)
	seedRaffle(t, store, "raffle-1")
	seedOrder(t, store, "order-1", "raffle-1", models.StatusPendingReview)
	seedOrder(t, store, "order-2", "raffle-1", models.StatusPendingReview)
	seedOrder(t, store, "order-3", "raffle-1", models.StatusRejected)

	pending, err := store.GetOrdersByStatus("raffle-1", models.StatusPendingReview)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	rejected, err := store.GetOrdersByStatus("raffle-1", models.StatusRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)
	assert.Equal(t, "order-3", rejected[0].OrderID)
}
