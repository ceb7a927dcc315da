package tickets

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-raffle/internal/models"
	"ms-raffle/internal/order"
	"ms-raffle/internal/order/db"
)

// fakeStore mimics the (raffle_id, number) uniqueness constraint in memory.
type fakeStore struct {
	claimed map[string]string // "raffleID/number" -> orderID
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: make(map[string]string)}
}

func (f *fakeStore) ClaimTicket(ticket models.Ticket) error {
	if f.failErr != nil {
		return f.failErr
	}
	key := ticket.RaffleID + "/" + ticket.Number
	if _, taken := f.claimed[key]; taken {
		return db.ErrDuplicateNumber
	}
	f.claimed[key] = ticket.OrderID
	return nil
}

func testRaffle(digits int) models.Raffle {
	return models.Raffle{RaffleID: "raffle-1", Slug: "r1", Title: "Test Raffle", Digits: digits}
}

func TestAllocateReturnsDistinctZeroPaddedNumbers(t *testing.T) {
	store := newFakeStore()
	gen := NewGenerator(store, 3000)

	numbers, err := gen.Allocate(testRaffle(4), "order-1", 5)
	require.NoError(t, err)
	require.Len(t, numbers, 5)

	pattern := regexp.MustCompile(`^[0-9]{4}$`)
	seen := make(map[string]bool)
	for _, number := range numbers {
		assert.Regexp(t, pattern, number)
		assert.False(t, seen[number], "number %s allocated twice", number)
		seen[number] = true
	}
}

func TestAllocateRedrawsOnCollision(t *testing.T) {
	store := newFakeStore()
	// 1-digit space: numbers 0..9. Pre-claim 0..6 for another order.
	for i := 0; i <= 6; i++ {
		store.claimed[fmt.Sprintf("raffle-1/%d", i)] = "other-order"
	}

	gen := NewGenerator(store, 3000)
	numbers, err := gen.Allocate(testRaffle(1), "order-1", 3)
	require.NoError(t, err)
	require.Len(t, numbers, 3)

	// The only free numbers were 7, 8 and 9.
	assert.ElementsMatch(t, []string{"7", "8", "9"}, numbers)
}

func TestAllocateExhaustsBoundedBudget(t *testing.T) {
	store := newFakeStore()
	// Leave only two free numbers in a 1-digit space, then ask for three.
	for i := 0; i <= 7; i++ {
		store.claimed[fmt.Sprintf("raffle-1/%d", i)] = "other-order"
	}

	gen := NewGenerator(store, 200)
	numbers, err := gen.Allocate(testRaffle(1), "order-1", 3)
	require.Error(t, err)

	var exhausted *order.AllocationExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Requested)
	assert.Equal(t, len(numbers), exhausted.Claimed)
	assert.LessOrEqual(t, exhausted.Claimed, 2)
	assert.Equal(t, "raffle-1", exhausted.RaffleID)
}

func TestAllocateSurfacesStoreFailures(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("connection reset")

	gen := NewGenerator(store, 100)
	numbers, err := gen.Allocate(testRaffle(4), "order-1", 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrDuplicateNumber)
	assert.Empty(t, numbers)
}

func TestAllocatePositionsFollowClaimOrder(t *testing.T) {
	var positions []int
	store := &recordingStore{inner: newFakeStore(), positions: &positions}

	gen := NewGenerator(store, 3000)
	_, err := gen.Allocate(testRaffle(4), "order-1", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, positions)
}

type recordingStore struct {
	inner     *fakeStore
	positions *[]int
}

func (r *recordingStore) ClaimTicket(ticket models.Ticket) error {
	if err := r.inner.ClaimTicket(ticket); err != nil {
		return err
	}
	*r.positions = append(*r.positions, ticket.Position)
	return nil
}
