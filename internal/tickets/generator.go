package tickets

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ms-raffle/internal/models"
	"ms-raffle/internal/order"
	"ms-raffle/internal/order/db"
)

// TicketStore is the slice of the durable store the generator needs: a
// claim insert that fails with db.ErrDuplicateNumber on an already-issued
// number and with anything else on a real store problem.
type TicketStore interface {
	ClaimTicket(ticket models.Ticket) error
}

// Generator draws uniformly random numbers from a raffle's space and
// claims them through the store's uniqueness constraint. Collisions are
// the expected path as the space fills up and are simply redrawn; the
// whole allocation shares one attempt budget so a nearly-full raffle
// fails loudly instead of looping forever.
type Generator struct {
	Store       TicketStore
	MaxAttempts int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(store TicketStore, maxAttempts int) *Generator {
	return &Generator{
		Store:       store,
		MaxAttempts: maxAttempts,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allocate claims count distinct numbers for orderID in the raffle's
// space and returns them zero-padded in claim order. On budget
// exhaustion it returns the claimed prefix together with an
// *order.AllocationExhaustedError; the caller owns releasing those
// claims (they are all tagged with orderID).
func (g *Generator) Allocate(raffle models.Raffle, orderID string, count int) ([]string, error) {
	space := raffle.NumberSpace()
	numbers := make([]string, 0, count)

	attempts := 0
	for len(numbers) < count {
		if attempts >= g.MaxAttempts {
			return numbers, &order.AllocationExhaustedError{
				RaffleID:  raffle.RaffleID,
				Requested: count,
				Claimed:   len(numbers),
			}
		}
		attempts++

		number := fmt.Sprintf("%0*d", raffle.Digits, g.draw(space))

		err := g.Store.ClaimTicket(models.Ticket{
			RaffleID: raffle.RaffleID,
			Number:   number,
			OrderID:  orderID,
			Position: len(numbers),
			IssuedAt: time.Now().UTC(),
		})
		if err != nil {
			if errors.Is(err, db.ErrDuplicateNumber) {
				continue
			}
			return numbers, fmt.Errorf("claim ticket number: %w", err)
		}

		numbers = append(numbers, number)
	}

	return numbers, nil
}

func (g *Generator) draw(space int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(space)
}
