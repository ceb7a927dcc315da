package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is one issued number. A row exists the instant the number is
// durably claimed for an order; the UNIQUE (raffle_id, number) index is
// what makes claims race-safe across processes.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	RaffleID string    `bun:"raffle_id,notnull,unique:raffle_number" json:"raffle_id"`
	Number   string    `bun:"number,notnull,unique:raffle_number" json:"number"`
	OrderID  string    `bun:"order_id,notnull" json:"order_id"`
	Position int       `bun:"position,notnull" json:"position"`
	IssuedAt time.Time `bun:"issued_at,notnull" json:"issued_at"`
}
