package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Raffle struct {
	bun.BaseModel `bun:"table:raffles"`

	RaffleID  string    `bun:"raffle_id,pk" json:"raffle_id"`
	Slug      string    `bun:"slug,notnull,unique" json:"slug"`
	Title     string    `bun:"title,notnull" json:"title"`
	UnitPrice float64   `bun:"unit_price,notnull" json:"unit_price"`
	Digits    int       `bun:"digits,notnull" json:"digits"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// NumberSpace returns how many distinct ticket numbers the raffle can issue.
func (r Raffle) NumberSpace() int {
	space := 1
	for i := 0; i < r.Digits; i++ {
		space *= 10
	}
	return space
}

// RaffleAvailability is the public view of a raffle plus how much of its
// number space is still unissued.
type RaffleAvailability struct {
	Raffle    Raffle `json:"raffle"`
	Issued    int    `json:"issued"`
	Remaining int    `json:"remaining"`
}

// RaffleSummary is the admin dashboard view: order counts per status and
// ticket issuance for one raffle.
type RaffleSummary struct {
	RaffleID      string  `json:"raffle_id"`
	Slug          string  `json:"slug"`
	Title         string  `json:"title"`
	PendingOrders int     `json:"pending_orders"`
	Confirmed     int     `json:"confirmed_orders"`
	Rejected      int     `json:"rejected_orders"`
	TicketsIssued int     `json:"tickets_issued"`
	Remaining     int     `json:"remaining_numbers"`
	Revenue       float64 `json:"revenue"`
}
