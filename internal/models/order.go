package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses. Confirmed and rejected are terminal.
const (
	StatusPendingReview = "pending_review"
	StatusConfirmed     = "confirmed"
	StatusRejected      = "rejected"
)

type OrderRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Quantity      int    `json:"quantity"`
	VoucherRef    string `json:"voucher_ref,omitempty"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID       string    `bun:"order_id,pk" json:"order_id"`
	RaffleID      string    `bun:"raffle_id,notnull" json:"raffle_id"`
	CustomerName  string    `bun:"customer_name,notnull" json:"customer_name"`
	CustomerPhone string    `bun:"customer_phone,notnull" json:"customer_phone"`
	CustomerEmail string    `bun:"customer_email,nullzero" json:"customer_email,omitempty"`
	Quantity      int       `bun:"quantity,notnull" json:"quantity"`
	VoucherRef    string    `bun:"voucher_ref,nullzero" json:"voucher_ref,omitempty"`
	Status        string    `bun:"status,notnull" json:"status"`
	RejectReason  string    `bun:"reject_reason,nullzero" json:"reject_reason,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ConfirmedAt   time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
}

// Terminal reports whether the order can no longer change status.
func (o Order) Terminal() bool {
	return o.Status == StatusConfirmed || o.Status == StatusRejected
}

// OrderWithTickets pairs an order with its assigned ticket numbers
// (empty until the order is confirmed).
type OrderWithTickets struct {
	Order   Order    `json:"order"`
	Tickets []string `json:"tickets"`
}

type ConfirmResponse struct {
	OK        bool     `json:"ok"`
	Confirmed bool     `json:"confirmed"`
	Tickets   []string `json:"tickets"`
}

type RejectResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}
