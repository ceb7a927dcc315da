package models

import "time"

// OrderEventDto is the payload published to Kafka on order lifecycle
// changes (created, confirmed, rejected). Tickets is only populated on
// confirmation.
type OrderEventDto struct {
	OrderID    string    `json:"order_id"`
	RaffleID   string    `json:"raffle_id"`
	Status     string    `json:"status"`
	Quantity   int       `json:"quantity"`
	Tickets    []string  `json:"tickets,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewOrderEventDto(order Order, tickets []string, reason string) OrderEventDto {
	return OrderEventDto{
		OrderID:    order.OrderID,
		RaffleID:   order.RaffleID,
		Status:     order.Status,
		Quantity:   order.Quantity,
		Tickets:    tickets,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
