package db

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

// ErrDuplicateNumber is returned by ClaimTicket when the (raffle_id, number)
// pair is already issued. Callers treat it as a redraw signal, not a failure.
var ErrDuplicateNumber = errors.New("ticket number already issued")

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

func (d *DB) CreateOrder(order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(context.Background())
	return err
}

func (d *DB) GetOrderByID(id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmOrder flips pending_review to confirmed. The WHERE clause on the
// old status makes it a compare-and-swap: the second of two racing
// confirmations affects zero rows and must fall back to the idempotent path.
func (d *DB) ConfirmOrder(order models.Order) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(&order).
		Column("status", "confirmed_at").
		Where("order_id = ?", order.OrderID).
		Where("status = ?", models.StatusPendingReview).
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// RejectOrder flips pending_review to rejected with an optional reason.
func (d *DB) RejectOrder(orderID, reason string) (bool, error) {
	order := models.Order{OrderID: orderID, Status: models.StatusRejected, RejectReason: reason}
	res, err := d.Bun.NewUpdate().
		Model(&order).
		Column("status", "reject_reason").
		Where("order_id = ?", orderID).
		Where("status = ?", models.StatusPendingReview).
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// AttachVoucher sets the voucher reference on a still-pending order.
func (d *DB) AttachVoucher(orderID, voucherRef string) (bool, error) {
	order := models.Order{OrderID: orderID, VoucherRef: voucherRef}
	res, err := d.Bun.NewUpdate().
		Model(&order).
		Column("voucher_ref").
		Where("order_id = ?", orderID).
		Where("status = ?", models.StatusPendingReview).
		Exec(context.Background())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (d *DB) GetOrdersByStatus(raffleID, status string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("raffle_id = ?", raffleID).
		Where("status = ?", status).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ---------------- TICKETS ----------------

// ClaimTicket durably claims one number for an order. A uniqueness
// violation on (raffle_id, number) comes back as ErrDuplicateNumber;
// every other error is a genuine store failure.
func (d *DB) ClaimTicket(ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(context.Background())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNumber
		}
		return err
	}
	return nil
}

// ReleaseNumbers rolls back an allocation that never reached confirmed.
// Deleting by explicit number list keeps a lost confirmation race from
// touching the winner's claims: two attempts for the same order can
// never have claimed the same number.
func (d *DB) ReleaseNumbers(orderID string, numbers []string) error {
	if len(numbers) == 0 {
		return nil
	}
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("order_id = ?", orderID).
		Where("number IN (?)", bun.In(numbers)).
		Exec(context.Background())
	return err
}

// GetTicketNumbersByOrder returns the assigned numbers in allocation order.
func (d *DB) GetTicketNumbersByOrder(orderID string) ([]string, error) {
	var numbers []string
	err := d.Bun.NewSelect().
		Column("number").
		Table("tickets").
		Where("order_id = ?", orderID).
		Order("position ASC").
		Scan(context.Background(), &numbers)
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// CountIssued returns how many numbers a raffle has issued so far.
func (d *DB) CountIssued(raffleID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("raffle_id = ?", raffleID).
		Count(context.Background())
}

// isUniqueViolation recognizes uniqueness-constraint errors from both the
// postgres driver (code 23505) and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
