package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetRaffleByID(id string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := d.Bun.NewSelect().
		Model(&raffle).
		Where("raffle_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

func (d *DB) GetRaffleBySlug(slug string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := d.Bun.NewSelect().
		Model(&raffle).
		Where("slug = ?", slug).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

func (d *DB) CountIssued(raffleID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("raffle_id = ?", raffleID).
		Count(context.Background())
}

func (d *DB) CountOrdersByStatus(raffleID, status string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("raffle_id = ?", raffleID).
		Where("status = ?", status).
		Count(context.Background())
}

// SumConfirmedQuantity returns the total tickets sold across confirmed
// orders, for revenue reporting.
func (d *DB) SumConfirmedQuantity(raffleID string) (int, error) {
	var total int
	err := d.Bun.NewSelect().
		ColumnExpr("COALESCE(SUM(quantity), 0)").
		Table("orders").
		Where("raffle_id = ?", raffleID).
		Where("status = ?", models.StatusConfirmed).
		Scan(context.Background(), &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}
