package raffle

import (
	"database/sql"
	"errors"
	"fmt"

	"ms-raffle/internal/models"
)

// ErrNotFound is returned when no raffle matches the lookup.
var ErrNotFound = errors.New("raffle not found")

type DBLayer interface {
	GetRaffleByID(id string) (*models.Raffle, error)
	GetRaffleBySlug(slug string) (*models.Raffle, error)
	CountIssued(raffleID string) (int, error)
	CountOrdersByStatus(raffleID, status string) (int, error)
	SumConfirmedQuantity(raffleID string) (int, error)
}

type RaffleService struct {
	DB DBLayer
}

func NewRaffleService(db DBLayer) *RaffleService {
	return &RaffleService{DB: db}
}

func (s *RaffleService) GetBySlug(slug string) (*models.Raffle, error) {
	raffle, err := s.DB.GetRaffleBySlug(slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load raffle %s: %w", slug, err)
	}
	return raffle, nil
}

// Availability reports how much of the raffle's number space is still
// unissued. Issued counts claims, so pending rollbacks can briefly
// overstate it; the allocator's unique constraint is the truth.
func (s *RaffleService) Availability(slug string) (*models.RaffleAvailability, error) {
	raffle, err := s.GetBySlug(slug)
	if err != nil {
		return nil, err
	}

	issued, err := s.DB.CountIssued(raffle.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("count issued for %s: %w", slug, err)
	}

	return &models.RaffleAvailability{
		Raffle:    *raffle,
		Issued:    issued,
		Remaining: raffle.NumberSpace() - issued,
	}, nil
}

// Summary builds the admin review dashboard for one raffle.
func (s *RaffleService) Summary(slug string) (*models.RaffleSummary, error) {
	raffle, err := s.GetBySlug(slug)
	if err != nil {
		return nil, err
	}

	pending, err := s.DB.CountOrdersByStatus(raffle.RaffleID, models.StatusPendingReview)
	if err != nil {
		return nil, fmt.Errorf("count pending orders: %w", err)
	}
	confirmed, err := s.DB.CountOrdersByStatus(raffle.RaffleID, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("count confirmed orders: %w", err)
	}
	rejected, err := s.DB.CountOrdersByStatus(raffle.RaffleID, models.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("count rejected orders: %w", err)
	}
	issued, err := s.DB.CountIssued(raffle.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("count issued tickets: %w", err)
	}
	sold, err := s.DB.SumConfirmedQuantity(raffle.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("sum confirmed quantity: %w", err)
	}

	return &models.RaffleSummary{
		RaffleID:      raffle.RaffleID,
		Slug:          raffle.Slug,
		Title:         raffle.Title,
		PendingOrders: pending,
		Confirmed:     confirmed,
		Rejected:      rejected,
		TicketsIssued: issued,
		Remaining:     raffle.NumberSpace() - issued,
		Revenue:       float64(sold) * raffle.UnitPrice,
	}, nil
}
