package order

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-raffle/internal/config"
	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
)

type DBLayer interface {
	CreateOrder(order models.Order) error
	GetOrderByID(id string) (*models.Order, error)
	ConfirmOrder(order models.Order) (bool, error)
	RejectOrder(orderID, reason string) (bool, error)
	AttachVoucher(orderID, voucherRef string) (bool, error)
	ReleaseNumbers(orderID string, numbers []string) error
	GetTicketNumbersByOrder(orderID string) ([]string, error)
}

type RaffleStore interface {
	GetRaffleByID(id string) (*models.Raffle, error)
}

// ConfirmLock is the per-order redis lock. It is advisory: the store's
// compare-and-swap on the status column is what actually prevents a
// double allocation.
type ConfirmLock interface {
	LockOrder(orderID, token string) (bool, error)
	UnlockOrder(orderID, token string) error
}

type Allocator interface {
	Allocate(raffle models.Raffle, orderID string, count int) ([]string, error)
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

type Notifier interface {
	SendTickets(order models.Order, raffle models.Raffle, tickets []string) error
}

type OrderService struct {
	DB      DBLayer
	Raffles RaffleStore
	Lock    ConfirmLock
	Alloc   Allocator
	Kafka   Publisher
	Mailer  Notifier
	Logger  *logger.Logger

	Topics      config.TopicConfig
	MaxQuantity int
}

func NewOrderService(db DBLayer, raffles RaffleStore, lock ConfirmLock, alloc Allocator,
	kafka Publisher, mailer Notifier, log *logger.Logger, topics config.TopicConfig, maxQuantity int) *OrderService {
	if maxQuantity <= 0 {
		maxQuantity = 50
	}
	return &OrderService{
		DB:          db,
		Raffles:     raffles,
		Lock:        lock,
		Alloc:       alloc,
		Kafka:       kafka,
		Mailer:      mailer,
		Logger:      log,
		Topics:      topics,
		MaxQuantity: maxQuantity,
	}
}

// ---------------- RESERVATION ----------------

// PlaceOrder records a customer reservation in pending_review. Ticket
// numbers do not exist yet; they are only born at confirmation.
func (s *OrderService) PlaceOrder(raffleID string, req models.OrderRequest) (*models.Order, error) {
	raffle, err := s.Raffles.GetRaffleByID(raffleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("%w: load raffle: %v", ErrStoreFailure, err)
	}

	if req.CustomerName == "" || req.CustomerPhone == "" {
		return nil, fmt.Errorf("%w: customer name and phone are required", ErrInvalidRequest)
	}
	if req.Quantity <= 0 || req.Quantity > s.MaxQuantity {
		return nil, fmt.Errorf("%w: got %d, allowed 1..%d", ErrInvalidQuantity, req.Quantity, s.MaxQuantity)
	}

	order := models.Order{
		OrderID:       uuid.NewString(),
		RaffleID:      raffle.RaffleID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Quantity:      req.Quantity,
		VoucherRef:    req.VoucherRef,
		Status:        models.StatusPendingReview,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.DB.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrStoreFailure, err)
	}
	s.Logger.LogOrder("PLACE", order.OrderID, fmt.Sprintf("reservation for %d ticket(s) in raffle %s", order.Quantity, raffle.Slug))

	s.publish(s.Topics.OrderCreated, order, nil, "")
	return &order, nil
}

// AttachVoucher binds the uploaded payment proof to a pending order.
func (s *OrderService) AttachVoucher(orderID, voucherRef string) error {
	if voucherRef == "" {
		return fmt.Errorf("%w: empty voucher reference", ErrVoucherMissing)
	}

	ok, err := s.DB.AttachVoucher(orderID, voucherRef)
	if err != nil {
		return fmt.Errorf("%w: attach voucher: %v", ErrStoreFailure, err)
	}
	if ok {
		return nil
	}

	order, err := s.loadOrder(orderID)
	if err != nil {
		return err
	}
	if order.Terminal() {
		return ErrInvalidTransition
	}
	return fmt.Errorf("%w: voucher update affected no rows", ErrStoreFailure)
}

// ---------------- CONFIRMATION ----------------

// Confirm runs the confirmation workflow exactly once per order.
// Re-invocations return the already-assigned numbers without allocating
// or re-notifying.
func (s *OrderService) Confirm(orderID string) ([]string, error) {
	token := uuid.NewString()
	locked, err := s.Lock.LockOrder(orderID, token)
	if err != nil {
		// The CAS below still guarantees single allocation.
		s.Logger.Warn("ORDER", fmt.Sprintf("confirm lock unavailable for %s: %v", orderID, err))
	} else if !locked {
		if tickets, ok := s.confirmedTickets(orderID); ok {
			return tickets, nil
		}
		return nil, ErrConfirmInProgress
	} else {
		defer func() {
			if err := s.Lock.UnlockOrder(orderID, token); err != nil {
				s.Logger.Warn("ORDER", fmt.Sprintf("confirm unlock failed for %s: %v", orderID, err))
			}
		}()
	}

	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	// Idempotent replay: same numbers, no new claims, no second email.
	if order.Status == models.StatusConfirmed {
		tickets, err := s.DB.GetTicketNumbersByOrder(orderID)
		if err != nil {
			return nil, fmt.Errorf("%w: load assigned tickets: %v", ErrStoreFailure, err)
		}
		s.Logger.LogOrder("CONFIRM", orderID, "already confirmed, returning existing tickets")
		return tickets, nil
	}
	if order.Status == models.StatusRejected {
		return nil, ErrInvalidTransition
	}

	if order.VoucherRef == "" {
		return nil, ErrVoucherMissing
	}
	if order.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, order.Quantity)
	}

	raffle, err := s.Raffles.GetRaffleByID(order.RaffleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("%w: load raffle: %v", ErrStoreFailure, err)
	}

	tickets, err := s.Alloc.Allocate(*raffle, orderID, order.Quantity)
	if err != nil {
		// No partial sets: whatever was claimed goes back.
		s.release(orderID, tickets)
		if IsAllocationExhausted(err) {
			s.Logger.Error("ALLOCATION", err.Error())
			return nil, err
		}
		return nil, fmt.Errorf("%w: allocation: %v", ErrStoreFailure, err)
	}

	order.Status = models.StatusConfirmed
	order.ConfirmedAt = time.Now().UTC()

	won, err := s.DB.ConfirmOrder(*order)
	if err != nil {
		s.release(orderID, tickets)
		return nil, fmt.Errorf("%w: confirm update: %v", ErrStoreFailure, err)
	}
	if !won {
		// Lost the status race. Roll back our claims and surface
		// whatever the winner produced.
		s.release(orderID, tickets)
		if existing, ok := s.confirmedTickets(orderID); ok {
			s.Logger.LogOrder("CONFIRM", orderID, "lost confirmation race, returning winner's tickets")
			return existing, nil
		}
		return nil, fmt.Errorf("%w: order left pending after lost confirmation race", ErrStoreFailure)
	}

	s.Logger.LogOrder("CONFIRM", orderID, fmt.Sprintf("assigned %d ticket(s): %v", len(tickets), tickets))

	// Side effects are best-effort and only fire on the winning path.
	s.publish(s.Topics.OrderConfirmed, *order, tickets, "")
	s.sendTickets(*order, *raffle, tickets)

	return tickets, nil
}

// ---------------- REJECTION ----------------

// Reject moves a pending order to rejected. Re-rejecting is a no-op
// success; rejecting a confirmed order is refused.
func (s *OrderService) Reject(orderID, reason string) (string, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return "", err
	}

	switch order.Status {
	case models.StatusRejected:
		return models.StatusRejected, nil
	case models.StatusConfirmed:
		return "", ErrInvalidTransition
	}

	ok, err := s.DB.RejectOrder(orderID, reason)
	if err != nil {
		return "", fmt.Errorf("%w: reject update: %v", ErrStoreFailure, err)
	}
	if !ok {
		// Raced with a concurrent confirm or reject.
		order, err := s.loadOrder(orderID)
		if err != nil {
			return "", err
		}
		if order.Status == models.StatusRejected {
			return models.StatusRejected, nil
		}
		return "", ErrInvalidTransition
	}

	order.Status = models.StatusRejected
	s.Logger.LogOrder("REJECT", orderID, fmt.Sprintf("reason: %q", reason))
	s.publish(s.Topics.OrderRejected, *order, nil, reason)

	return models.StatusRejected, nil
}

// ---------------- QUERIES ----------------

func (s *OrderService) GetOrder(orderID string) (*models.OrderWithTickets, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	tickets := []string{}
	if order.Status == models.StatusConfirmed {
		tickets, err = s.DB.GetTicketNumbersByOrder(orderID)
		if err != nil {
			return nil, fmt.Errorf("%w: load assigned tickets: %v", ErrStoreFailure, err)
		}
	}

	return &models.OrderWithTickets{Order: *order, Tickets: tickets}, nil
}

// ---------------- HELPERS ----------------

func (s *OrderService) loadOrder(orderID string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load order: %v", ErrStoreFailure, err)
	}
	return order, nil
}

func (s *OrderService) confirmedTickets(orderID string) ([]string, bool) {
	order, err := s.DB.GetOrderByID(orderID)
	if err != nil || order.Status != models.StatusConfirmed {
		return nil, false
	}
	tickets, err := s.DB.GetTicketNumbersByOrder(orderID)
	if err != nil || len(tickets) == 0 {
		return nil, false
	}
	return tickets, true
}

func (s *OrderService) release(orderID string, numbers []string) {
	if err := s.DB.ReleaseNumbers(orderID, numbers); err != nil {
		s.Logger.Error("ALLOCATION", fmt.Sprintf("failed to release %d claim(s) for order %s: %v", len(numbers), orderID, err))
	}
}

func (s *OrderService) publish(topic string, order models.Order, tickets []string, reason string) {
	if s.Kafka == nil || topic == "" {
		return
	}
	value, err := json.Marshal(models.NewOrderEventDto(order, tickets, reason))
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal order event: %v", err))
		return
	}
	if err := s.Kafka.Publish(topic, order.OrderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish %s for order %s: %v", topic, order.OrderID, err))
	}
}

func (s *OrderService) sendTickets(order models.Order, raffle models.Raffle, tickets []string) {
	if s.Mailer == nil {
		return
	}
	if order.CustomerEmail == "" {
		s.Logger.LogMailer(order.OrderID, "no customer email on order, skipping notification")
		return
	}
	if err := s.Mailer.SendTickets(order, raffle, tickets); err != nil {
		// Notification failure never reverses a confirmation.
		s.Logger.Error("MAILER", fmt.Sprintf("failed to send tickets for order %s: %v", order.OrderID, err))
		return
	}
	s.Logger.LogMailer(order.OrderID, fmt.Sprintf("sent %d ticket(s) to %s", len(tickets), order.CustomerEmail))
}
