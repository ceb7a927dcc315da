package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"

	"ms-raffle/internal/config"
	"ms-raffle/internal/models"
)

// Mailer emails assigned ticket numbers to the customer. Every outcome
// here is non-fatal to the confirmation that triggered it.
type Mailer struct {
	cfg config.EmailConfig
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) SendTickets(order models.Order, raffle models.Raffle, tickets []string) error {
	if !m.cfg.Enabled {
		return nil
	}

	mail := mailyak.New(
		m.cfg.SMTPHost+":"+m.cfg.SMTPPort,
		smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost),
	)

	mail.From(m.cfg.From)
	mail.FromName(raffle.Title)
	mail.To(order.CustomerEmail)
	mail.Subject(fmt.Sprintf("Your tickets for %s", raffle.Title))

	mail.Plain().Set(plainBody(order, raffle, tickets))
	mail.HTML().Set(htmlBody(order, raffle, tickets))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func plainBody(order models.Order, raffle models.Raffle, tickets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", order.CustomerName)
	fmt.Fprintf(&b, "Your payment for %s was confirmed. These are your ticket numbers:\n\n", raffle.Title)
	for _, number := range tickets {
		fmt.Fprintf(&b, "  %s\n", number)
	}
	fmt.Fprintf(&b, "\nOrder reference: %s\n", order.OrderID)
	b.WriteString("\nGood luck!\n")
	return b.String()
}

func htmlBody(order models.Order, raffle models.Raffle, tickets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", order.CustomerName)
	fmt.Fprintf(&b, "<p>Your payment for <strong>%s</strong> was confirmed. These are your ticket numbers:</p><ul>", raffle.Title)
	for _, number := range tickets {
		fmt.Fprintf(&b, "<li><strong>%s</strong></li>", number)
	}
	fmt.Fprintf(&b, "</ul><p>Order reference: %s</p><p>Good luck!</p>", order.OrderID)
	return b.String()
}
