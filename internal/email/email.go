// Package email delivers templated HTML mail over SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tazhate/fintrack/internal/domain"
)

type Kind string

const (
	KindReminder       Kind = "reminder"
	KindMonthlySummary Kind = "monthlySummary"
	KindNotification   Kind = "notification"
)

// ReminderData fills the reminder template.
type ReminderData struct {
	Title   string
	Message string
	AppURL  string
}

// MonthlySummaryData fills the monthly summary template.
type MonthlySummaryData struct {
	Month         string
	Year          int
	Income        decimal.Decimal
	Expenses      decimal.Decimal
	Net           decimal.Decimal
	TopCategories []domain.CategoryTotal
	AppURL        string
}

// NotificationData fills the generic notification template.
type NotificationData struct {
	Title   string
	Message string
	AppURL  string
}

type Config struct {
	Host     string // host:port
	Username string
	Password string
	From     string
}

type Sender struct {
	cfg Config
}

func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send renders the template for kind and mails it. data must match the
// kind's template data type.
func (s *Sender) Send(to string, kind Kind, data any) error {
	subject, body, err := Render(kind, data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", kind, err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	host := strings.Split(s.cfg.Host, ":")[0]
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
	if err := smtp.SendMail(s.cfg.Host, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
