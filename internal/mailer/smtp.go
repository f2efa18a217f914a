package mailer

import (
	"errors"

	"gopkg.in/gomail.v2"

	"github.com/mesadeayuda/helpdesk/internal/config"
)

// Message is a fully composed email, ready for dispatch.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers composed messages. Implementations must be safe for
// concurrent use; sends happen from background goroutines.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer sends through the configured SMTP relay using gomail.
type SMTPMailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer builds the mailer.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send delivers a single message. At-most-once; the caller decides what to do
// with failures (log them, by contract).
func (s *SMTPMailer) Send(msg Message) error {
	if !s.cfg.Enabled {
		return nil
	}
	if len(msg.To) == 0 {
		return errors.New("no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.Sender)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	return s.dialer.DialAndSend(m)
}
