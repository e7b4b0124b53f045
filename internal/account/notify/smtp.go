package notify

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// SMTPConfig carries the dialer settings for outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // sender address, e.g. "accounts@example.com"
}

// SMTPNotifier sends mail over SMTP using gomail. Compose is the hand-off
// point: it renders the template and builds the message without touching the
// network, so configuration and template errors surface before anything is
// recorded as sent.
type SMTPNotifier struct {
	dialer    *gomail.Dialer
	from      string
	templates *Registry
}

func NewSMTPNotifier(cfg SMTPConfig, templates *Registry) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}

	return &SMTPNotifier{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:      cfg.From,
		templates: templates,
	}, nil
}

func (n *SMTPNotifier) Compose(templateID, to string, data map[string]string) (Delivery, error) {
	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), n.dialer.Host))
	m.SetBody("text/plain", body)

	return &smtpDelivery{dialer: n.dialer, msg: m}, nil
}

type smtpDelivery struct {
	dialer *gomail.Dialer
	msg    *gomail.Message
}

func (d *smtpDelivery) Send() error {
	return d.dialer.DialAndSend(d.msg)
}
