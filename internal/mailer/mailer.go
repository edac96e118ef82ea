// Package mailer abstracts outbound email delivery behind a Sender interface
// so the dispatch pipeline can be exercised without a live SMTP server.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is a fully rendered outbound email
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// Sender delivers a message to its recipients
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig holds connection settings for an SMTP relay
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DefaultFrom string
}

// SMTPSender delivers messages through an SMTP relay using gomail
type SMTPSender struct {
	dialer      *gomail.Dialer
	defaultFrom string
	logger      *zap.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		defaultFrom: cfg.DefaultFrom,
		logger:      logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}
	if from == "" {
		return fmt.Errorf("no sender address configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	s.logger.Debug("mail delivered",
		zap.String("from", from),
		zap.Int("recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc)))
	return nil
}
