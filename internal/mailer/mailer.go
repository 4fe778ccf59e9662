// Package mailer sends transactional email over SMTP. The service
// treats email as best-effort: callers log failures and never let
// them affect order state.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

// Sender dispatches a single email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) (*SMTPMailer, error) {
	if host == "" || port == "" || from == "" {
		return nil, fmt.Errorf("smtp host, port and from address are required")
	}
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := []byte("To: " + to + "\r\n" +
		"From: " + m.from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		htmlBody + "\r\n")

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
