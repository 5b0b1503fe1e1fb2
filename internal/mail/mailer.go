// Package mail delivers transactional email.
package mail

import (
	"context"
	"fmt"
	"log"

	gomail "github.com/wneessen/go-mail"
)

// Mailer sends sign-in codes to users.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SMTPMailer delivers mail over SMTP.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	opts := []gomail.Option{gomail.WithPort(port)}
	if username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}
	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: from}, nil
}

// SendOTP emails a sign-in code.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject("Your sign-in code")
	msg.SetBodyString(gomail.TypeTextPlain,
		fmt.Sprintf("Your sign-in code is %s. It expires in 10 minutes.", code))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// LogMailer logs codes instead of sending them. Used when SMTP is not
// configured.
type LogMailer struct{}

var _ Mailer = (*LogMailer)(nil)

// SendOTP logs the code.
func (m *LogMailer) SendOTP(ctx context.Context, to, code string) error {
	log.Printf("WARN: SMTP not configured, sign-in code for %s: %s", to, code)
	return nil
}
