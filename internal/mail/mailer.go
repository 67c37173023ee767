package mail

import (
	"context"
	"fmt"
	"log"
)

// Mailer delivers verification and password-reset tokens out-of-band. The
// delivery channel is a black box to the rest of the system.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, recipient, token string) error
	SendPasswordResetEmail(ctx context.Context, recipient, token string) error
}

// LogMailer writes outbound mail to the process log. It stands in for a
// real delivery channel in development and tests.
type LogMailer struct {
	frontendURL string
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer creates a log-backed mailer. Links in the mail body point at
// the given frontend base URL.
func NewLogMailer(frontendURL string) *LogMailer {
	return &LogMailer{frontendURL: frontendURL}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, recipient, token string) error {
	log.Printf("mail to=%s subject=%q link=%s", recipient, "Verify your email",
		fmt.Sprintf("%s/verify-email?token=%s", m.frontendURL, token))
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, recipient, token string) error {
	log.Printf("mail to=%s subject=%q link=%s", recipient, "Reset your password",
		fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token))
	return nil
}
