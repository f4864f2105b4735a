// Package email sends error reports through the Resend email API.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/allie-chat/allieproxy/pkg/notify"
)

// Subject is the fixed subject line of every error email.
const Subject = "Allie Proxy Error"

// sender is the subset of the Resend emails service used here.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config configures the email Notifier.
type Config struct {
	// APIKey authorizes calls to the Resend API.
	APIKey string

	From string
	To   string
}

// Notifier emails one message per report.
type Notifier struct {
	from   string
	to     []string
	sender sender
}

// New creates an email Notifier backed by a Resend client.
func New(c Config) (*Notifier, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("email: api key is required")
	}
	client := resend.NewClient(c.APIKey)
	return newWithSender(c, client.Emails)
}

func newWithSender(c Config, s sender) (*Notifier, error) {
	from := strings.TrimSpace(c.From)
	to := strings.TrimSpace(c.To)
	if from == "" || to == "" {
		return nil, errors.New("email: from and to addresses are required")
	}
	return &Notifier{from: from, to: []string{to}, sender: s}, nil
}

func (n *Notifier) Name() string {
	return "email"
}

func (n *Notifier) Notify(ctx context.Context, report *notify.Report) error {
	if report == nil {
		return notify.ErrNilReport
	}

	sent, err := n.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: Subject,
		Html:    Body(report),
	})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return errors.New("send: provider returned no message id")
	}

	return nil
}

// Body renders the HTML body for report. The error text is escaped since it
// may echo upstream-controlled strings.
func Body(report *notify.Report) string {
	return fmt.Sprintf("<p>An error occurred in the Allie proxy at %s: %s</p><p>Report ID: %s</p>",
		report.ISOTimestamp(),
		html.EscapeString(report.Message),
		report.ID,
	)
}
