package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrSendGridRejected = errors.New("sendgrid rejected message")

// sendWithClient is a seam for tests.
var sendWithClient = func(ctx context.Context, c *sendgrid.Client, m *mail.SGMailV3) (int, string, error) {
	resp, err := c.SendWithContext(ctx, m)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, resp.Body, nil
}

// SendGridMailer delivers emails through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
}

func NewSendGridMailer(apiKey string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey)}
}

func (m *SendGridMailer) Send(ctx context.Context, e *Email) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(e.FromName, e.FromEmail),
		e.Subject,
		mail.NewEmail(e.ToName, e.To),
		e.Text,
		e.HTML,
	)
	msg.SetHeader("X-Account-ID", fmt.Sprint(e.AccountID))
	msg.AddCategories(string(e.Kind))

	status, body, err := sendWithClient(ctx, m.client, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrSendGridRejected, status, body)
	}
	return nil
}
