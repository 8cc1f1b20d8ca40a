// Package notify delivers account emails: verification links and password
// reset links. Messages are rendered from templates and handed to a Mailer
// backend (console, SendGrid or NATS), optionally through an asynchronous
// Dispatcher that retries failed deliveries.
package notify

import (
	"context"
	"time"
)

// Kind identifies the email being sent.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Message is what the account service hands over: who to mail and the link
// to put in the email.
type Message struct {
	AccountID int64
	Email     string
	Name      string
	Link      string
	ExpiresIn time.Duration
}

// Notifier sends account emails.
type Notifier interface {
	SendVerification(ctx context.Context, msg Message) error
	SendPasswordReset(ctx context.Context, msg Message) error
}

// Email is a rendered message ready for a Mailer.
type Email struct {
	Kind      Kind   `json:"kind"`
	AccountID int64  `json:"account_id"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	To        string `json:"to"`
	ToName    string `json:"to_name"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
}

// Mailer transports a rendered Email.
type Mailer interface {
	Send(ctx context.Context, e *Email) error
}

// Sender identifies the From address.
type Sender struct {
	Email string
	Name  string
}

// MailNotifier renders messages and sends them synchronously through a
// Mailer.
type MailNotifier struct {
	renderer *Renderer
	mailer   Mailer
	from     Sender
}

func NewMailNotifier(r *Renderer, m Mailer, from Sender) *MailNotifier {
	return &MailNotifier{renderer: r, mailer: m, from: from}
}

func (n *MailNotifier) SendVerification(ctx context.Context, msg Message) error {
	return n.send(ctx, KindVerification, msg)
}

func (n *MailNotifier) SendPasswordReset(ctx context.Context, msg Message) error {
	return n.send(ctx, KindPasswordReset, msg)
}

func (n *MailNotifier) send(ctx context.Context, kind Kind, msg Message) error {
	e, err := n.renderer.Render(kind, msg)
	if err != nil {
		return err
	}
	e.FromEmail = n.from.Email
	e.FromName = n.from.Name
	return n.mailer.Send(ctx, e)
}
