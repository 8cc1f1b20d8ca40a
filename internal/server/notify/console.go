package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// ConsoleMailer writes emails to w instead of sending them. Meant for local
// development.
type ConsoleMailer struct {
	mu     sync.Mutex
	w      io.Writer
	logger logging.Logger
}

func NewConsoleMailer(w io.Writer, logger logging.Logger) *ConsoleMailer {
	return &ConsoleMailer{w: w, logger: logger}
}

func (m *ConsoleMailer) Send(ctx context.Context, e *Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := fmt.Fprintf(m.w, "From: %s <%s>\nTo: %s\nSubject: %s\n\n%s\n----\n",
		e.FromName, e.FromEmail, e.To, e.Subject, e.Text)
	if err != nil {
		return fmt.Errorf("console mailer: %w", err)
	}
	m.logger.Info(ctx, "email written to console", "kind", e.Kind, "account_id", e.AccountID)
	return nil
}
