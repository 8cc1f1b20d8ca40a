package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by NATSMailer.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATSMailer publishes rendered emails as JSON on <prefix>.<kind> for an
// external mail worker to deliver.
type NATSMailer struct {
	pub    Publisher
	prefix string
}

func NewNATSMailer(pub Publisher, prefix string) *NATSMailer {
	return &NATSMailer{pub: pub, prefix: prefix}
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

func (m *NATSMailer) Subject(kind Kind) string {
	return m.prefix + "." + string(kind)
}

func (m *NATSMailer) Send(ctx context.Context, e *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding mail event: %w", err)
	}
	if err := m.pub.Publish(m.Subject(e.Kind), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}
