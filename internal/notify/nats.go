package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/emailbuilder/internal/foundation/errors"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "emailbuilder.builds"

// publisher is the subset of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// NATSNotifier publishes each event as JSON on a NATS subject.
type NATSNotifier struct {
	pub     publisher
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url and returns a notifier publishing on subject.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("emailbuilder"))
	if err != nil {
		return nil, errors.NotifyError("connect to NATS").WithCause(err).WithContext("url", url).Build()
	}
	slog.Info("NATS notifier connected", "url", url, "subject", subject)
	n := newNATSNotifier(conn, subject)
	n.conn = conn
	return n, nil
}

func newNATSNotifier(pub publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}
}

// Notify publishes ev and flushes the connection.
func (n *NATSNotifier) Notify(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.InternalError("marshal build event").WithCause(err).Build()
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return errors.NotifyError("publish build event").WithCause(err).WithContext("subject", n.subject).Build()
	}
	if err := n.pub.Flush(); err != nil {
		return errors.NotifyError("flush NATS connection").WithCause(err).Build()
	}
	slog.Debug("Published build event", "subject", n.subject, "run_id", ev.RunID)
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
