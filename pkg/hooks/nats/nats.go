// Package nats provides a hook notifier publishing hook messages to a
// NATS server, optionally waiting for a subscriber's acknowledgement.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/gotus/gotus/pkg/hooks"
)

// Config collects the server and subject settings of the notifier.
type Config struct {
	// URL is the server address, e.g. nats://localhost:4222.
	URL string
	// Subject receives all messages if set. If empty, messages go to
	// "<SubjectPrefix>.<hook>".
	Subject string
	// SubjectPrefix for per-hook subjects, default "hooks".
	SubjectPrefix string
	// RequestReply makes Send wait for a reply. The reply must be empty
	// or "OK"; any other reply rejects the hook.
	RequestReply bool
	// Username and Password are optional credentials.
	Username string
	Password string
	// Token is an optional authentication token.
	Token string
}

// Notifier publishes hook messages to NATS subjects.
type Notifier struct {
	config Config
	conn   *nats.Conn
}

// New creates a NATS notifier. The connection is established by Prepare.
func New(config Config) *Notifier {
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "hooks"
	}
	return &Notifier{config: config}
}

func (n *Notifier) Name() string {
	return "nats"
}

// Prepare connects to the server. Reconnecting after a dropped connection
// is handled by the client itself.
func (n *Notifier) Prepare(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("gotus-hooks"),
		nats.MaxReconnects(-1),
	}
	if n.config.Username != "" {
		opts = append(opts, nats.UserInfo(n.config.Username, n.config.Password))
	}
	if n.config.Token != "" {
		opts = append(opts, nats.Token(n.config.Token))
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("unable to connect to nats: %w", err)
	}

	n.conn = conn
	return nil
}

func (n *Notifier) Send(ctx context.Context, msg hooks.Message) error {
	subject := n.subject(msg.Hook)

	if !n.config.RequestReply {
		return n.conn.Publish(subject, msg.Body)
	}

	reply, err := n.conn.RequestWithContext(ctx, subject, msg.Body)
	if err != nil {
		return err
	}

	if len(reply.Data) != 0 && string(reply.Data) != "OK" {
		return fmt.Errorf("hook rejected by subscriber: %s", reply.Data)
	}

	return nil
}

// Close drains pending messages and disconnects.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

func (n *Notifier) subject(hook hooks.HookType) string {
	if n.config.Subject != "" {
		return n.config.Subject
	}
	return n.config.SubjectPrefix + "." + string(hook)
}
