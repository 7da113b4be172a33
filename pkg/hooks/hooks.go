// Package hooks delivers upload lifecycle events to external subscribers.
//
// Events fall into two classes. Pre-hooks (pre-create, pre-terminate) run
// synchronously and may abort the request which triggered them. Post-hooks
// (post-create, post-receive, post-terminate, post-finish) are delivered
// in the background; their failures are logged and swallowed.
//
// The Manager serializes every event once, using the configured payload
// Format, and fans the message out to all configured notifiers. Transport
// implementations live in the subpackages http, file, amqp, kafka and
// nats.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gotus/gotus/pkg/handler"
)

// HookType is the name of a lifecycle event.
type HookType string

const (
	HookPreCreate     HookType = "pre-create"
	HookPostCreate    HookType = "post-create"
	HookPostReceive   HookType = "post-receive"
	HookPreTerminate  HookType = "pre-terminate"
	HookPostTerminate HookType = "post-terminate"
	HookPostFinish    HookType = "post-finish"
)

// AvailableHooks is a slice of all hooks which are implemented.
var AvailableHooks = []HookType{HookPreCreate, HookPostCreate, HookPostReceive, HookPreTerminate, HookPostTerminate, HookPostFinish}

// ParseHookTypes parses a comma-separated list of hook names. Only hooks
// contained in the result are ever fired.
func ParseHookTypes(list string) ([]HookType, error) {
	var hooks []HookType
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		found := false
		for _, hook := range AvailableHooks {
			if string(hook) == name {
				hooks = append(hooks, hook)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown hook: %s", name)
		}
	}
	return hooks, nil
}

// Message is a serialized hook event ready for delivery.
type Message struct {
	// Hook is the event which produced the message.
	Hook HookType
	// UploadID identifies the upload which caused the event.
	UploadID string
	// Body is the serialized payload.
	Body []byte
	// Header of the upload request which caused the event. Most
	// transports ignore it; the HTTP notifier forwards selected entries.
	Header http.Header
}

// Notifier delivers a serialized hook message over one transport.
type Notifier interface {
	// Name identifies the transport in log output.
	Name() string
	// Prepare performs one-shot setup, e.g. declaring AMQP exchanges.
	Prepare(ctx context.Context) error
	// Send delivers the message.
	Send(ctx context.Context, msg Message) error
}

// ResponseError is returned by the HTTP notifier when a subscriber
// answers with a non-2xx status. For pre-hooks, the subscriber's response
// is relayed verbatim to the uploading client.
type ResponseError struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e ResponseError) Error() string {
	return "hook endpoint returned " + strconv.Itoa(e.StatusCode)
}

// Manager fans hook events out to the configured notifiers.
type Manager struct {
	format    Format
	notifiers []Notifier
	logger    *slog.Logger
}

// NewManager builds a manager delivering messages in the given format.
func NewManager(format Format, logger *slog.Logger, notifiers ...Notifier) *Manager {
	return &Manager{
		format:    format,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Prepare readies all notifiers. It must be called once before Fire.
func (m *Manager) Prepare(ctx context.Context) error {
	for _, notifier := range m.notifiers {
		if err := notifier.Prepare(ctx); err != nil {
			return fmt.Errorf("preparing %s notifier: %w", notifier.Name(), err)
		}
	}
	return nil
}

// Fire serializes the event once and delivers it to every notifier in
// order. The first failing notifier aborts the fan-out and its error is
// returned, which lets pre-hooks reject the request.
func (m *Manager) Fire(ctx context.Context, hook HookType, event handler.HookEvent) error {
	if len(m.notifiers) == 0 {
		return nil
	}

	body, err := m.format.Marshal(event)
	if err != nil {
		return err
	}

	msg := Message{
		Hook:     hook,
		UploadID: event.Upload.ID,
		Body:     body,
		Header:   event.HTTPRequest.Header,
	}

	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			return fmt.Errorf("%s notifier: %w", notifier.Name(), err)
		}
	}

	return nil
}

// fireAndLog delivers a post-hook in the background. Failures must not
// influence the upload, so they are only logged.
func (m *Manager) fireAndLog(hook HookType, event handler.HookEvent) {
	if err := m.Fire(context.Background(), hook, event); err != nil {
		m.logger.Error("HookSendError", "hook", string(hook), "id", event.Upload.ID, "error", err.Error())
	}
}
