// Package http provides a hook notifier which POSTs hook messages to a
// list of subscriber URLs.
package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethgrid/pester"

	"github.com/gotus/gotus/pkg/hooks"
)

// defaultTimeout bounds a single subscriber call, including retries.
const defaultTimeout = 2 * time.Second

// Notifier delivers hook messages over HTTP. Every subscriber must answer
// with a 2xx status; anything else is reported as a hooks.ResponseError
// carrying the subscriber's response.
type Notifier struct {
	urls           []string
	forwardHeaders []string
	client         *pester.Client
}

// New creates a notifier for the given subscriber URLs. Headers listed in
// forwardHeaders are copied from the upload request onto the hook
// request, which lets subscribers see e.g. authorization tokens. A zero
// timeout selects the default of two seconds.
func New(urls []string, forwardHeaders []string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := pester.New()
	client.KeepLog = true
	client.MaxRetries = 3
	client.Backoff = pester.ExponentialBackoff
	client.Timeout = timeout

	return &Notifier{
		urls:           urls,
		forwardHeaders: forwardHeaders,
		client:         client,
	}
}

func (n *Notifier) Name() string {
	return "http"
}

func (n *Notifier) Prepare(ctx context.Context) error {
	return nil
}

func (n *Notifier) Send(ctx context.Context, msg hooks.Message) error {
	idempotencyKey := uuid.NewString()

	for _, url := range n.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(msg.Body))
		if err != nil {
			return err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Hook-Name", string(msg.Hook))
		req.Header.Set("Idempotency-Key", idempotencyKey)

		for _, name := range n.forwardHeaders {
			if value := msg.Header.Get(name); value != "" {
				req.Header.Set(name, value)
			}
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			resp.Body.Close()
			return hooks.ResponseError{
				StatusCode:  resp.StatusCode,
				Body:        body,
				ContentType: resp.Header.Get("Content-Type"),
			}
		}

		resp.Body.Close()
	}

	return nil
}
