package hooks

import (
	"context"
	"errors"

	"github.com/gotus/gotus/pkg/handler"
)

// NewHandlerWithHooks creates a routed handler which fires the enabled
// hooks through the given manager. Pre-hooks are wired as synchronous
// callbacks and may abort the request; post-hooks are consumed from the
// handler's notification channels in the background.
func NewHandlerWithHooks(config *handler.Config, manager *Manager, enabledHooks []HookType) (*handler.Handler, error) {
	enabled := make(map[HookType]bool, len(enabledHooks))
	for _, hook := range enabledHooks {
		enabled[hook] = true
	}

	if enabled[HookPreCreate] {
		config.PreUploadCreateCallback = preHookCallback(manager, HookPreCreate, handler.ErrUploadRejectedByServer)
	}
	if enabled[HookPreTerminate] {
		config.PreUploadTerminateCallback = preHookCallback(manager, HookPreTerminate, handler.ErrUploadTerminationRejected)
	}

	config.NotifyCreatedUploads = enabled[HookPostCreate]
	config.NotifyReceivedChunks = enabled[HookPostReceive]
	config.NotifyTerminatedUploads = enabled[HookPostTerminate]
	config.NotifyCompleteUploads = enabled[HookPostFinish]

	h, err := handler.NewHandler(*config)
	if err != nil {
		return nil, err
	}

	if enabled[HookPostCreate] {
		go func() {
			for event := range h.CreatedUploads {
				manager.fireAndLog(HookPostCreate, event)
			}
		}()
	}
	if enabled[HookPostReceive] {
		go func() {
			for event := range h.ReceivedChunks {
				manager.fireAndLog(HookPostReceive, event)
			}
		}()
	}
	if enabled[HookPostTerminate] {
		go func() {
			for event := range h.TerminatedUploads {
				manager.fireAndLog(HookPostTerminate, event)
			}
		}()
	}
	if enabled[HookPostFinish] {
		go func() {
			for event := range h.CompleteUploads {
				manager.fireAndLog(HookPostFinish, event)
			}
		}()
	}

	return h, nil
}

// preHookCallback adapts a synchronous hook into a handler callback. An
// HTTP subscriber's rejection is relayed to the client verbatim,
// including its status, body and content type. Failures of other
// transports surface as the given fallback error.
func preHookCallback(manager *Manager, hook HookType, fallback handler.Error) func(handler.HookEvent) (handler.HTTPResponse, error) {
	return func(event handler.HookEvent) (handler.HTTPResponse, error) {
		err := manager.Fire(context.Background(), hook, event)
		if err == nil {
			return handler.HTTPResponse{}, nil
		}

		var respErr ResponseError
		if errors.As(err, &respErr) {
			rejection := fallback
			rejection.HTTPResponse = handler.HTTPResponse{
				StatusCode: respErr.StatusCode,
				Body:       string(respErr.Body),
				Header: handler.HTTPHeader{
					"Content-Type": respErr.ContentType,
				},
			}
			return handler.HTTPResponse{}, rejection
		}

		return handler.HTTPResponse{}, err
	}
}
