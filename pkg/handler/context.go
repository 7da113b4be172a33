package handler

import (
	"context"
	"net/http"
)

// httpContext is a wrapper around context.Context that also carries the
// corresponding HTTP request and response writer.
type httpContext struct {
	context.Context

	res http.ResponseWriter
	req *http.Request

	// respectForwarded mirrors the handler configuration for code which
	// only has the context at hand, e.g. hook event construction.
	respectForwarded bool
}

func (handler *UnroutedHandler) newContext(w http.ResponseWriter, r *http.Request) *httpContext {
	return &httpContext{
		Context:          r.Context(),
		res:              w,
		req:              r,
		respectForwarded: handler.config.RespectForwardedHeaders,
	}
}
