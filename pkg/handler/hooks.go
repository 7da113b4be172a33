package handler

import (
	"net"
	"net/http"
	"strings"
)

// HookEvent represents an event from the handler which can be handled by
// the application.
type HookEvent struct {
	// Upload contains the upload's record at the time of the event.
	Upload FileInfo
	// HTTPRequest contains details about the HTTP request which
	// caused the event.
	HTTPRequest HTTPRequest
}

func newHookEvent(c *httpContext, info FileInfo) HookEvent {
	// The request is not guaranteed to be valid any longer once the
	// event is handled asynchronously, so we clone the header.
	return HookEvent{
		Upload: info,
		HTTPRequest: HTTPRequest{
			Method:     c.req.Method,
			URI:        c.req.RequestURI,
			RemoteAddr: getRequestRemoteAddr(c.req, c.respectForwarded),
			Header:     c.req.Header.Clone(),
		},
	}
}

// getRequestRemoteAddr resolves the address of the uploading client. If
// proxy headers are trusted, the Forwarded header wins over
// X-Forwarded-For; otherwise the connection peer is used, stripped of its
// port.
func getRequestRemoteAddr(r *http.Request, allowForwarded bool) string {
	if allowForwarded {
		if h := r.Header.Get("Forwarded"); h != "" {
			if m := reForwardedFor.FindStringSubmatch(h); len(m) == 2 {
				return m[1]
			}
		}
		if h := r.Header.Get("X-Forwarded-For"); h != "" {
			if first := strings.TrimSpace(strings.Split(h, ",")[0]); first != "" {
				return first
			}
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
