package handler_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gotus/gotus/pkg/handler"
)

func TestPost(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("upload1")
	})

	(&httpTest{
		Name:   "Successful creation",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length":   "300",
			"Upload-Metadata": "foo aGVsbG8=, bar d29ybGQ=",
		},
		Code: http.StatusCreated,
		ResHeader: map[string]string{
			"Location":      "http://tus.io/files/upload1",
			"Upload-Offset": "0",
			"Tus-Resumable": "1.0.0",
		},
	}).Run(h, t)

	(&httpTest{
		Name:   "Metadata is echoed by a HEAD request",
		Method: "HEAD",
		URL:    "/files/upload1",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Metadata": "bar d29ybGQ=,foo aGVsbG8=",
			"Upload-Length":   "300",
		},
	}).Run(h, t)

	(&httpTest{
		Name:   "Missing Upload-Length",
		Method: "POST",
		URL:    "/",
		Code:   http.StatusBadRequest,
	}).Run(h, t)

	(&httpTest{
		Name:   "Negative Upload-Length",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "-10",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)
}

func TestPostMaxSize(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.MaxSize = 400
	})

	(&httpTest{
		Name:   "Exceeding MaxSize",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "500",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)
}

func TestPostEmptyUpload(t *testing.T) {
	h := newTestHandler(t, nil)

	(&httpTest{
		Name:   "Empty uploads are rejected by default",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "0",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)

	h = newTestHandler(t, func(config *handler.Config) {
		config.AllowEmpty = true
		config.GenerateID = seqIDs("empty1")
	})

	(&httpTest{
		Name:   "Empty uploads are complete on creation when allowed",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "0",
		},
		Code: http.StatusCreated,
		ResHeader: map[string]string{
			"Upload-Offset": "0",
		},
	}).Run(h, t)

	(&httpTest{
		Method: "HEAD",
		URL:    "/files/empty1",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Length": "0",
			"Upload-Offset": "0",
		},
	}).Run(h, t)
}

func TestPostCompleteCreationNotifications(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.AllowEmpty = true
		config.NotifyCreatedUploads = true
		config.NotifyCompleteUploads = true
		config.GenerateID = seqIDs("empty1", "upload1")
	})

	events := make(chan string, 10)
	go func() {
		for range h.CreatedUploads {
			events <- "created"
		}
	}()
	go func() {
		for range h.CompleteUploads {
			events <- "complete"
		}
	}()

	expectEvent := func(want string) {
		t.Helper()
		select {
		case kind := <-events:
			if kind != want {
				t.Errorf("Expected a %s event (got %s)", want, kind)
			}
		case <-time.After(time.Second):
			t.Errorf("Expected a %s event (got none)", want)
		}
		select {
		case kind := <-events:
			t.Errorf("Unexpected extra %s event", kind)
		case <-time.After(50 * time.Millisecond):
		}
	}

	// An upload which is complete the moment it is created counts as
	// finished, not as created.
	(&httpTest{
		Name:   "Complete creation",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "0",
		},
		Code: http.StatusCreated,
	}).Run(h, t)
	expectEvent("complete")

	(&httpTest{
		Name:   "Pending creation",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "10",
		},
		Code: http.StatusCreated,
	}).Run(h, t)
	expectEvent("created")
}

func TestPostCreationWithUpload(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("upload1")
	})

	(&httpTest{
		Name:   "The initial chunk is appended during creation",
		Method: "POST",
		URL:    "/",
		ReqBody: strings.NewReader("hello"),
		ReqHeader: map[string]string{
			"Upload-Length": "10",
			"Content-Type":  "application/offset+octet-stream",
		},
		Code: http.StatusCreated,
		ResHeader: map[string]string{
			"Location":      "http://tus.io/files/upload1",
			"Upload-Offset": "5",
		},
	}).Run(h, t)

	(&httpTest{
		Method: "HEAD",
		URL:    "/files/upload1",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Offset": "5",
		},
	}).Run(h, t)
}

func TestPostDeferLengthHeaders(t *testing.T) {
	h := newTestHandler(t, nil)

	(&httpTest{
		Name:   "Upload-Length and Upload-Defer-Length are mutually exclusive",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length":       "10",
			"Upload-Defer-Length": "1",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)

	(&httpTest{
		Name:   "Upload-Defer-Length must be 1",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Defer-Length": "2",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)
}

func TestPostWithoutCreationExtension(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.Extensions = handler.Extensions{}
	})

	(&httpTest{
		Name:   "Creation requests are unknown if the extension is off",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "10",
		},
		Code: http.StatusNotFound,
	}).Run(h, t)
}

func TestPostPreCreateRejection(t *testing.T) {
	rejection := handler.Error{
		ErrorCode: "ERR_UPLOAD_REJECTED",
		Message:   "upload creation has been rejected by server",
		HTTPResponse: handler.HTTPResponse{
			StatusCode: http.StatusBadRequest,
			Body:       "nope",
			Header: handler.HTTPHeader{
				"Content-Type": "text/plain",
			},
		},
	}

	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("upload1")
		config.PreUploadCreateCallback = func(hook handler.HookEvent) (handler.HTTPResponse, error) {
			return handler.HTTPResponse{}, rejection
		}
	})

	(&httpTest{
		Name:   "The subscriber's response is relayed verbatim",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "10",
		},
		Code:    http.StatusBadRequest,
		ResBody: "nope",
		ResHeader: map[string]string{
			"Content-Type": "text/plain",
		},
	}).Run(h, t)

	// A rejected creation must leave no record behind.
	(&httpTest{
		Method: "HEAD",
		URL:    "/files/upload1",
		Code:   http.StatusNotFound,
	}).Run(h, t)
}

func TestPostForwardedHeaders(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("upload1")
		config.RespectForwardedHeaders = true
	})

	(&httpTest{
		Name:   "X-Forwarded-* determine the upload URL",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length":     "10",
			"X-Forwarded-Host":  "foo.com",
			"X-Forwarded-Proto": "https",
		},
		Code: http.StatusCreated,
		ResHeader: map[string]string{
			"Location": "https://foo.com/files/upload1",
		},
	}).Run(h, t)
}
