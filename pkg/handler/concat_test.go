package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gotus/gotus/pkg/handler"
)

func createPartialUpload(t *testing.T, h *handler.Handler, content string) {
	t.Helper()

	(&httpTest{
		Method: "POST",
		URL:    "/",
		ReqBody: strings.NewReader(content),
		ReqHeader: map[string]string{
			"Upload-Length": "5",
			"Upload-Concat": "partial",
			"Content-Type":  "application/offset+octet-stream",
		},
		Code: http.StatusCreated,
	}).Run(h, t)
}

func TestConcat(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("a", "b", "final1")
	})

	createPartialUpload(t, h, "hello")
	createPartialUpload(t, h, "world")

	(&httpTest{
		Name:   "Partial uploads advertise themselves",
		Method: "HEAD",
		URL:    "/files/a",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Concat": "partial",
			"Upload-Offset": "5",
		},
	}).Run(h, t)

	(&httpTest{
		Name:   "Assembling the final upload",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Concat": "final;/files/a /files/b",
		},
		Code: http.StatusCreated,
		ResHeader: map[string]string{
			"Location":      "http://tus.io/files/final1",
			"Upload-Offset": "10",
		},
	}).Run(h, t)

	(&httpTest{
		Name:   "The final upload lists its parts",
		Method: "HEAD",
		URL:    "/files/final1",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Concat": "final;http://tus.io/files/a http://tus.io/files/b",
			"Upload-Length": "10",
			"Upload-Offset": "10",
		},
	}).Run(h, t)

	(&httpTest{
		Name:   "The final payload is the concatenation of its parts",
		Method: "GET",
		URL:    "/files/final1",
		Code:   http.StatusOK,
		ResBody: "helloworld",
	}).Run(h, t)

	(&httpTest{
		Name:   "Appending to a final upload is forbidden",
		Method: "PATCH",
		URL:    "/files/final1",
		ReqBody: strings.NewReader("more"),
		ReqHeader: map[string]string{
			"Content-Type":  "application/offset+octet-stream",
			"Upload-Offset": "10",
		},
		Code: http.StatusForbidden,
	}).Run(h, t)
}

func TestConcatUnfinishedPartial(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("a", "final1")
	})

	// The partial upload has declared 5 bytes but received none.
	(&httpTest{
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Length": "5",
			"Upload-Concat": "partial",
		},
		Code: http.StatusCreated,
	}).Run(h, t)

	(&httpTest{
		Name:   "Unfinished partials cannot be concatenated",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Concat": "final;/files/a",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)
}

func TestConcatNonPartial(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("a", "final1")
	})

	(&httpTest{
		Method: "POST",
		URL:    "/",
		ReqBody: strings.NewReader("hello"),
		ReqHeader: map[string]string{
			"Upload-Length": "5",
			"Content-Type":  "application/offset+octet-stream",
		},
		Code: http.StatusCreated,
	}).Run(h, t)

	(&httpTest{
		Name:   "Only partial uploads can be concatenated",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Concat": "final;/files/a",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)
}

func TestConcatWithChunkForbidden(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("a", "final1")
	})

	createPartialUpload(t, h, "hello")

	(&httpTest{
		Name:   "A final creation request must not carry a body",
		Method: "POST",
		URL:    "/",
		ReqBody: strings.NewReader("more"),
		ReqHeader: map[string]string{
			"Upload-Concat": "final;/files/a",
			"Content-Type":  "application/offset+octet-stream",
		},
		Code: http.StatusForbidden,
	}).Run(h, t)
}

func TestConcatRemoveParts(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("a", "b", "final1")
		config.RemoveParts = true
	})

	createPartialUpload(t, h, "hello")
	createPartialUpload(t, h, "world")

	(&httpTest{
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Concat": "final;/files/a /files/b",
		},
		Code: http.StatusCreated,
	}).Run(h, t)

	(&httpTest{
		Name:   "Parts are removed once the final upload is assembled",
		Method: "HEAD",
		URL:    "/files/a",
		Code:   http.StatusNotFound,
	}).Run(h, t)

	(&httpTest{
		Name:   "The final upload is unaffected by part removal",
		Method: "GET",
		URL:    "/files/final1",
		Code:   http.StatusOK,
		ResBody: "helloworld",
	}).Run(h, t)
}

func TestConcatInvalidHeader(t *testing.T) {
	h := newTestHandler(t, nil)

	(&httpTest{
		Name:   "Malformed Upload-Concat header",
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Concat": "final",
			"Upload-Length": "10",
		},
		Code: http.StatusBadRequest,
	}).Run(h, t)
}
