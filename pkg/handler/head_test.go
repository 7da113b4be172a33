package handler_test

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gotus/gotus/pkg/handler"
)

func TestHead(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("upload1")
	})

	(&httpTest{
		Method: "POST",
		URL:    "/",
		ReqBody: strings.NewReader("hello"),
		ReqHeader: map[string]string{
			"Upload-Length":   "11",
			"Upload-Metadata": "filename d29ybGRfZG9taW5hdGlvbl9wbGFuLnBkZg==",
			"Content-Type":    "application/offset+octet-stream",
		},
		Code: http.StatusCreated,
	}).Run(h, t)

	res := (&httpTest{
		Name:   "Successful HEAD",
		Method: "HEAD",
		URL:    "/files/upload1",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Length":   "11",
			"Upload-Offset":   "5",
			"Content-Length":  "5",
			"Upload-Metadata": "filename d29ybGRfZG9taW5hdGlvbl9wbGFuLnBkZg==",
			"Cache-Control":   "no-store",
		},
	}).Run(h, t)

	// The creation time is reported as unix seconds.
	created, err := strconv.ParseInt(res.Header().Get("Upload-Created"), 10, 64)
	if err != nil {
		t.Errorf("Expected a numeric Upload-Created header (got '%s')", res.Header().Get("Upload-Created"))
	}
	if now := time.Now().Unix(); created < now-60 || created > now {
		t.Errorf("Expected Upload-Created close to %v (got %v)", now, created)
	}
}

func TestHeadDeferredLength(t *testing.T) {
	h := newTestHandler(t, func(config *handler.Config) {
		config.GenerateID = seqIDs("upload1")
	})

	(&httpTest{
		Method: "POST",
		URL:    "/",
		ReqHeader: map[string]string{
			"Upload-Defer-Length": "1",
		},
		Code: http.StatusCreated,
	}).Run(h, t)

	(&httpTest{
		Name:   "Deferred uploads answer with Upload-Defer-Length",
		Method: "HEAD",
		URL:    "/files/upload1",
		Code:   http.StatusOK,
		ResHeader: map[string]string{
			"Upload-Defer-Length": "1",
			"Upload-Length":       "",
			"Upload-Offset":       "0",
		},
	}).Run(h, t)
}

func TestHeadNotFound(t *testing.T) {
	h := newTestHandler(t, nil)

	res := (&httpTest{
		Name:   "Unknown upload",
		Method: "HEAD",
		URL:    "/files/no-such-upload",
		Code:   http.StatusNotFound,
	}).Run(h, t)

	// HEAD responses must not carry a body.
	if res.Body.Len() != 0 {
		t.Errorf("Expected empty body for HEAD request (got '%s')", res.Body.String())
	}
}
