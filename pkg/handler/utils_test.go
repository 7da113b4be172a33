package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gotus/gotus/pkg/filestore"
	"github.com/gotus/gotus/pkg/handler"
	"github.com/gotus/gotus/pkg/infostore"
)

// httpTest describes a single request against the handler and the
// expected response.
type httpTest struct {
	Name string

	Method string
	URL    string

	ReqBody   io.Reader
	ReqHeader map[string]string

	Code      int
	ResBody   string
	ResHeader map[string]string
}

func (test *httpTest) Run(h http.Handler, t *testing.T) *httptest.ResponseRecorder {
	t.Helper()

	req, _ := http.NewRequest(test.Method, test.URL, test.ReqBody)
	for key, value := range test.ReqHeader {
		req.Header.Set(key, value)
	}

	req.Host = "tus.io"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != test.Code {
		t.Errorf("Expected %v %s as status code (got %v %s)", test.Code, http.StatusText(test.Code), w.Code, http.StatusText(w.Code))
	}

	for key, value := range test.ResHeader {
		header := w.Header().Get(key)

		if value != header {
			t.Errorf("Expected '%s' as '%s' (got '%s')", value, key, header)
		}
	}

	if test.ResBody != "" && w.Body.String() != test.ResBody {
		t.Errorf("Expected '%s' as body (got '%s')", test.ResBody, w.Body.String())
	}

	return w
}

// newTestHandler builds a routed handler backed by a file data store and
// a file info store below a temporary directory.
func newTestHandler(t *testing.T, configure func(*handler.Config)) *handler.Handler {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	store := filestore.New(filepath.Join(dir, "data"), "")
	infoStore := infostore.NewFileInfoStore(filepath.Join(dir, "info"))
	require.NoError(t, store.Prepare(ctx))
	require.NoError(t, infoStore.Prepare(ctx))

	config := handler.Config{
		Store:      store,
		InfoStore:  infoStore,
		BasePath:   "/files/",
		Extensions: handler.AllExtensions(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if configure != nil {
		configure(&config)
	}

	h, err := handler.NewHandler(config)
	require.NoError(t, err)
	return h
}

// seqIDs returns a generator handing out the given ids in order, so the
// upload URLs in a test are predictable.
func seqIDs(ids ...string) func() string {
	var next int
	return func() string {
		id := ids[next%len(ids)]
		next++
		return id
	}
}
