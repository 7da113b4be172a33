package hooks

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotus/gotus/pkg/handler"
)

func newTestEvent() handler.HookEvent {
	length := int64(100)
	return handler.HookEvent{
		Upload: handler.FileInfo{
			ID:        "upload1",
			Offset:    50,
			Length:    &length,
			Path:      "/data/upload1",
			CreatedAt: time.Unix(1700000000, 0).UTC(),
			Storage:   "file_storage",
			MetaData:  handler.MetaData{"filename": "cat.jpg"},
		},
		HTTPRequest: handler.HTTPRequest{
			Method:     "PATCH",
			URI:        "/files/upload1",
			RemoteAddr: "192.0.2.1",
			Header:     http.Header{"X-Request-Id": []string{"req-1"}},
		},
	}
}

func marshalToMap(t *testing.T, format Format) map[string]any {
	t.Helper()
	data, err := format.Marshal(newTestEvent())
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func TestFormatDefault(t *testing.T) {
	a := assert.New(t)
	payload := marshalToMap(t, FormatDefault)

	upload := payload["upload"].(map[string]any)
	a.Equal("upload1", upload["id"])
	a.EqualValues(50, upload["offset"])
	a.EqualValues(100, upload["length"])
	a.Equal("/data/upload1", upload["path"])
	a.EqualValues(1700000000, upload["created_at"])
	a.Equal(false, upload["deferred_size"])
	a.Equal("file_storage", upload["storage"])
	a.Contains(upload, "parts")

	request := payload["request"].(map[string]any)
	a.Equal("/files/upload1", request["URI"])
	a.Equal("PATCH", request["method"])
	a.Equal("192.0.2.1", request["remote_addr"])
	a.Equal("req-1", request["headers"].(map[string]any)["X-Request-Id"])
}

func TestFormatV2UsesLowercaseURI(t *testing.T) {
	a := assert.New(t)
	payload := marshalToMap(t, FormatV2)

	request := payload["request"].(map[string]any)
	a.Equal("/files/upload1", request["uri"])
	a.NotContains(request, "URI")
}

func TestFormatTusd(t *testing.T) {
	a := assert.New(t)
	payload := marshalToMap(t, FormatTusd)

	upload := payload["upload"].(map[string]any)
	a.Equal("upload1", upload["ID"])
	a.EqualValues(100, upload["Size"])
	a.Equal(false, upload["SizeIsDeferred"])

	storage := upload["Storage"].(map[string]any)
	a.Equal("file_storage", storage["Type"])
	a.Equal("/data/upload1", storage["Path"])

	request := payload["HTTPRequest"].(map[string]any)
	a.Equal("/files/upload1", request["URI"])
	a.Equal("PATCH", request["Method"])
	// tusd subscribers expect header values as arrays.
	a.Equal([]any{"req-1"}, request["Header"].(map[string]any)["X-Request-Id"])
}

func TestParseFormat(t *testing.T) {
	a := assert.New(t)

	for _, name := range []string{"default", "v2", "tusd"} {
		format, err := ParseFormat(name)
		a.NoError(err)
		a.Equal(Format(name), format)
	}

	_, err := ParseFormat("yaml")
	a.Error(err)
}
