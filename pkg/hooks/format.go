package hooks

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gotus/gotus/pkg/handler"
)

// Format selects the serialization shape of hook messages.
type Format string

const (
	// FormatDefault is the native shape: the upload record in snake_case
	// plus a "request" object whose URI key is spelled "URI".
	FormatDefault Format = "default"
	// FormatV2 matches FormatDefault except the URI key is lowercase.
	FormatV2 Format = "v2"
	// FormatTusd mimics the shape emitted by tusd's hook system, with
	// PascalCase keys, a nested Storage object and header value arrays.
	FormatTusd Format = "tusd"
)

// ParseFormat validates a format name from the configuration.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatDefault, FormatV2, FormatTusd:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown hooks format: %s", name)
	}
}

// uploadPayload is the upload record as it appears in default and v2
// messages. Unlike the persisted record, every key is always present.
type uploadPayload struct {
	ID           string           `json:"id"`
	Offset       int64            `json:"offset"`
	Length       *int64           `json:"length"`
	Path         string           `json:"path"`
	CreatedAt    int64            `json:"created_at"`
	DeferredSize bool             `json:"deferred_size"`
	IsPartial    bool             `json:"is_partial"`
	IsFinal      bool             `json:"is_final"`
	Metadata     handler.MetaData `json:"metadata"`
	Storage      string           `json:"storage"`
	Parts        []string         `json:"parts"`
}

type tusdStorage struct {
	Type string `json:"Type"`
	Path string `json:"Path"`
}

type tusdUpload struct {
	ID             string           `json:"ID"`
	Offset         int64            `json:"Offset"`
	Size           *int64           `json:"Size"`
	CreatedAt      int64            `json:"CreatedAt"`
	SizeIsDeferred bool             `json:"SizeIsDeferred"`
	IsPartial      bool             `json:"IsPartial"`
	IsFinal        bool             `json:"IsFinal"`
	MetaData       handler.MetaData `json:"MetaData"`
	Storage        tusdStorage      `json:"Storage"`
	Parts          []string         `json:"Parts"`
}

type tusdRequest struct {
	URI        string              `json:"URI"`
	Method     string              `json:"Method"`
	RemoteAddr string              `json:"RemoteAddr"`
	Header     map[string][]string `json:"Header"`
}

// Marshal renders the event into the message body shared by all
// notifiers.
func (f Format) Marshal(event handler.HookEvent) ([]byte, error) {
	info := event.Upload
	req := event.HTTPRequest

	if f == FormatTusd {
		return json.Marshal(map[string]any{
			"upload": tusdUpload{
				ID:             info.ID,
				Offset:         info.Offset,
				Size:           info.Length,
				CreatedAt:      info.CreatedAt.Unix(),
				SizeIsDeferred: info.DeferredSize,
				IsPartial:      info.IsPartial,
				IsFinal:        info.IsFinal,
				MetaData:       info.MetaData,
				Storage: tusdStorage{
					Type: info.Storage,
					Path: info.Path,
				},
				Parts: info.Parts,
			},
			"HTTPRequest": tusdRequest{
				URI:        req.URI,
				Method:     req.Method,
				RemoteAddr: req.RemoteAddr,
				Header:     req.Header,
			},
		})
	}

	request := map[string]any{
		"method":      req.Method,
		"remote_addr": req.RemoteAddr,
		"headers":     flattenHeader(req.Header),
	}
	if f == FormatV2 {
		request["uri"] = req.URI
	} else {
		request["URI"] = req.URI
	}

	return json.Marshal(map[string]any{
		"upload": uploadPayload{
			ID:           info.ID,
			Offset:       info.Offset,
			Length:       info.Length,
			Path:         info.Path,
			CreatedAt:    info.CreatedAt.Unix(),
			DeferredSize: info.DeferredSize,
			IsPartial:    info.IsPartial,
			IsFinal:      info.IsFinal,
			Metadata:     info.MetaData,
			Storage:      info.Storage,
			Parts:        info.Parts,
		},
		"request": request,
	})
}

// flattenHeader keeps only the first value of each header, which is what
// most subscribers expect from a plain JSON object.
func flattenHeader(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name := range header {
		flat[name] = header.Get(name)
	}
	return flat
}
