package handler

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// MetaData is the free-form, client-supplied key-value map attached to an
// upload via the Upload-Metadata header.
type MetaData map[string]string

// FileInfo is the single per-upload record. It is owned by the InfoStore;
// the payload bytes it describes are owned by the DataStore named in the
// Storage field. Handlers read it as a value snapshot, mutate the copy and
// write it back, so concurrent readers always observe a consistent record.
type FileInfo struct {
	// ID uniquely identifies an upload resource. It is URL-safe.
	ID string
	// Offset is the number of bytes persisted so far. It never decreases.
	Offset int64
	// Length is the declared total size in bytes. It is nil exactly as
	// long as the size is deferred, and cannot change once set.
	Length *int64
	// Path is the backend-specific locator of the payload, e.g. a file
	// system path or an object key. Set by DataStore.Create.
	Path string
	// CreatedAt is the creation instant. It is serialized with seconds
	// precision and never mutated.
	CreatedAt time.Time
	// DeferredSize indicates that the total size is not yet known.
	DeferredSize bool
	// IsPartial marks the upload as an input for concatenation.
	IsPartial bool
	// IsFinal marks the upload as the product of a concatenation. Final
	// uploads cannot be appended to.
	IsFinal bool
	// Parts lists the source upload ids of a final upload in concat order.
	Parts []string
	// Storage is the name of the DataStore owning the payload. Requests
	// reaching a server with a different data store are rejected.
	Storage string
	// MetaData contains additional meta data about the upload.
	MetaData MetaData
}

// NewFileInfo builds the record for a freshly created upload.
func NewFileInfo(id string, length *int64, storage string, meta MetaData) FileInfo {
	if meta == nil {
		meta = make(MetaData)
	}
	return FileInfo{
		ID:           id,
		Length:       length,
		DeferredSize: length == nil,
		Storage:      storage,
		MetaData:     meta,
		CreatedAt:    time.Now().UTC(),
	}
}

// IsComplete reports whether all declared bytes have been received.
func (info FileInfo) IsComplete() bool {
	return info.Length != nil && info.Offset == *info.Length
}

// SetLength resolves a deferred size. It must only be called while the
// size is still deferred.
func (info *FileInfo) SetLength(length int64) {
	l := length
	info.Length = &l
	info.DeferredSize = false
}

// Filename returns the name the payload should be served under: the
// "filename" metadata entry, falling back to "name" and finally to the
// upload id.
func (info FileInfo) Filename() string {
	if name, ok := info.MetaData["filename"]; ok && name != "" {
		return name
	}
	if name, ok := info.MetaData["name"]; ok && name != "" {
		return name
	}
	return info.ID
}

// fileInfoJSON is the persisted wire shape of FileInfo. The field names
// and the unix-seconds created_at are shared with the .info files and the
// hook payloads, so they must not change.
type fileInfoJSON struct {
	ID           string   `json:"id"`
	Offset       int64    `json:"offset"`
	Length       *int64   `json:"length"`
	Path         string   `json:"path,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	DeferredSize bool     `json:"deferred_size"`
	IsPartial    bool     `json:"is_partial"`
	IsFinal      bool     `json:"is_final"`
	Parts        []string `json:"parts,omitempty"`
	Storage      string   `json:"storage"`
	MetaData     MetaData `json:"metadata"`
}

func (info FileInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileInfoJSON{
		ID:           info.ID,
		Offset:       info.Offset,
		Length:       info.Length,
		Path:         info.Path,
		CreatedAt:    info.CreatedAt.Unix(),
		DeferredSize: info.DeferredSize,
		IsPartial:    info.IsPartial,
		IsFinal:      info.IsFinal,
		Parts:        info.Parts,
		Storage:      info.Storage,
		MetaData:     info.MetaData,
	})
}

func (info *FileInfo) UnmarshalJSON(data []byte) error {
	var wire fileInfoJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*info = FileInfo{
		ID:           wire.ID,
		Offset:       wire.Offset,
		Length:       wire.Length,
		Path:         wire.Path,
		CreatedAt:    time.Unix(wire.CreatedAt, 0).UTC(),
		DeferredSize: wire.DeferredSize,
		IsPartial:    wire.IsPartial,
		IsFinal:      wire.IsFinal,
		Parts:        wire.Parts,
		Storage:      wire.Storage,
		MetaData:     wire.MetaData,
	}
	if info.MetaData == nil {
		info.MetaData = make(MetaData)
	}
	return nil
}

// StreamedFile is the result of DataStore.Stream: the payload reader plus
// the headers a GET response should carry. The caller must close Reader.
type StreamedFile struct {
	Reader             io.ReadCloser
	ContentType        string
	ContentDisposition string
}

// DataStore is the payload-plane storage abstraction. Implementations own
// the payload bytes of the uploads they created; the per-upload metadata
// lives in an InfoStore and is never touched by a DataStore.
type DataStore interface {
	// Name returns the identity tag persisted in FileInfo.Storage. It is
	// used to reject requests for uploads owned by a different backend.
	Name() string
	// Prepare performs one-shot setup before the store serves requests,
	// e.g. creating the data directory.
	Prepare(ctx context.Context) error
	// Create reserves the payload for a new upload and returns its
	// locator, which the caller records in info.Path. It must fail if a
	// payload for info.ID already exists.
	Create(ctx context.Context, info FileInfo) (string, error)
	// Append writes chunk at the acknowledged offset of the payload.
	// When Append returns without error, the bytes are durably persisted.
	Append(ctx context.Context, info FileInfo, chunk []byte) error
	// Concat writes the payloads of parts, in order, into info's payload.
	// Stores without server-side concatenation return ErrNotImplemented.
	Concat(ctx context.Context, info FileInfo, parts []FileInfo) error
	// Stream returns the payload for downloading along with the derived
	// content type and disposition.
	Stream(ctx context.Context, info FileInfo) (*StreamedFile, error)
	// Remove deletes the payload. It returns ErrNotFound if there is none.
	Remove(ctx context.Context, info FileInfo) error
}
