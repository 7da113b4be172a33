package handler

import "context"

// InfoStore is the metadata-plane storage abstraction. It exclusively owns
// the FileInfo records; payload bytes are never stored here.
type InfoStore interface {
	// Prepare performs one-shot setup before the store serves requests,
	// e.g. creating the info directory or pinging the backend.
	Prepare(ctx context.Context) error
	// Set upserts the record. With create set, it must fail if a record
	// for info.ID already exists.
	Set(ctx context.Context, info FileInfo, create bool) error
	// Get retrieves the record, or ErrNotFound.
	Get(ctx context.Context, id string) (FileInfo, error)
	// Remove deletes the record, or returns ErrNotFound.
	Remove(ctx context.Context, id string) error
}
