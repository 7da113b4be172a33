// Package uid generates identifiers for new uploads.
package uid

import "github.com/google/uuid"

// Uid returns a random UUIDv4 string. The id is URL-safe and is used both
// in the upload URL and as the key in the info and data storages.
func Uid() string {
	return uuid.NewString()
}
