// Package infostore provides the metadata-plane backends which persist
// the per-upload records, either as JSON files on the local disk or in a
// Redis database.
package infostore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotus/gotus/pkg/handler"
)

var defaultFilePerm = os.FileMode(0664)
var defaultDirectoryPerm = os.FileMode(0754)

// FileInfoStore keeps the upload records as one JSON file per upload at
// <Root>/<id>.info.
type FileInfoStore struct {
	// Root is the directory below which all records are stored. It is
	// created by Prepare if it does not exist.
	Root string
}

// NewFileInfoStore creates a file based information storage backend.
func NewFileInfoStore(root string) *FileInfoStore {
	return &FileInfoStore{Root: root}
}

func (store *FileInfoStore) Prepare(ctx context.Context) error {
	return os.MkdirAll(store.Root, defaultDirectoryPerm)
}

func (store *FileInfoStore) Set(ctx context.Context, info handler.FileInfo, create bool) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	if create {
		// O_EXCL guards against reusing an id for an existing upload.
		file, err := os.OpenFile(store.infoPath(info.ID), os.O_CREATE|os.O_WRONLY|os.O_EXCL, defaultFilePerm)
		if err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("upload %s already exists", info.ID)
			}
			return err
		}

		if _, err := file.Write(data); err != nil {
			file.Close()
			return err
		}

		return file.Close()
	}

	return os.WriteFile(store.infoPath(info.ID), data, defaultFilePerm)
}

func (store *FileInfoStore) Get(ctx context.Context, id string) (handler.FileInfo, error) {
	data, err := os.ReadFile(store.infoPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return handler.FileInfo{}, handler.ErrNotFound
		}
		return handler.FileInfo{}, err
	}

	var info handler.FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return handler.FileInfo{}, err
	}

	return info, nil
}

func (store *FileInfoStore) Remove(ctx context.Context, id string) error {
	if err := os.Remove(store.infoPath(id)); err != nil {
		if os.IsNotExist(err) {
			return handler.ErrNotFound
		}
		return err
	}
	return nil
}

func (store *FileInfoStore) infoPath(id string) string {
	return filepath.Join(store.Root, id+".info")
}
