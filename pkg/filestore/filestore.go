// Package filestore provides a storage backend based on the local file
// system.
//
// FileStore is a payload-plane backend used as a handler.DataStore in
// handler.NewHandler. Payloads are stored as plain files named after the
// upload id, below a directory derived from the configured structure
// template. The per-upload records live in a separate handler.InfoStore.
// No cleanup is performed so you may want to run a cronjob to ensure your
// disk is not filled up with old and finished uploads.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gotus/gotus/internal/dirstruct"
	"github.com/gotus/gotus/pkg/handler"
)

// Name is the identity tag recorded in FileInfo.Storage for uploads owned
// by this backend.
const Name = "file_storage"

var defaultFilePerm = os.FileMode(0664)
var defaultDirectoryPerm = os.FileMode(0754)

// FileStore is a storage backend storing payloads on the local disk. See
// the handler.DataStore interface for documentation about the different
// methods.
type FileStore struct {
	// Root is the relative or absolute path below which all payloads are
	// stored. It is created by Prepare if it does not exist.
	Root string
	// DirStruct is the directory structure template expanded below Root,
	// e.g. "{year}/{month}/{day}". An empty template stores all payloads
	// directly in Root.
	DirStruct string
	// ForceSync makes every write followed by an fsync before it is
	// acknowledged.
	ForceSync bool

	env dirstruct.Env
}

// New creates a new file based storage backend. The environment for
// directory structure templating is captured once at construction.
func New(root string, dirStruct string) *FileStore {
	return &FileStore{
		Root:      root,
		DirStruct: dirStruct,
		env:       dirstruct.CaptureEnv(),
	}
}

func (store *FileStore) Name() string {
	return Name
}

func (store *FileStore) Prepare(ctx context.Context) error {
	return os.MkdirAll(store.Root, defaultDirectoryPerm)
}

func (store *FileStore) Create(ctx context.Context, info handler.FileInfo) (string, error) {
	dir := filepath.Join(store.Root, dirstruct.Expand(store.DirStruct, info.CreatedAt, store.env))
	if err := os.MkdirAll(dir, defaultDirectoryPerm); err != nil {
		return "", fmt.Errorf("unable to create data directory: %w", err)
	}

	path := filepath.Join(dir, info.ID)

	// O_EXCL ensures an id is never reused for an existing payload.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, defaultFilePerm)
	if err != nil {
		return "", fmt.Errorf("unable to create data file: %w", err)
	}

	return path, file.Close()
}

func (store *FileStore) Append(ctx context.Context, info handler.FileInfo, chunk []byte) error {
	file, err := os.OpenFile(info.Path, os.O_WRONLY, defaultFilePerm)
	if err != nil {
		if os.IsNotExist(err) {
			return handler.ErrNotFound
		}
		return err
	}
	// The chunk is anchored at the acknowledged offset instead of the
	// file's end. An interrupted request may have flushed more bytes than
	// were acknowledged; those are overwritten and cut off here, so a
	// resumed upload cannot carry them into the payload.
	if _, err := file.WriteAt(chunk, info.Offset); err != nil {
		file.Close()
		return err
	}

	if err := file.Truncate(info.Offset + int64(len(chunk))); err != nil {
		file.Close()
		return err
	}

	if store.ForceSync {
		if err := file.Sync(); err != nil {
			file.Close()
			return err
		}
	}

	return file.Close()
}

func (store *FileStore) Concat(ctx context.Context, info handler.FileInfo, parts []handler.FileInfo) error {
	file, err := os.OpenFile(info.Path, os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return err
	}

	for _, part := range parts {
		src, err := os.Open(part.Path)
		if err != nil {
			file.Close()
			if os.IsNotExist(err) {
				return handler.ErrNotFound
			}
			return err
		}

		if _, err := io.Copy(file, src); err != nil {
			src.Close()
			file.Close()
			return err
		}

		src.Close()
	}

	if store.ForceSync {
		if err := file.Sync(); err != nil {
			file.Close()
			return err
		}
	}

	return file.Close()
}

func (store *FileStore) Stream(ctx context.Context, info handler.FileInfo) (*handler.StreamedFile, error) {
	file, err := os.Open(info.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, handler.ErrNotFound
		}
		return nil, err
	}

	contentType, contentDisposition := handler.FilterContentType(info)
	return &handler.StreamedFile{
		Reader:             file,
		ContentType:        contentType,
		ContentDisposition: contentDisposition,
	}, nil
}

func (store *FileStore) Remove(ctx context.Context, info handler.FileInfo) error {
	if err := os.Remove(info.Path); err != nil {
		if os.IsNotExist(err) {
			return handler.ErrNotFound
		}
		return err
	}
	return nil
}
