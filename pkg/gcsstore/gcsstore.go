// Package gcsstore provides a hybrid storage backend which stages uploads
// on the local file system and pushes them to a Google Cloud Storage
// bucket once they are complete.
//
// The routing rules match the S3 hybrid: creation and appends go to
// staging, the completing write triggers the push, incomplete uploads are
// served from staging and complete ones from the bucket. Unlike the S3
// hybrid, concatenation is supported: the parts are joined in staging and
// the result is pushed like any other completed upload.
package gcsstore

import (
	"context"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"

	"github.com/gotus/gotus/internal/dirstruct"
	"github.com/gotus/gotus/pkg/filestore"
	"github.com/gotus/gotus/pkg/handler"
)

// Name is the identity tag recorded in FileInfo.Storage for uploads owned
// by this backend.
const Name = "hybrid_gcs"

// GCSAPI is the subset of bucket operations this store uses.
type GCSAPI interface {
	WriteObject(ctx context.Context, key string, contentType string, r io.Reader) error
	ReadObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
}

// GCSService implements GCSAPI on top of a real Cloud Storage client.
type GCSService struct {
	Client *storage.Client
	Bucket string
}

func (service *GCSService) WriteObject(ctx context.Context, key string, contentType string, r io.Reader) error {
	w := service.Client.Bucket(service.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

func (service *GCSService) ReadObject(ctx context.Context, key string) (io.ReadCloser, error) {
	return service.Client.Bucket(service.Bucket).Object(key).NewReader(ctx)
}

func (service *GCSService) DeleteObject(ctx context.Context, key string) error {
	return service.Client.Bucket(service.Bucket).Object(key).Delete(ctx)
}

// HybridStore routes upload traffic between a local staging FileStore and
// a GCS bucket.
type HybridStore struct {
	// DirStruct is the key structure template expanded in front of the
	// upload id, using the upload's creation time.
	DirStruct string

	service GCSAPI
	staging *filestore.FileStore
	env     dirstruct.Env
}

// New constructs a hybrid store pushing completed uploads through the
// given service. The staging store holds all uploads still in flight.
func New(service GCSAPI, dirStruct string, staging *filestore.FileStore) *HybridStore {
	return &HybridStore{
		DirStruct: dirStruct,
		service:   service,
		staging:   staging,
		env:       dirstruct.CaptureEnv(),
	}
}

func (store *HybridStore) Name() string {
	return Name
}

func (store *HybridStore) Prepare(ctx context.Context) error {
	return store.staging.Prepare(ctx)
}

func (store *HybridStore) Create(ctx context.Context, info handler.FileInfo) (string, error) {
	return store.staging.Create(ctx, info)
}

func (store *HybridStore) Append(ctx context.Context, info handler.FileInfo, chunk []byte) error {
	if err := store.staging.Append(ctx, info, chunk); err != nil {
		return err
	}

	if info.Length != nil && info.Offset+int64(len(chunk)) == *info.Length && !info.IsPartial {
		return store.promote(ctx, info)
	}

	return nil
}

// Concat joins the parts in staging and pushes the result to the bucket.
func (store *HybridStore) Concat(ctx context.Context, info handler.FileInfo, parts []handler.FileInfo) error {
	if err := store.staging.Concat(ctx, info, parts); err != nil {
		return err
	}

	return store.promote(ctx, info)
}

func (store *HybridStore) Stream(ctx context.Context, info handler.FileInfo) (*handler.StreamedFile, error) {
	if store.isStaged(info) {
		// A complete upload still sitting in staging means an earlier
		// push failed. Retry it before falling back to the staged copy.
		if info.IsComplete() && !info.IsPartial {
			if err := store.promote(ctx, info); err == nil {
				return store.streamRemote(ctx, info)
			}
		}
		return store.staging.Stream(ctx, info)
	}

	return store.streamRemote(ctx, info)
}

func (store *HybridStore) Remove(ctx context.Context, info handler.FileInfo) error {
	staged := store.isStaged(info)
	if staged {
		if err := store.staging.Remove(ctx, info); err != nil {
			return err
		}
	}

	if info.IsComplete() && !staged {
		return store.service.DeleteObject(ctx, store.objectKey(info))
	}

	return nil
}

// promote streams the staged payload into the bucket and removes the
// staging copy afterwards. On error the staging copy is left untouched.
func (store *HybridStore) promote(ctx context.Context, info handler.FileInfo) error {
	file, err := os.Open(info.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return handler.ErrNotFound
		}
		return err
	}
	defer file.Close()

	contentType, _ := handler.FilterContentType(info)

	if err := store.service.WriteObject(ctx, store.objectKey(info), contentType, file); err != nil {
		return err
	}

	return os.Remove(info.Path)
}

func (store *HybridStore) streamRemote(ctx context.Context, info handler.FileInfo) (*handler.StreamedFile, error) {
	reader, err := store.service.ReadObject(ctx, store.objectKey(info))
	if err != nil {
		return nil, err
	}

	contentType, contentDisposition := handler.FilterContentType(info)
	return &handler.StreamedFile{
		Reader:             reader,
		ContentType:        contentType,
		ContentDisposition: contentDisposition,
	}, nil
}

// objectKey derives the remote key from the upload's creation time, so
// the key stays the same no matter when the push happens.
func (store *HybridStore) objectKey(info handler.FileInfo) string {
	return path.Join(dirstruct.Expand(store.DirStruct, info.CreatedAt, store.env), info.ID)
}

func (store *HybridStore) isStaged(info handler.FileInfo) bool {
	_, err := os.Stat(info.Path)
	return err == nil
}
