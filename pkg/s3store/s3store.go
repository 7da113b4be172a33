// Package s3store provides a hybrid storage backend which stages uploads
// on the local file system and pushes them to an AWS S3 (or compatible)
// bucket once they are complete.
//
// Creation and appends only ever touch the staging area, so chunk writes
// stay cheap and resumable. When an append makes an upload complete, the
// staged file is streamed to the bucket and the staging copy is removed.
// Incomplete uploads are served from staging, complete ones from the
// bucket. A failed push leaves the staging copy intact; the next access
// which observes the complete-but-staged state re-attempts the push.
package s3store

import (
	"context"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gotus/gotus/internal/dirstruct"
	"github.com/gotus/gotus/pkg/filestore"
	"github.com/gotus/gotus/pkg/handler"
)

// Name is the identity tag recorded in FileInfo.Storage for uploads owned
// by this backend.
const Name = "hybrid_s3"

// S3API is the subset of the S3 client this store uses.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opt ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opt ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opt ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// HybridStore routes upload traffic between a local staging FileStore and
// an S3 bucket. See the package documentation for the routing rules.
type HybridStore struct {
	// Bucket used to store the objects in, e.g. "my-uploads".
	Bucket string
	// DirStruct is the key structure template expanded in front of the
	// upload id, using the upload's creation time. Keys are stable across
	// restarts because of that.
	DirStruct string

	client  S3API
	staging *filestore.FileStore
	env     dirstruct.Env
}

// New constructs a hybrid store pushing completed uploads to the given
// bucket. The staging store holds all uploads still in flight.
func New(client S3API, bucket string, dirStruct string, staging *filestore.FileStore) *HybridStore {
	return &HybridStore{
		Bucket:    bucket,
		DirStruct: dirStruct,
		client:    client,
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

	if store.completesUpload(info, int64(len(chunk))) {
		return store.promote(ctx, info)
	}

	return nil
}

// Concat is not available: the S3 API cannot concatenate existing keys
// without re-uploading them.
func (store *HybridStore) Concat(ctx context.Context, info handler.FileInfo, parts []handler.FileInfo) error {
	return handler.ErrNotImplemented
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
		_, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(store.Bucket),
			Key:    aws.String(store.objectKey(info)),
		})
		return err
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

	_, err = store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(store.Bucket),
		Key:           aws.String(store.objectKey(info)),
		Body:          file,
		ContentLength: info.Length,
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return err
	}

	return os.Remove(info.Path)
}

func (store *HybridStore) streamRemote(ctx context.Context, info handler.FileInfo) (*handler.StreamedFile, error) {
	output, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.Bucket),
		Key:    aws.String(store.objectKey(info)),
	})
	if err != nil {
		return nil, err
	}

	contentType, contentDisposition := handler.FilterContentType(info)
	return &handler.StreamedFile{
		Reader:             output.Body,
		ContentType:        contentType,
		ContentDisposition: contentDisposition,
	}, nil
}

// objectKey derives the remote key from the upload's creation time, so
// the key stays the same no matter when the push happens.
func (store *HybridStore) objectKey(info handler.FileInfo) string {
	return path.Join(dirstruct.Expand(store.DirStruct, info.CreatedAt, store.env), info.ID)
}

func (store *HybridStore) completesUpload(info handler.FileInfo, written int64) bool {
	return info.Length != nil && info.Offset+written == *info.Length && !info.IsPartial
}

func (store *HybridStore) isStaged(info handler.FileInfo) bool {
	_, err := os.Stat(info.Path)
	return err == nil
}
