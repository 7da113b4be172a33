package cli

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"github.com/gotus/gotus/pkg/filestore"
	"github.com/gotus/gotus/pkg/gcsstore"
	"github.com/gotus/gotus/pkg/handler"
	"github.com/gotus/gotus/pkg/infostore"
	"github.com/gotus/gotus/pkg/s3store"
)

// Store and InfoStore are the backends selected by the flags. They are
// set by CreateStores and handed to the handler in Serve.
var Store handler.DataStore
var InfoStore handler.InfoStore

func CreateStores() {
	ctx := context.Background()

	switch Flags.DataStorage {
	case "file":
		stdout.Printf("Using '%s' as directory storage.\n", Flags.UploadDir)

		store := filestore.New(Flags.UploadDir, Flags.DirStructure)
		store.ForceSync = Flags.ForceFsync
		Store = store
	case "hybrid-s3":
		if Flags.S3Bucket == "" {
			stderr.Fatalf("The hybrid-s3 backend requires the -s3-bucket flag")
		}

		stdout.Printf("Using 's3://%s' as S3 bucket for storage, staging in '%s'.\n", Flags.S3Bucket, Flags.UploadDir)

		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			stderr.Fatalf("Unable to load AWS configuration: %s", err)
		}

		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if Flags.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(Flags.S3Endpoint)
			}
			o.UsePathStyle = Flags.S3UsePathStyle
		})

		staging := filestore.New(Flags.UploadDir, "")
		staging.ForceSync = Flags.ForceFsync
		Store = s3store.New(client, Flags.S3Bucket, Flags.DirStructure, staging)
	case "hybrid-gcs":
		if Flags.GCSBucket == "" {
			stderr.Fatalf("The hybrid-gcs backend requires the -gcs-bucket flag")
		}

		stdout.Printf("Using 'gcs://%s' as GCS bucket for storage, staging in '%s'.\n", Flags.GCSBucket, Flags.UploadDir)

		var opts []option.ClientOption
		if Flags.GCSCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(Flags.GCSCredentialsFile))
		}

		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			stderr.Fatalf("Unable to create GCS client: %s", err)
		}

		service := &gcsstore.GCSService{
			Client: client,
			Bucket: Flags.GCSBucket,
		}

		staging := filestore.New(Flags.UploadDir, "")
		staging.ForceSync = Flags.ForceFsync
		Store = gcsstore.New(service, Flags.DirStructure, staging)
	default:
		stderr.Fatalf("Unknown data storage backend: %s", Flags.DataStorage)
	}

	switch Flags.InfoStorage {
	case "file":
		stdout.Printf("Using '%s' as info storage directory.\n", Flags.InfoDir)

		InfoStore = infostore.NewFileInfoStore(Flags.InfoDir)
	case "redis":
		stdout.Printf("Using '%s' as redis info storage.\n", Flags.RedisURI)

		store, err := infostore.NewRedisInfoStore(Flags.RedisURI, Flags.RedisExpiration)
		if err != nil {
			stderr.Fatalf("Unable to create redis info store: %s", err)
		}
		InfoStore = store
	default:
		stderr.Fatalf("Unknown info storage backend: %s", Flags.InfoStorage)
	}

	if err := Store.Prepare(ctx); err != nil {
		stderr.Fatalf("Unable to prepare data storage: %s", err)
	}
	if err := InfoStore.Prepare(ctx); err != nil {
		stderr.Fatalf("Unable to prepare info storage: %s", err)
	}
}
