package gcsstore_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"gopkg.in/h2non/gock.v1"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/gotus/gotus/pkg/gcsstore"
)

func newGockService(t *testing.T) *gcsstore.GCSService {
	t.Helper()

	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)

	client, err := storage.NewClient(context.Background(), option.WithAPIKey("foo"), option.WithHTTPClient(httpClient))
	require.NoError(t, err)

	return &gcsstore.GCSService{
		Client: client,
		Bucket: "test-bucket",
	}
}

func TestServiceReadObject(t *testing.T) {
	defer gock.Off()
	a := assert.New(t)

	gock.New("https://storage.googleapis.com").
		Get("/test-bucket/test-name").
		Reply(200).
		BodyString("hello world")

	service := newGockService(t)

	reader, err := service.ReadObject(context.Background(), "test-name")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	a.NoError(err)
	a.Equal("hello world", string(data))
}

func TestServiceDeleteObject(t *testing.T) {
	defer gock.Off()
	a := assert.New(t)

	gock.New("https://storage.googleapis.com").
		Delete("/storage/v1/b/test-bucket/o/test-name").
		Reply(200).
		JSON(map[string]string{})

	service := newGockService(t)

	a.NoError(service.DeleteObject(context.Background(), "test-name"))
}
