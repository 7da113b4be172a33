package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotus/gotus/pkg/handler"
)

// Test interface implementation of FileStore
var _ handler.DataStore = &FileStore{}

func newTestInfo(id string, length int64) handler.FileInfo {
	l := length
	return handler.FileInfo{
		ID:        id,
		Length:    &l,
		Storage:   Name,
		CreatedAt: time.Date(2024, 3, 7, 12, 30, 0, 0, time.UTC),
		MetaData:  handler.MetaData{},
	}
}

func TestFilestore(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := New(t.TempDir(), "")
	a.NoError(store.Prepare(ctx))

	info := newTestInfo("upload1", 11)
	path, err := store.Create(ctx, info)
	a.NoError(err)
	a.NotEmpty(path)
	info.Path = path

	// Creating the same id twice must fail.
	_, err = store.Create(ctx, info)
	a.Error(err)

	a.NoError(store.Append(ctx, info, []byte("hello ")))
	info.Offset = 6
	a.NoError(store.Append(ctx, info, []byte("world")))
	info.Offset = 11

	content, err := os.ReadFile(path)
	a.NoError(err)
	a.Equal("hello world", string(content))

	streamed, err := store.Stream(ctx, info)
	a.NoError(err)
	buf := make([]byte, 11)
	_, err = streamed.Reader.Read(buf)
	a.NoError(err)
	a.Equal("hello world", string(buf))
	a.NoError(streamed.Reader.Close())

	a.NoError(store.Remove(ctx, info))
	a.ErrorIs(store.Remove(ctx, info), handler.ErrNotFound)
	_, err = store.Stream(ctx, info)
	a.ErrorIs(err, handler.ErrNotFound)
}

func TestFilestoreAppendAnchorsAtOffset(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := New(t.TempDir(), "")
	require.NoError(t, store.Prepare(ctx))

	info := newTestInfo("upload2", 10)
	path, err := store.Create(ctx, info)
	require.NoError(t, err)
	info.Path = path

	a.NoError(store.Append(ctx, info, []byte("abcde")))

	// Simulate an interrupted request which flushed more bytes than were
	// acknowledged. The resumed append must overwrite and cut them off.
	require.NoError(t, os.WriteFile(path, []byte("abcdeXXX"), 0664))

	info.Offset = 5
	a.NoError(store.Append(ctx, info, []byte("fghij")))

	content, err := os.ReadFile(path)
	a.NoError(err)
	a.Equal("abcdefghij", string(content))
}

func TestFilestoreConcat(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := New(t.TempDir(), "")
	require.NoError(t, store.Prepare(ctx))

	var parts []handler.FileInfo
	for i, chunk := range []string{"hello", "world"} {
		info := newTestInfo("part"+string(rune('a'+i)), int64(len(chunk)))
		path, err := store.Create(ctx, info)
		require.NoError(t, err)
		info.Path = path
		require.NoError(t, store.Append(ctx, info, []byte(chunk)))
		info.Offset = int64(len(chunk))
		parts = append(parts, info)
	}

	final := newTestInfo("final", 10)
	final.IsFinal = true
	path, err := store.Create(ctx, final)
	require.NoError(t, err)
	final.Path = path

	a.NoError(store.Concat(ctx, final, parts))

	content, err := os.ReadFile(path)
	a.NoError(err)
	a.Equal("helloworld", string(content))
}

func TestFilestoreDirStruct(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	root := t.TempDir()
	store := New(root, "{year}/{month}")
	require.NoError(t, store.Prepare(ctx))

	info := newTestInfo("upload3", 5)
	path, err := store.Create(ctx, info)
	a.NoError(err)
	a.Equal(filepath.Join(root, "2024", "3", "upload3"), path)
}

func TestFilestoreForceSync(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := New(t.TempDir(), "")
	store.ForceSync = true
	require.NoError(t, store.Prepare(ctx))

	info := newTestInfo("upload4", 5)
	path, err := store.Create(ctx, info)
	require.NoError(t, err)
	info.Path = path

	a.NoError(store.Append(ctx, info, []byte("hello")))

	content, err := os.ReadFile(path)
	a.NoError(err)
	a.Equal("hello", string(content))
}
