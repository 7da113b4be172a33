package file

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotus/gotus/pkg/hooks"
)

func writeScript(t *testing.T, path string, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
}

func newTestMessage() hooks.Message {
	return hooks.Message{
		Hook:     hooks.HookPostFinish,
		UploadID: "upload1",
		Body:     []byte(`{"upload":{"id":"upload1"}}`),
	}
}

func TestFileNotifier(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	a := assert.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	command := filepath.Join(dir, "hook.sh")
	output := filepath.Join(dir, "output")

	// The script records its arguments so we can check hook name and
	// message passing.
	writeScript(t, command, `echo "$1 $2" > `+output)

	notifier := New(command)
	require.NoError(t, notifier.Prepare(ctx))
	a.NoError(notifier.Send(ctx, newTestMessage()))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	a.Equal("post-finish {\"upload\":{\"id\":\"upload1\"}}\n", string(content))
}

func TestFileNotifierFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	ctx := context.Background()

	command := filepath.Join(t.TempDir(), "hook.sh")
	writeScript(t, command, "exit 1")

	notifier := New(command)
	assert.Error(t, notifier.Send(ctx, newTestMessage()))
}

func TestFileNotifierPrepareMissingCommand(t *testing.T) {
	notifier := New(filepath.Join(t.TempDir(), "missing.sh"))
	assert.Error(t, notifier.Prepare(context.Background()))
}

func TestDirNotifier(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	a := assert.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	output := filepath.Join(dir, "output")
	writeScript(t, filepath.Join(dir, "post-finish"), `echo "$1" > `+output)

	notifier := NewDir(dir)
	require.NoError(t, notifier.Prepare(ctx))
	a.NoError(notifier.Send(ctx, newTestMessage()))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	a.Equal("{\"upload\":{\"id\":\"upload1\"}}\n", string(content))
}

func TestDirNotifierMissingScript(t *testing.T) {
	notifier := NewDir(t.TempDir())
	assert.Error(t, notifier.Send(context.Background(), newTestMessage()))
}
