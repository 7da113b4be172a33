// Package file provides hook notifiers which invoke a subprocess for
// every hook message.
package file

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gotus/gotus/pkg/hooks"
)

// Notifier executes a single command for every hook, passing the hook
// name and the serialized message as arguments.
type Notifier struct {
	command string
}

// New creates a notifier running the given executable as
// `<command> <hook> <message>`.
func New(command string) *Notifier {
	return &Notifier{command: command}
}

func (n *Notifier) Name() string {
	return "file"
}

func (n *Notifier) Prepare(ctx context.Context) error {
	if _, err := os.Stat(n.command); err != nil {
		return fmt.Errorf("hook command not accessible: %w", err)
	}
	return nil
}

func (n *Notifier) Send(ctx context.Context, msg hooks.Message) error {
	cmd := exec.CommandContext(ctx, n.command, string(msg.Hook), string(msg.Body))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("hook command failed: %w: %s", err, output)
	}
	return nil
}

// DirNotifier executes one script per hook, looked up as `<dir>/<hook>`.
// A hook without a matching script fails, so directories should carry a
// script for every enabled hook.
type DirNotifier struct {
	dir string
}

// NewDir creates a notifier running the script named after the hook from
// the given directory as `<dir>/<hook> <message>`.
func NewDir(dir string) *DirNotifier {
	return &DirNotifier{dir: dir}
}

func (n *DirNotifier) Name() string {
	return "dir"
}

func (n *DirNotifier) Prepare(ctx context.Context) error {
	info, err := os.Stat(n.dir)
	if err != nil {
		return fmt.Errorf("hook directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("hook directory %s is not a directory", n.dir)
	}
	return nil
}

func (n *DirNotifier) Send(ctx context.Context, msg hooks.Message) error {
	script := filepath.Join(n.dir, string(msg.Hook))
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("hook script not accessible: %w", err)
	}

	cmd := exec.CommandContext(ctx, script, string(msg.Body))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("hook script %s failed: %w: %s", script, err, output)
	}
	return nil
}
