package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
)

// Runner executes a notification helper command.
type Runner func(ctx context.Context, name string, args ...string) error

// Desktop shows notifications with the platform's notification helper:
// notify-send on Linux and BSD, osascript on macOS.
type Desktop struct {
	goos string
	run  Runner
	look func(string) (string, error)
}

// NewDesktop creates a desktop notifier for the running platform.
func NewDesktop() *Desktop {
	return &Desktop{goos: runtime.GOOS, run: runCommand, look: exec.LookPath}
}

// NewDesktopWith creates a desktop notifier with an explicit platform and
// command runner.
func NewDesktopWith(goos string, run Runner) *Desktop {
	return &Desktop{
		goos: goos,
		run:  run,
		look: func(name string) (string, error) { return name, nil },
	}
}

// Notify shows n. A missing helper or a refused notification yields an
// error wrapping ErrPermissionDenied.
func (d *Desktop) Notify(ctx context.Context, n model.Notification) error {
	name, args, err := d.command(n)
	if err != nil {
		return err
	}
	if _, err := d.look(name); err != nil {
		return fmt.Errorf("%w: %s not available", errors.ErrPermissionDenied, name)
	}
	if err := d.run(ctx, name, args...); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %v", errors.ErrPermissionDenied, err)
		}
		return fmt.Errorf("desktop notification failed: %w", err)
	}
	return nil
}

func (d *Desktop) command(n model.Notification) (string, []string, error) {
	switch d.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{"--app-name=chime"}
		if n.Tag != "" {
			// Replaces an earlier notification with the same tag.
			args = append(args, "--hint=string:x-canonical-private-synchronous:"+n.Tag)
		}
		if n.DeepLinkURL != "" {
			args = append(args, "--hint=string:x-chime-url:"+n.DeepLinkURL)
		}
		args = append(args, n.Title, n.Body)
		return "notify-send", args, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(n.Body), appleQuote(n.Title))
		return "osascript", []string{"-e", script}, nil
	}
	return "", nil, fmt.Errorf("%w: no notification helper for %s", errors.ErrPermissionDenied, d.goos)
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return err
}
