package runtime

import (
	stderrors "errors"
	"strings"
	"syscall"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/parser"
	"github.com/manav03panchal/chime/internal/storage"
)

// DiskFullSuggestion is shown when a write fails for lack of space.
const DiskFullSuggestion = "Free up disk space and try again. Reminders already saved are intact."

// FormatError renders err for the terminal with a suggestion when one is
// known. Parse errors list valid examples.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ie *parser.InputError
	if stderrors.As(err, &ie) {
		return ie.FormatWithExamples()
	}

	msg := err.Error()
	suggestion := errors.GetSuggestion(err)

	var le *storage.LockError
	switch {
	case stderrors.As(err, &le):
		suggestion = errors.Suggestions[errors.ErrLockHeld]
	case IsDiskFull(err):
		suggestion = DiskFullSuggestion
	}

	if suggestion != "" {
		msg += "\n" + suggestion
	}
	if examples := errors.GetExamples(err); len(examples) > 0 {
		msg += "\n\nExamples:\n  " + strings.Join(examples, "\n  ")
	}
	return msg
}

// IsDiskFull reports whether err indicates the disk is out of space.
func IsDiskFull(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if stderrors.As(err, &errno) && errno == syscall.ENOSPC {
		return true
	}

	s := strings.ToLower(err.Error())
	for _, pattern := range []string{"no space left on device", "disk full", "enospc"} {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
