package errors

import (
	"errors"
	"syscall"
)

// Category represents the type of error for display and handling purposes.
type Category int

const (
	// CategoryUnknown is the default for unclassified errors.
	CategoryUnknown Category = iota
	// CategoryUser indicates an error the user can fix (bad input, missing args).
	CategoryUser
	// CategorySystem indicates a system-level error (disk full, network down).
	CategorySystem
	// CategoryRecoverable indicates an error that can be automatically retried.
	CategoryRecoverable
	// CategoryInternal indicates an internal bug or unexpected state.
	CategoryInternal
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRecoverable:
		return "recoverable"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Classify determines the category of an error.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	// Check for our typed errors first
	if IsUserError(err) {
		return CategoryUser
	}
	if IsSystemError(err) {
		return CategorySystem
	}
	if IsRecoverableError(err) {
		return CategoryRecoverable
	}

	// Check for known system errors
	if isSystemLevel(err) {
		return CategorySystem
	}

	// Check for recoverable patterns
	if isRecoverablePattern(err) {
		return CategoryRecoverable
	}

	// Default to unknown
	return CategoryUnknown
}

// isSystemLevel checks if an error is a system-level error.
func isSystemLevel(err error) bool {
	// Check for syscall errors
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOSPC: // No space left on device
			return true
		case syscall.EACCES, syscall.EPERM: // Permission denied
			return true
		case syscall.ENOENT: // No such file or directory
			return true
		case syscall.EIO: // I/O error
			return true
		case syscall.EROFS: // Read-only filesystem
			return true
		}
	}

	// Check for our sentinel errors
	if errors.Is(err, ErrDatabaseCorrupted) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNoCredential) ||
		errors.Is(err, ErrUnauthorized) {
		return true
	}

	return false
}

// isRecoverablePattern checks if an error matches recoverable patterns.
func isRecoverablePattern(err error) bool {
	// Network and provider failures are retried by the caller
	if errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrLockHeld) {
		return true
	}

	// Check for syscall errors that are typically transient
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN: // Resource temporarily unavailable (EWOULDBLOCK is same on Darwin/Linux)
			return true
		case syscall.EINTR: // Interrupted system call
			return true
		case syscall.ETIMEDOUT: // Connection timed out
			return true
		case syscall.ECONNREFUSED: // Connection refused
			return true
		case syscall.ECONNRESET: // Connection reset by peer
			return true
		}
	}

	return false
}
