package model

import (
	"errors"
	"fmt"
)

// Kind is a stable error classification carried by every engine error.
// Kinds group into five classes: not-found, access-denied, conflict,
// bad-request, and internal. The HTTP adapter maps classes onto statuses.
type Kind string

const (
	KindRepoNotFound        Kind = "RepoNotFound"
	KindBranchNotFound      Kind = "BranchNotFound"
	KindPullRequestNotFound Kind = "PullRequestNotFound"
	KindCommitNotFound      Kind = "CommitNotFound"
	KindFileNotFound        Kind = "FileNotFound"
	KindUserNotFound        Kind = "UserNotFound"

	KindRepoAccessDenied Kind = "RepoAccessDenied"
	KindApprovalRequired Kind = "ApprovalRequired"

	KindBranchAlreadyExists     Kind = "BranchAlreadyExists"
	KindMergeConflict           Kind = "MergeConflict"
	KindFastForwardNotPossible  Kind = "FastForwardNotPossible"
	KindRemoteEmpty             Kind = "RemoteEmpty"
	KindGitPullConflict         Kind = "GitPullConflict"
	KindGitPushRejected         Kind = "GitPushRejected"
	KindGitRebaseConflict       Kind = "GitRebaseConflict"
	KindGitStashConflict        Kind = "GitStashConflict"
	KindInvalidPullRequestState Kind = "InvalidPullRequestState"
	KindConflict                Kind = "Conflict"

	KindFilenameTooLong       Kind = "FilenameTooLong"
	KindPathIsDirectory       Kind = "PathIsDirectory"
	KindGitUncommittedChanges Kind = "GitUncommittedChanges"
	KindBadRequest            Kind = "BadRequest"

	KindGitOperationFailed    Kind = "GitOperationFailed"
	KindRepoPathNotConfigured Kind = "RepoPathNotConfigured"
)

// Error is the engine's error type. Every raised error carries a stable
// Kind plus a human-readable message; conflict-class errors additionally
// carry the file lists or hints needed to act on them.
type Error struct {
	Kind    Kind
	Message string
	Files   []string
	Hint    string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an engine error with the given kind and message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithFiles attaches the file list conflict-class errors carry.
func (e *Error) WithFiles(files []string) *Error {
	e.Files = files
	return e
}

// WithHint attaches a resolution hint, e.g. "pull first".
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// KindOf extracts the Kind from an error, or "" when err is not an engine
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
