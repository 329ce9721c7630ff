package gitrepo

import "errors"

// Sentinel errors the driver returns; callers map these to the server's
// error taxonomy (internal/api/errors) without leaking go-git's own error
// types across the package boundary.
var (
	// ErrUnknownLabel means label did not resolve to a branch, remote-tracking
	// branch, tag, or 40-character commit.
	ErrUnknownLabel = errors.New("gitrepo: label does not resolve to any ref or commit")
	// ErrInvalidLabel means the label string itself is malformed, unsafe, or
	// exceeds the maximum length, independent of whether it would resolve.
	ErrInvalidLabel = errors.New("gitrepo: label is malformed, unsafe, or too long")
	// ErrNetworkTimeout means a clone or fetch exceeded its configured timeout.
	ErrNetworkTimeout = errors.New("gitrepo: network operation timed out")
	// ErrNotARepository means the mirror directory exists but is not a valid
	// git repository; the driver never destructively repairs it.
	ErrNotARepository = errors.New("gitrepo: mirror directory exists but is not a valid repository")
)
