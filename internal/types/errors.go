package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL           = errors.New("invalid or unsupported url")
	ErrFetch                = errors.New("failed to fetch video information")
	ErrNoStreams            = errors.New("no downloadable streams")
	ErrMergeToolUnavailable = errors.New("merge tool (ffmpeg) not available")
	ErrDownloadInterrupted  = errors.New("download interrupted")
	ErrFilesystem           = errors.New("filesystem error")

	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidState  = errors.New("operation not allowed in current task state")
	ErrInvalidTask   = errors.New("invalid task")
	ErrManagerClosed = errors.New("download manager is closed")
)

type FetchReason string

const (
	ReasonNetwork     FetchReason = "network"
	ReasonUnavailable FetchReason = "unavailable"
	ReasonPrivate     FetchReason = "private"
	ReasonRegion      FetchReason = "region-locked"
	ReasonLogin       FetchReason = "login-required"
)

// FetchError matches ErrFetch with errors.Is and keeps the underlying cause.
type FetchError struct {
	URL    string
	Reason FetchReason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}
