package window

import "errors"

// ErrWindowAlreadyOpen is returned by Open when the session already has an
// open window. Surfaced, never auto-resolved: silently collapsing two
// intended windows would misfile responses.
var ErrWindowAlreadyOpen = errors.New("session already has an open window")

// ErrWindowClosed is returned when a write targets a closed window. For a
// participant this is the expected late-submission outcome, not a failure.
var ErrWindowClosed = errors.New("submission window closed")

// ErrNoWindow is returned when a question never had a window opened.
var ErrNoWindow = errors.New("no submission window for question")
