package response

import "errors"

// ErrDuplicateSubmission is returned when a participant already has an
// authoritative response for the question. First write wins; a retry of the
// same submission is therefore safe — the stored outcome never changes.
var ErrDuplicateSubmission = errors.New("participant already submitted for this question")
