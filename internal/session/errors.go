package session

import "errors"

// ErrSequenceExhausted is returned by Advance when the session is already on
// its last question. Recoverable: the caller decides whether that means
// end-of-session or a no-op.
var ErrSequenceExhausted = errors.New("question sequence exhausted")

// ErrNoCurrentQuestion is returned when a session has no live question yet.
var ErrNoCurrentQuestion = errors.New("no current question")

// ErrQuestionNotInSession is returned by SetCurrent when the target question
// belongs to a different session.
var ErrQuestionNotInSession = errors.New("question does not belong to session")
