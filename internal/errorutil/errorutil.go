package errorutil

import "errors"

// ErrUnterminatedExpression is returned when a template placeholder is opened
// and never closed.
var ErrUnterminatedExpression = errors.New("unterminated expression")

// ErrEmptyExpression is returned for placeholders without an expression.
var ErrEmptyExpression = errors.New("empty expression")

// ErrInvalidPayload represents requests whose body can't be used.
var ErrInvalidPayload = errors.New("invalid payload")
