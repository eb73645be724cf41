package weberr

import (
	"net/http"
)

// Kinds reported in the "type" field of error responses.
const (
	KindNotFound       = "NotFound"
	KindBusinessRule   = "BusinessRuleViolation"
	KindValidation     = "ValidationError"
	KindInternal       = "InternalError"
	KindTooManyRequest = "TooManyRequests"
)

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type RequestError struct {
	Err error
}

func (r *RequestError) Error() string { return r.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

func NewError(err error, kind string, msg string, status int, opts ...Opt) error {
	e := &RequestError{Err: err}
	opts = append(opts, WithResponse(
		&ErrorResponse{Type: kind, Message: msg},
		status,
	))

	return Wrap(e, opts...)
}

func NotFound(err error, msg string, opts ...Opt) error {
	return NewError(err, KindNotFound, msg, http.StatusNotFound, opts...)
}

// BadRequest reports a broken business rule, such as removing an item that
// is not in the cart.
func BadRequest(err error, msg string, opts ...Opt) error {
	return NewError(err, KindBusinessRule, msg, http.StatusBadRequest, opts...)
}

func Invalid(err error, opts ...Opt) error {
	return NewError(err, KindValidation, err.Error(), http.StatusBadRequest, opts...)
}

func TooManyRequests(err error, opts ...Opt) error {
	return NewError(err, KindTooManyRequest, "too many requests", http.StatusTooManyRequests, opts...)
}

func InternalError(err error, opts ...Opt) error {
	return NewError(
		err,
		KindInternal,
		"the server encountered a problem and could not process your request",
		http.StatusInternalServerError,
		opts...,
	)
}
