package weberr

import "errors"

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse makes the errors middleware answer with body and status
// instead of a generic internal error.
func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches structured log fields to err.
func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

type responder interface {
	Response() (body any, status int)
}

func Response(err error) (body any, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, code := re.Response()
		return body, code, true
	}
	return nil, 0, false
}

type fielder interface {
	Fields() map[string]any
}

// Fields merges the fields of every fields error in the chain, outermost
// taking precedence.
func Fields(err error) (map[string]any, bool) {
	var out map[string]any
	for err != nil {
		if fe, ok := err.(fielder); ok {
			if out == nil {
				out = make(map[string]any)
			}
			for k, v := range fe.Fields() {
				if _, set := out[k]; !set {
					out[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return out, out != nil
}

type responseError struct {
	error
	body   any
	status int
}

func (e *responseError) Response() (any, int) { return e.body, e.status }

func (e *responseError) Unwrap() error { return e.error }

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Fields() map[string]any { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
