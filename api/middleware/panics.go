package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/irsalhamdi/e-commerce-store/api/web"
)

// Panics turns a panic in the wrapped handler into an error so the errors
// middleware can answer it.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
