package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/irsalhamdi/e-commerce-store/api/web"
	"github.com/irsalhamdi/e-commerce-store/random"
)

const (
	RequestIDHeader = "X-Request-Id"

	DefaultRequestIDLengthLimit = 128
)

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

var reqID atomic.Int64

// reqPrefix keeps ids unique across process restarts.
var reqPrefix = random.StringSecure(10)

// RequestID reuses the id sent by the client, truncated to the length
// limit, or generates "<prefix>-<counter>". The id is echoed back.
func RequestID() web.Middleware {
	lengthLimit := DefaultRequestIDLengthLimit
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = fmt.Sprintf("%s-%d", reqPrefix, reqID.Add(1))
			} else if lengthLimit >= 0 && len(id) > lengthLimit {
				id = id[:lengthLimit]
			}
			ctx = context.WithValue(ctx, reqIDKey, id)
			w.Header().Set(RequestIDHeader, id)

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}
