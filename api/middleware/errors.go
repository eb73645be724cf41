package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/e-commerce-store/api/web"
	"github.com/irsalhamdi/e-commerce-store/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors logs the error returned by a handler and writes the response it
// carries. Errors without a response become a 500.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := logrus.Fields{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			body, code, ok := weberr.Response(err)
			if !ok {
				body = &weberr.ErrorResponse{
					Type:    weberr.KindInternal,
					Message: http.StatusText(http.StatusInternalServerError),
				}
				code = http.StatusInternalServerError
			}

			entry := log.WithFields(fields)
			if code >= http.StatusInternalServerError {
				entry.Error("ERROR")
			} else {
				entry.Info("request rejected")
			}

			return web.Respond(ctx, w, body, code)
		}
		return h
	}
	return m
}
