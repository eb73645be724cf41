package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/irsalhamdi/e-commerce-store/api/web"
	"github.com/irsalhamdi/e-commerce-store/api/weberr"
	"github.com/irsalhamdi/e-commerce-store/rate"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimit refuses requests once the caller's bucket is empty. Callers are
// keyed by the {id} route variable, or by remote host when it is absent.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !lim.Check(clientKey(r)) {
				return weberr.TooManyRequests(ErrRateLimited)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientKey(r *http.Request) string {
	if id := web.Param(r, "id"); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
