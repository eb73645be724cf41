package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/irsalhamdi/e-commerce-store/api/middleware"
	"github.com/irsalhamdi/e-commerce-store/api/web"
	"github.com/irsalhamdi/e-commerce-store/core/cart"
	"github.com/irsalhamdi/e-commerce-store/core/product"
	"github.com/irsalhamdi/e-commerce-store/rate"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	Cart       *cart.Service
	Products   product.Fetcher
	Limiter    *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	var limit web.Middleware
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter)
	}

	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.Products))

	a.Handle(http.MethodGet, "/users/{id}/cart", cart.HandleShow(cfg.Cart))
	a.Handle(http.MethodGet, "/users/{id}/cart/count", cart.HandleCount(cfg.Cart))
	a.Handle(http.MethodPost, "/users/{id}/cart", cart.HandleAddItem(cfg.Cart), limit)
	a.Handle(http.MethodGet, "/users/{id}/cart/{cartProductId}", cart.HandleShowItem(cfg.Cart))
	a.Handle(http.MethodPut, "/users/{id}/cart/{cartProductId}", cart.HandleUpdateItem(cfg.Cart), limit)
	a.Handle(http.MethodDelete, "/users/{id}/cart/{cartProductId}", cart.HandleDeleteItem(cfg.Cart), limit)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
