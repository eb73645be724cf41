package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-commerce-store/api/web"
	"github.com/irsalhamdi/e-commerce-store/api/weberr"
	"github.com/irsalhamdi/e-commerce-store/validate"
)

type Fetcher interface {
	Fetch(ctx context.Context, id string) (Product, error)
}

func HandleShow(products Fetcher) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Invalid(err)
		}

		p, err := products.Fetch(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err, "Product not found")
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}
