package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-commerce-store/api/web"
	"github.com/irsalhamdi/e-commerce-store/api/weberr"
	"github.com/irsalhamdi/e-commerce-store/validate"
)

func HandleShow(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, err := userParam(r)
		if err != nil {
			return err
		}

		views, err := svc.View(ctx, userID)
		if err != nil {
			return mapError(err, userID)
		}

		return web.Respond(ctx, w, views, http.StatusOK)
	}
}

func HandleCount(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, err := userParam(r)
		if err != nil {
			return err
		}

		n, err := svc.Count(ctx, userID)
		if err != nil {
			return mapError(err, userID)
		}

		return web.Respond(ctx, w, Count{CartCount: n}, http.StatusOK)
	}
}

func HandleShowItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, itemID, err := itemParams(r)
		if err != nil {
			return err
		}

		v, err := svc.ViewItem(ctx, userID, itemID)
		if err != nil {
			return mapError(err, userID)
		}

		return web.Respond(ctx, w, v, http.StatusOK)
	}
}

func HandleAddItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, err := userParam(r)
		if err != nil {
			return err
		}

		var ni ItemNew
		if err := web.Decode(w, r, &ni); err != nil {
			return weberr.Invalid(err)
		}

		if err := validate.Check(ni); err != nil {
			return weberr.Invalid(err)
		}

		if err := validate.CheckID(ni.ProductID); err != nil {
			return weberr.Invalid(fmt.Errorf("productId: %w", err))
		}

		it, created, err := svc.AddItem(ctx, userID, ni)
		if err != nil {
			return mapError(err, userID)
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		return web.Respond(ctx, w, it, status)
	}
}

func HandleUpdateItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, itemID, err := itemParams(r)
		if err != nil {
			return err
		}

		var up ItemUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.Invalid(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.Invalid(err)
		}

		it, err := svc.ModifyItem(ctx, userID, itemID, up)
		if err != nil {
			return mapError(err, userID)
		}

		return web.Respond(ctx, w, it, http.StatusOK)
	}
}

func HandleDeleteItem(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID, itemID, err := itemParams(r)
		if err != nil {
			return err
		}

		// the body is optional
		var rm ItemRemove
		if err := web.Decode(w, r, &rm); err != nil && !errors.Is(err, web.ErrEmptyBody) {
			return weberr.Invalid(err)
		}

		if err := svc.RemoveItem(ctx, userID, itemID, rm.ProductID); err != nil {
			return mapError(err, userID)
		}

		msg := struct {
			Message string `json:"message"`
		}{"Cart item removed successfully"}
		return web.Respond(ctx, w, msg, http.StatusOK)
	}
}

func userParam(r *http.Request) (string, error) {
	id := web.Param(r, "id")
	if err := validate.CheckID(id); err != nil {
		return "", weberr.Invalid(fmt.Errorf("user id: %w", err))
	}
	return id, nil
}

func itemParams(r *http.Request) (string, string, error) {
	userID, err := userParam(r)
	if err != nil {
		return "", "", err
	}

	itemID := web.Param(r, "cartProductId")
	if err := validate.CheckID(itemID); err != nil {
		return "", "", weberr.Invalid(fmt.Errorf("cart product id: %w", err))
	}
	return userID, itemID, nil
}

func mapError(err error, userID string) error {
	fields := weberr.WithFields(map[string]any{"user_id": userID})

	switch {
	case errors.Is(err, ErrUserNotFound):
		return weberr.NotFound(err, "User not found", fields)
	case errors.Is(err, ErrProductNotFound):
		return weberr.NotFound(err, "Product not found", fields)
	case errors.Is(err, ErrCartItemNotFound):
		return weberr.NotFound(err, "Cart item not found", fields)
	case errors.Is(err, ErrNotInCart):
		return weberr.BadRequest(err, "Product not in user cart", fields)
	case errors.Is(err, ErrInsufficientStock):
		return weberr.BadRequest(err, "Insufficient stock or concurrency issue", fields)
	case errors.Is(err, ErrProductMismatch):
		return weberr.BadRequest(err, "Product does not match the cart item", fields)
	}
	return weberr.InternalError(err, fields)
}
