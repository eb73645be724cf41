package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/e-commerce-store/core/product"
)

// View returns the user's cart in insertion order, each item joined with
// its product.
func (s *Service) View(ctx context.Context, userID string) ([]ItemView, error) {
	u, err := s.fetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.items.FetchMany(ctx, u.Cart)
	if err != nil {
		return nil, fmt.Errorf("fetching cart items of user[%s]: %w", userID, err)
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v, err := s.view(ctx, it)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) ViewItem(ctx context.Context, userID string, itemID string) (ItemView, error) {
	u, err := s.fetchUser(ctx, userID)
	if err != nil {
		return ItemView{}, err
	}

	if !u.InCart(itemID) {
		return ItemView{}, ErrNotInCart
	}

	it, err := s.items.Fetch(ctx, itemID)
	if err != nil {
		return ItemView{}, err
	}

	return s.view(ctx, it)
}

func (s *Service) view(ctx context.Context, it Item) (ItemView, error) {
	p, err := s.products.Fetch(ctx, it.ProductID)
	switch {
	case errors.Is(err, product.ErrNotFound):
		return classify(it, nil), nil
	case err != nil:
		return ItemView{}, fmt.Errorf("fetching product[%s] of item[%s]: %w", it.ProductID, it.ID, err)
	}
	return classify(it, &p), nil
}

// classify builds the view of it given its product, nil when the product
// no longer exists. Live product fields replace the snapshot. An item is out
// of stock only if its units were never reserved and the stock cannot cover
// them.
func classify(it Item, p *product.Product) ItemView {
	v := ItemView{
		ID:             it.ID,
		ProductID:      it.ProductID,
		Quantity:       it.Quantity,
		SelectedSize:   it.SelectedSize,
		SelectedColour: it.SelectedColour,
		ProductName:    it.ProductName,
		ProductImage:   it.ProductImage,
		ProductPrice:   it.ProductPrice,
	}

	if p == nil {
		return v
	}

	v.ProductName = p.Name
	v.ProductImage = p.Image
	v.ProductPrice = p.Price
	v.ProductExists = true
	v.ProductOutOfStock = !it.Reserved && p.CountInStock < it.Quantity
	return v
}
