package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/irsalhamdi/e-commerce-store/core/product"
	"github.com/irsalhamdi/e-commerce-store/core/user"
	"github.com/irsalhamdi/e-commerce-store/validate"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrNotInCart         = errors.New("product not in user cart")
	ErrInsufficientStock = errors.New("insufficient stock or concurrency issue")
	ErrProductMismatch   = errors.New("product does not match the cart item")
)

type Users interface {
	Fetch(ctx context.Context, id string) (user.User, error)
	AddCartItem(ctx context.Context, userID string, itemID string) error
	RemoveCartItem(ctx context.Context, userID string, itemID string) error
}

// Inventory must apply Reserve and Release as single conditional updates
// in storage.
type Inventory interface {
	Fetch(ctx context.Context, id string) (product.Product, error)
	Reserve(ctx context.Context, id string, amount int) (product.Product, error)
	Release(ctx context.Context, id string, amount int) (product.Product, error)
}

// Items must refuse to Create a second live item with the same owner and
// key, reporting errDuplicateKey, and must leave items at quantity zero out
// of FetchByKey, Increment, Update and Claim.
type Items interface {
	Fetch(ctx context.Context, id string) (Item, error)
	FetchMany(ctx context.Context, ids []string) ([]Item, error)
	FetchByKey(ctx context.Context, userID, productID, size, colour string) (Item, error)
	Create(ctx context.Context, it Item) error
	Increment(ctx context.Context, id string, by int) (Item, error)
	Update(ctx context.Context, id string, up ItemUp) (Item, error)
	Claim(ctx context.Context, id string) (Item, error)
	Restore(ctx context.Context, id string, qty int) error
	Delete(ctx context.Context, id string) error
}

// CountCache holds the number of items per user cart. Every Delete moves
// the user's version forward; Get reports the version it saw and Set stores
// nothing once the version moved past it.
type CountCache interface {
	Get(ctx context.Context, userID string) (n int, ver int64, ok bool, err error)
	Set(ctx context.Context, userID string, n int, ver int64) error
	Delete(ctx context.Context, userID string) error
}

type Config struct {
	Users    Users
	Products Inventory
	Items    Items
	Counts   CountCache
	Log      logrus.FieldLogger
}

// Service moves stock between the inventory and user carts. Each mutation
// is a sequence of single-document updates; when a later step fails on the
// add path the earlier ones are undone.
type Service struct {
	users    Users
	products Inventory
	items    Items
	counts   CountCache
	log      logrus.FieldLogger
}

func NewService(cfg Config) *Service {
	counts := cfg.Counts
	if counts == nil {
		counts = nopCache{}
	}
	return &Service{
		users:    cfg.Users,
		products: cfg.Products,
		items:    cfg.Items,
		counts:   counts,
		log:      cfg.Log,
	}
}

// addAttempts bounds how often AddItem starts over after the item it meant
// to increment went away under a concurrent remove or rollback.
const addAttempts = 3

// errItemGone reports that the item an add meant to increment is gone. Any
// units reserved for it have been handed back.
var errItemGone = errors.New("item removed while incrementing")

// AddItem puts ni into the user's cart, reserving its quantity. It reports
// whether a new line item was created; otherwise the item with the same key
// had its quantity increased.
func (s *Service) AddItem(ctx context.Context, userID string, ni ItemNew) (Item, bool, error) {
	if ni.Quantity == 0 {
		ni.Quantity = 1
	}

	for attempt := 1; ; attempt++ {
		it, created, err := s.addItem(ctx, userID, ni)
		if !errors.Is(err, errItemGone) {
			return it, created, err
		}
		if attempt == addAttempts {
			return Item{}, false, ErrCartItemNotFound
		}
	}
}

func (s *Service) addItem(ctx context.Context, userID string, ni ItemNew) (Item, bool, error) {
	u, err := s.fetchUser(ctx, userID)
	if err != nil {
		return Item{}, false, err
	}

	items, err := s.items.FetchMany(ctx, u.Cart)
	if err != nil {
		return Item{}, false, fmt.Errorf("fetching cart items of user[%s]: %w", userID, err)
	}

	for _, it := range items {
		// items at zero are being rolled back
		if it.Quantity > 0 && it.Matches(ni.ProductID, ni.SelectedSize, ni.SelectedColour) {
			it, err := s.increment(ctx, it, ni.Quantity)
			return it, false, err
		}
	}

	p, err := s.products.Fetch(ctx, ni.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return Item{}, false, ErrProductNotFound
		}
		return Item{}, false, fmt.Errorf("fetching product[%s]: %w", ni.ProductID, err)
	}

	it := Item{
		ID:             validate.GenerateID(),
		UserID:         userID,
		ProductID:      p.ID,
		Quantity:       ni.Quantity,
		SelectedSize:   ni.SelectedSize,
		SelectedColour: ni.SelectedColour,
		ProductName:    p.Name,
		ProductImage:   p.Image,
		ProductPrice:   p.Price,
		Reserved:       true,
	}

	if err := s.items.Create(ctx, it); err != nil {
		if errors.Is(err, errDuplicateKey) {
			// a concurrent add created the key first
			it, err := s.incrementKey(ctx, userID, ni)
			return it, false, err
		}
		return Item{}, false, fmt.Errorf("creating item for user[%s]: %w", userID, err)
	}

	if err := s.users.AddCartItem(ctx, userID, it.ID); err != nil {
		if uerr := s.undoAdd(ctx, userID, it); uerr != nil {
			return Item{}, false, uerr
		}
		if errors.Is(err, user.ErrNotFound) {
			return Item{}, false, ErrUserNotFound
		}
		return Item{}, false, fmt.Errorf("adding item[%s] to cart of user[%s]: %w", it.ID, userID, err)
	}

	if _, err := s.products.Reserve(ctx, p.ID, it.Quantity); err != nil {
		if uerr := s.undoAdd(ctx, userID, it); uerr != nil {
			return Item{}, false, uerr
		}
		if errors.Is(err, product.ErrConditionFailed) {
			return Item{}, false, ErrInsufficientStock
		}
		return Item{}, false, fmt.Errorf("reserving %d of product[%s]: %w", it.Quantity, p.ID, err)
	}

	s.invalidateCount(ctx, userID)
	return it, true, nil
}

// increment reserves qty more units for an item already in the cart. The
// reservation happens first so a refused reservation leaves nothing to undo.
func (s *Service) increment(ctx context.Context, it Item, qty int) (Item, error) {
	if _, err := s.products.Reserve(ctx, it.ProductID, qty); err != nil {
		if errors.Is(err, product.ErrConditionFailed) {
			return Item{}, ErrInsufficientStock
		}
		return Item{}, fmt.Errorf("reserving %d of product[%s]: %w", qty, it.ProductID, err)
	}

	up, err := s.items.Increment(ctx, it.ID, qty)
	if err == nil {
		return up, nil
	}

	// the item went away under us; hand the units back
	ctx = context.WithoutCancel(ctx)
	if _, rerr := s.products.Release(ctx, it.ProductID, qty); rerr != nil && !errors.Is(rerr, product.ErrNotFound) {
		return Item{}, fmt.Errorf("returning %d of product[%s] after failed increment: %w", qty, it.ProductID, errors.Join(err, rerr))
	}
	if errors.Is(err, ErrCartItemNotFound) {
		return Item{}, errItemGone
	}
	return Item{}, fmt.Errorf("incrementing item[%s]: %w", it.ID, err)
}

// incrementKey adds ni to the live item holding its key, which may not be
// linked to the cart yet, and links it.
func (s *Service) incrementKey(ctx context.Context, userID string, ni ItemNew) (Item, error) {
	cur, err := s.items.FetchByKey(ctx, userID, ni.ProductID, ni.SelectedSize, ni.SelectedColour)
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return Item{}, errItemGone
		}
		return Item{}, fmt.Errorf("fetching item of user[%s] by key: %w", userID, err)
	}

	up, err := s.increment(ctx, cur, ni.Quantity)
	if err != nil {
		return Item{}, err
	}

	if err := s.users.AddCartItem(ctx, userID, up.ID); err != nil {
		if terr := s.takeBack(ctx, up, ni.Quantity); terr != nil {
			return Item{}, fmt.Errorf("linking item[%s]: %w", up.ID, errors.Join(err, terr))
		}
		if errors.Is(err, user.ErrNotFound) {
			return Item{}, ErrUserNotFound
		}
		return Item{}, fmt.Errorf("adding item[%s] to cart of user[%s]: %w", up.ID, userID, err)
	}

	s.invalidateCount(ctx, userID)
	return up, nil
}

// takeBack reverses a completed increment of qty units.
func (s *Service) takeBack(ctx context.Context, it Item, qty int) error {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.items.Increment(ctx, it.ID, -qty); err != nil && !errors.Is(err, ErrCartItemNotFound) {
		return fmt.Errorf("taking back %d units of item[%s]: %w", qty, it.ID, err)
	}
	if _, err := s.products.Release(ctx, it.ProductID, qty); err != nil && !errors.Is(err, product.ErrNotFound) {
		return fmt.Errorf("returning %d of product[%s]: %w", qty, it.ProductID, err)
	}
	return nil
}

// undoAdd takes back the units a failed add put on a freshly created item.
// The item is visible in the cart before its reservation completes, so a
// concurrent add of the same key may have incremented it with units of its
// own; those stay. Once the quantity is zero the item leaves the cart and
// the store. A completed run can be repeated. A run that failed after its
// decrement must not be, since the repeat would take units belonging to a
// concurrent add.
func (s *Service) undoAdd(ctx context.Context, userID string, it Item) error {
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"item_id":    it.ID,
		"product_id": it.ProductID,
	})
	log.Warn("rolling back cart item")

	left, err := s.items.Increment(ctx, it.ID, -it.Quantity)
	switch {
	case errors.Is(err, ErrCartItemNotFound):
	case err != nil:
		log.WithError(err).Error("rollback: decrementing item")
		return fmt.Errorf("rolling back item[%s] of user[%s]: %w", it.ID, userID, err)
	case left.Quantity > 0:
		return nil
	}

	if err := s.users.RemoveCartItem(ctx, userID, it.ID); err != nil && !errors.Is(err, user.ErrNotFound) {
		log.WithError(err).Error("rollback: removing item from cart")
		return fmt.Errorf("rolling back item[%s] of user[%s]: %w", it.ID, userID, err)
	}
	if err := s.items.Delete(ctx, it.ID); err != nil {
		log.WithError(err).Error("rollback: deleting item")
		return fmt.Errorf("rolling back item[%s] of user[%s]: %w", it.ID, userID, err)
	}
	return nil
}

// RemoveItem takes the item out of the user's cart and returns its units to
// the inventory. The stock goes back before the cart changes, so a failed
// release leaves the cart as it was. productID is optional; when given it
// must be the item's product.
func (s *Service) RemoveItem(ctx context.Context, userID string, itemID string, productID string) error {
	u, err := s.fetchUser(ctx, userID)
	if err != nil {
		return err
	}

	if !u.InCart(itemID) {
		return ErrNotInCart
	}

	it, err := s.items.Fetch(ctx, itemID)
	if err != nil {
		return err
	}

	if productID != "" && productID != it.ProductID {
		return ErrProductMismatch
	}

	log := s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"item_id":    it.ID,
		"product_id": it.ProductID,
	})

	// Only the caller that claims the item returns its units. An item at
	// zero is already being removed or rolled back.
	claimed, err := s.items.Claim(ctx, it.ID)
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("claiming item[%s]: %w", it.ID, err)
	}

	if claimed.Reserved {
		_, err := s.products.Release(ctx, claimed.ProductID, claimed.Quantity)
		switch {
		case errors.Is(err, product.ErrNotFound):
			log.Warn("product is gone, nothing to release")
		case err != nil:
			if rerr := s.items.Restore(context.WithoutCancel(ctx), it.ID, claimed.Quantity); rerr != nil {
				log.WithError(rerr).Error("restoring claimed item")
				err = errors.Join(err, rerr)
			}
			return fmt.Errorf("releasing %d of product[%s]: %w", claimed.Quantity, claimed.ProductID, err)
		}
	}

	if err := s.users.RemoveCartItem(ctx, userID, it.ID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("removing item[%s] from cart of user[%s]: %w", it.ID, userID, err)
	}

	if err := s.items.Delete(ctx, it.ID); err != nil {
		return fmt.Errorf("deleting item[%s]: %w", it.ID, err)
	}

	s.invalidateCount(ctx, userID)
	return nil
}

// ModifyItem sets the quantity of an item. The reserved stock is left as it
// is.
func (s *Service) ModifyItem(ctx context.Context, userID string, itemID string, up ItemUp) (Item, error) {
	u, err := s.fetchUser(ctx, userID)
	if err != nil {
		return Item{}, err
	}

	if !u.InCart(itemID) {
		return Item{}, ErrNotInCart
	}

	return s.items.Update(ctx, itemID, up)
}

// Count returns the number of items in the user's cart. A count read before
// a concurrent mutation is never cached.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	n, ver, ok, err := s.counts.Get(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("reading cart count cache")
	}
	if ok {
		return n, nil
	}

	u, err := s.fetchUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	n = len(u.Cart)
	if err := s.counts.Set(ctx, userID, n, ver); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("writing cart count cache")
	}
	return n, nil
}

func (s *Service) fetchUser(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("fetching user[%s]: %w", id, err)
	}
	return u, nil
}

func (s *Service) invalidateCount(ctx context.Context, userID string) {
	if err := s.counts.Delete(context.WithoutCancel(ctx), userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("invalidating cart count cache")
	}
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (int, int64, bool, error) { return 0, 0, false, nil }
func (nopCache) Set(context.Context, string, int, int64) error         { return nil }
func (nopCache) Delete(context.Context, string) error                  { return nil }
