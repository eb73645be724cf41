package cart

import (
	"context"
	"sync"

	"github.com/irsalhamdi/e-commerce-store/core/product"
	"github.com/irsalhamdi/e-commerce-store/core/user"
)

// The fakes lock around every call, which gives them the same single-call
// atomicity as the Mongo stores.

type fakeUsers struct {
	mu         sync.Mutex
	users      map[string]user.User
	addErr     error
	afterFetch func()
}

func newFakeUsers(users ...user.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]user.User)}
	for _, u := range users {
		if u.Cart == nil {
			u.Cart = []string{}
		}
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Fetch(_ context.Context, id string) (user.User, error) {
	if h := f.afterFetch; h != nil {
		defer h()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u.Cart = append([]string{}, u.Cart...)
	return u, nil
}

func (f *fakeUsers) AddCartItem(_ context.Context, userID string, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	if !u.InCart(itemID) {
		u.Cart = append(u.Cart, itemID)
	}
	f.users[userID] = u
	return nil
}

func (f *fakeUsers) RemoveCartItem(_ context.Context, userID string, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	kept := make([]string, 0, len(u.Cart))
	for _, id := range u.Cart {
		if id != itemID {
			kept = append(kept, id)
		}
	}
	u.Cart = kept
	f.users[userID] = u
	return nil
}

func (f *fakeUsers) cart(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.users[userID].Cart...)
}

type fakeProducts struct {
	mu            sync.Mutex
	products      map[string]product.Product
	releaseErr    error
	releases      int
	beforeReserve func()
}

func newFakeProducts(products ...product.Product) *fakeProducts {
	f := &fakeProducts{products: make(map[string]product.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Fetch(_ context.Context, id string) (product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) Reserve(_ context.Context, id string, amount int) (product.Product, error) {
	if f.beforeReserve != nil {
		f.beforeReserve()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.CountInStock < amount {
		return product.Product{}, product.ErrConditionFailed
	}
	p.CountInStock -= amount
	f.products[id] = p
	return p, nil
}

func (f *fakeProducts) Release(_ context.Context, id string, amount int) (product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	if f.releaseErr != nil {
		return product.Product{}, f.releaseErr
	}
	p, ok := f.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	p.CountInStock = min(product.MaxStock, p.CountInStock+amount)
	f.products[id] = p
	return p, nil
}

func (f *fakeProducts) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].CountInStock
}

func (f *fakeProducts) set(p product.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeProducts) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

type fakeItems struct {
	mu             sync.Mutex
	items          map[string]Item
	afterFetch     func()
	afterFetchMany func()
}

func newFakeItems(items ...Item) *fakeItems {
	f := &fakeItems{items: make(map[string]Item)}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

func (f *fakeItems) Fetch(_ context.Context, id string) (Item, error) {
	if h := f.afterFetch; h != nil {
		defer h()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return Item{}, ErrCartItemNotFound
	}
	return it, nil
}

func (f *fakeItems) FetchMany(_ context.Context, ids []string) ([]Item, error) {
	if h := f.afterFetchMany; h != nil {
		defer h()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

func (f *fakeItems) FetchByKey(_ context.Context, userID, productID, size, colour string) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.liveByKey(userID, productID, size, colour); ok {
		return it, nil
	}
	return Item{}, ErrCartItemNotFound
}

func (f *fakeItems) liveByKey(userID, productID, size, colour string) (Item, bool) {
	for _, it := range f.items {
		if it.Quantity > 0 && it.UserID == userID && it.Matches(productID, size, colour) {
			return it, true
		}
	}
	return Item{}, false
}

// Create enforces the unique line item key the way the Mongo index does.
// Items without an owner are exempt so tests can seed them freely.
func (f *fakeItems) Create(_ context.Context, it Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it.UserID != "" && it.Quantity > 0 {
		if _, taken := f.liveByKey(it.UserID, it.ProductID, it.SelectedSize, it.SelectedColour); taken {
			return errDuplicateKey
		}
	}
	f.items[it.ID] = it
	return nil
}

func (f *fakeItems) Increment(_ context.Context, id string, by int) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.Quantity < 1 {
		return Item{}, ErrCartItemNotFound
	}
	it.Quantity += by
	f.items[id] = it
	return it, nil
}

func (f *fakeItems) Update(_ context.Context, id string, up ItemUp) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.Quantity < 1 {
		return Item{}, ErrCartItemNotFound
	}
	it.Quantity = up.Quantity
	f.items[id] = it
	return it, nil
}

func (f *fakeItems) Claim(_ context.Context, id string) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.Quantity < 1 {
		return Item{}, ErrCartItemNotFound
	}
	claimed := it
	claimed.Quantity = 0
	f.items[id] = claimed
	return it, nil
}

func (f *fakeItems) Restore(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok || it.Quantity != 0 {
		return ErrCartItemNotFound
	}
	it.Quantity = qty
	f.items[id] = it
	return nil
}

func (f *fakeItems) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeItems) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeCounts struct {
	mu       sync.Mutex
	counts   map[string]int
	versions map[string]int64
	sets     int
}

func newFakeCounts() *fakeCounts {
	return &fakeCounts{
		counts:   make(map[string]int),
		versions: make(map[string]int64),
	}
}

func (f *fakeCounts) Get(_ context.Context, userID string) (int, int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.counts[userID]
	return n, f.versions[userID], ok, nil
}

func (f *fakeCounts) Set(_ context.Context, userID string, n int, ver int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.versions[userID] != ver {
		return nil
	}
	f.sets++
	f.counts[userID] = n
	return nil
}

func (f *fakeCounts) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[userID]++
	delete(f.counts, userID)
	return nil
}

func (f *fakeCounts) cached(userID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.counts[userID]
	return n, ok
}

// rendezvous returns a hook that holds its first n callers until all n have
// arrived. Later callers pass straight through.
func rendezvous(n int) func() {
	var mu sync.Mutex
	arrived := 0
	all := make(chan struct{})
	return func() {
		mu.Lock()
		arrived++
		k := arrived
		if k == n {
			close(all)
		}
		mu.Unlock()
		if k <= n {
			<-all
		}
	}
}
