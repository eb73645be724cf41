package cart

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "cartproducts"

// errDuplicateKey reports that the user already has a live item with the
// same product, size and colour.
var errDuplicateKey = errors.New("line item key already in cart")

// Store keeps line items. It gives no guarantees across items; the Service
// orders its calls to keep carts consistent.
type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(Collection)}
}

func (s *Store) Fetch(ctx context.Context, id string) (Item, error) {
	var it Item
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Item{}, ErrCartItemNotFound
		}
		return Item{}, fmt.Errorf("fetching item[%s]: %w", id, err)
	}
	return it, nil
}

// FetchMany returns the items with the given ids in the order of ids.
// Unknown ids are skipped.
func (s *Store) FetchMany(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}

	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("finding items: %w", err)
	}

	var found []Item
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	byID := make(map[string]Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}

	items := make([]Item, 0, len(found))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// FetchByKey returns the user's live item with the given product, size and
// colour.
func (s *Store) FetchByKey(ctx context.Context, userID, productID, size, colour string) (Item, error) {
	filter := bson.M{
		"user":           userID,
		"product":        productID,
		"selectedSize":   size,
		"selectedColour": colour,
		"quantity":       bson.M{"$gte": 1},
	}

	var it Item
	err := s.coll.FindOne(ctx, filter).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Item{}, ErrCartItemNotFound
		}
		return Item{}, fmt.Errorf("fetching item of user[%s] by key: %w", userID, err)
	}
	return it, nil
}

// Create inserts it. The unique line_item_key index refuses a second live
// item with the same owner, product, size and colour.
func (s *Store) Create(ctx context.Context, it Item) error {
	if _, err := s.coll.InsertOne(ctx, it); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateKey
		}
		return fmt.Errorf("inserting item[%s]: %w", it.ID, err)
	}
	return nil
}

// Increment adds by, which may be negative, to the item's quantity. Items
// whose quantity reached zero are being removed and no longer match.
func (s *Store) Increment(ctx context.Context, id string, by int) (Item, error) {
	update := bson.M{"$inc": bson.M{"quantity": by}}
	return s.findAndUpdate(ctx, id, update, options.After)
}

func (s *Store) Update(ctx context.Context, id string, up ItemUp) (Item, error) {
	update := bson.M{"$set": bson.M{"quantity": up.Quantity}}
	return s.findAndUpdate(ctx, id, update, options.After)
}

// Claim sets the quantity of a live item to zero and returns the item as it
// was. Of concurrent callers only one claims the item; the others get
// ErrCartItemNotFound.
func (s *Store) Claim(ctx context.Context, id string) (Item, error) {
	update := bson.M{"$set": bson.M{"quantity": 0}}
	return s.findAndUpdate(ctx, id, update, options.Before)
}

// Restore gives a claimed item its quantity back.
func (s *Store) Restore(ctx context.Context, id string, qty int) error {
	filter := bson.M{"_id": id, "quantity": 0}
	update := bson.M{"$set": bson.M{"quantity": qty}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateKey
		}
		return fmt.Errorf("restoring item[%s]: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Delete removes the item. Deleting a missing item is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting item[%s]: %w", id, err)
	}
	return nil
}

func (s *Store) findAndUpdate(ctx context.Context, id string, update bson.M, ret options.ReturnDocument) (Item, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(ret)

	var it Item
	filter := bson.M{"_id": id, "quantity": bson.M{"$gte": 1}}
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Item{}, ErrCartItemNotFound
		}
		return Item{}, fmt.Errorf("updating item[%s]: %w", id, err)
	}
	return it, nil
}
