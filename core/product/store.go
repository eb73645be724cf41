package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/irsalhamdi/e-commerce-store/validate"
)

var (
	ErrNotFound = errors.New("product not found")

	// ErrConditionFailed means a reservation matched no product: either the
	// stock is too low or the product is gone.
	ErrConditionFailed = errors.New("insufficient stock or product missing")

	ErrInvalidAmount = errors.New("stock amount must be positive")
)

const Collection = "products"

// Store is the inventory store. Stock changes are single conditional
// updates so concurrent callers never drive the counter out of range.
type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(Collection)}
}

func (s *Store) Fetch(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("fetching product[%s]: %w", id, err)
	}
	return p, nil
}

// Reserve withdraws amount units if at least that many are in stock.
func (s *Store) Reserve(ctx context.Context, id string, amount int) (Product, error) {
	if amount < 1 {
		return Product{}, ErrInvalidAmount
	}

	filter := bson.M{"_id": id, "countInStock": bson.M{"$gte": amount}}
	update := bson.M{"$inc": bson.M{"countInStock": -amount}}

	p, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, ErrConditionFailed
	}
	if err != nil {
		return Product{}, fmt.Errorf("reserving %d of product[%s]: %w", amount, id, err)
	}
	return p, nil
}

// Release puts amount units back. The counter is clamped at MaxStock.
func (s *Store) Release(ctx context.Context, id string, amount int) (Product, error) {
	if amount < 1 {
		return Product{}, ErrInvalidAmount
	}

	filter := bson.M{"_id": id}
	update := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"countInStock": bson.M{"$min": bson.A{
			MaxStock,
			bson.M{"$add": bson.A{"$countInStock", amount}},
		}},
	}}}}

	p, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("releasing %d of product[%s]: %w", amount, id, err)
	}
	return p, nil
}

func (s *Store) findAndUpdate(ctx context.Context, filter any, update any) (Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p Product
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Store) Create(ctx context.Context, np ProductNew) (Product, error) {
	p := Product{
		ID:           validate.GenerateID(),
		Name:         np.Name,
		Description:  np.Description,
		Price:        np.Price,
		Image:        np.Image,
		Colors:       np.Colors,
		Sizes:        np.Sizes,
		CountInStock: np.CountInStock,
		DateAdded:    time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		return Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting product[%s]: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
