package user

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/irsalhamdi/e-commerce-store/validate"
)

var ErrNotFound = errors.New("user not found")

const Collection = "users"

type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(Collection)}
}

func (s *Store) Fetch(ctx context.Context, id string) (User, error) {
	var u User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("fetching user[%s]: %w", id, err)
	}
	return u, nil
}

// AddCartItem appends itemID to the user's cart unless it is already there.
func (s *Store) AddCartItem(ctx context.Context, userID string, itemID string) error {
	update := bson.M{"$addToSet": bson.M{"cart": itemID}}
	return s.updateCart(ctx, userID, update)
}

// RemoveCartItem drops itemID from the user's cart. Removing an id that is
// not in the cart is not an error.
func (s *Store) RemoveCartItem(ctx context.Context, userID string, itemID string) error {
	update := bson.M{"$pull": bson.M{"cart": itemID}}
	return s.updateCart(ctx, userID, update)
}

func (s *Store) updateCart(ctx context.Context, userID string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("updating cart of user[%s]: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Create(ctx context.Context, nu UserNew) (User, error) {
	u := User{
		ID:    validate.GenerateID(),
		Name:  nu.Name,
		Email: nu.Email,
		Cart:  []string{},
	}

	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}
