package user

// User owns the ordered list of its cart line item ids. The list is the
// only record of cart membership.
type User struct {
	ID    string   `json:"id" bson:"_id"`
	Name  string   `json:"name" bson:"name"`
	Email string   `json:"email" bson:"email"`
	Cart  []string `json:"cart" bson:"cart"`
}

type UserNew struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// InCart reports whether itemID is a member of the user's cart.
func (u User) InCart(itemID string) bool {
	for _, id := range u.Cart {
		if id == itemID {
			return true
		}
	}
	return false
}
