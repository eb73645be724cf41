package cart

// Item is a cart line item. The product fields are a snapshot taken when the
// item was created and are shown when the product no longer exists. An item
// at quantity zero is being removed; it no longer holds its key.
type Item struct {
	ID             string  `json:"id" bson:"_id"`
	UserID         string  `json:"user" bson:"user"`
	ProductID      string  `json:"product" bson:"product"`
	Quantity       int     `json:"quantity" bson:"quantity"`
	SelectedSize   string  `json:"selectedSize,omitempty" bson:"selectedSize"`
	SelectedColour string  `json:"selectedColour,omitempty" bson:"selectedColour"`
	ProductName    string  `json:"productName" bson:"productName"`
	ProductImage   string  `json:"productImage" bson:"productImage"`
	ProductPrice   float64 `json:"productPrice" bson:"productPrice"`
	Reserved       bool    `json:"reserved" bson:"reserved"`
}

// Matches reports whether the item has the line item key (product, size,
// colour). A cart holds at most one item per key.
func (it Item) Matches(productID, size, colour string) bool {
	return it.ProductID == productID &&
		it.SelectedSize == size &&
		it.SelectedColour == colour
}

type ItemNew struct {
	ProductID      string `json:"productId" validate:"required"`
	Quantity       int    `json:"quantity" validate:"omitempty,gte=1,lte=255"`
	SelectedSize   string `json:"selectedSize" validate:"omitempty,max=32"`
	SelectedColour string `json:"selectedColour" validate:"omitempty,max=32"`
}

type ItemUp struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=255"`
}

type ItemRemove struct {
	ProductID string `json:"productId"`
}

// ItemView is a line item joined with the current state of its product.
type ItemView struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product"`
	Quantity          int     `json:"quantity"`
	SelectedSize      string  `json:"selectedSize,omitempty"`
	SelectedColour    string  `json:"selectedColour,omitempty"`
	ProductName       string  `json:"productName"`
	ProductImage      string  `json:"productImage"`
	ProductPrice      float64 `json:"productPrice"`
	ProductExists     bool    `json:"productExists"`
	ProductOutOfStock bool    `json:"productOutOfStock"`
}

type Count struct {
	CartCount int `json:"cartCount"`
}
