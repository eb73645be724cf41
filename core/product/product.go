package product

import "time"

// MaxStock is the ceiling of a product's stock counter.
const MaxStock = 255

type Product struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description" bson:"description"`
	Price        float64   `json:"price" bson:"price"`
	Image        string    `json:"image" bson:"image"`
	Colors       []string  `json:"colors" bson:"colors"`
	Sizes        []string  `json:"sizes" bson:"sizes"`
	CountInStock int       `json:"countInStock" bson:"countInStock"`
	DateAdded    time.Time `json:"dateAdded" bson:"dateAdded"`
}

type ProductNew struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	Price        float64  `json:"price" validate:"gte=0"`
	Image        string   `json:"image" validate:"required"`
	Colors       []string `json:"colors"`
	Sizes        []string `json:"sizes"`
	CountInStock int      `json:"countInStock" validate:"gte=0,lte=255"`
}
