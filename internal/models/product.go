package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PosProduct is a sellable catalog entry shown on the cashier grid.
type PosProduct struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"localId"`
	ExternalProductID string             `bson:"externalProductId" json:"externalProductId"`
	CategoryID        string             `bson:"categoryId" json:"categoryId"`
	Name              string             `bson:"name" json:"name"`
	Price             float64            `bson:"price" json:"price"`
	HasModifiers      bool               `bson:"hasModifiers" json:"hasModifiers"`
	IsFavorite        bool               `bson:"isFavorite" json:"isFavorite"`
	IsActive          bool               `bson:"isActive" json:"-"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"-"`
}

// ModifierOption is one selectable topping inside a group.
type ModifierOption struct {
	ID               string  `bson:"id" json:"id"`
	ToppingProductID string  `bson:"toppingProductId" json:"toppingProductId"`
	Name             string  `bson:"name" json:"name"`
	Price            float64 `bson:"price" json:"price"`
	MaxQuantity      int     `bson:"maxQuantity,omitempty" json:"maxQuantity,omitempty"`
}

// ModifierGroup bounds how many options may be selected together. A MaxQuantity
// of zero means the group is unbounded.
type ModifierGroup struct {
	ID          string           `bson:"id" json:"id"`
	Name        string           `bson:"name" json:"name"`
	MinQuantity int              `bson:"minQuantity" json:"minQuantity"`
	MaxQuantity int              `bson:"maxQuantity" json:"maxQuantity"`
	Options     []ModifierOption `bson:"options" json:"options"`
}

// ProductModifiers is the cached modifier document for one external product.
type ProductModifiers struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ExternalProductID string             `bson:"externalProductId" json:"externalProductId"`
	Groups            []ModifierGroup    `bson:"groups" json:"groups"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
