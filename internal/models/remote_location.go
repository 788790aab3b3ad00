package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RemoteLocation is a delivery partner site with its own ledger credentials.
type RemoteLocation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	APIKey      string             `bson:"apiKey" json:"-"`
	APISecret   string             `bson:"apiSecret" json:"-"`
	DeliveryFee float64            `bson:"deliveryFee" json:"deliveryFee"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
}
