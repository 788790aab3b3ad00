package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backoffice/internal/database"
	"backoffice/internal/models"
	"backoffice/internal/sales"
)

type Locations struct {
	coll *mongo.Collection
}

func NewLocations(db *mongo.Database) *Locations {
	return &Locations{coll: db.Collection(database.RemoteLocationsCollection)}
}

// FindRemoteLocation returns sales.ErrLocationNotFound for malformed or
// unknown ids.
func (s *Locations) FindRemoteLocation(ctx context.Context, id string) (models.RemoteLocation, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.RemoteLocation{}, sales.ErrLocationNotFound
	}

	var loc models.RemoteLocation
	err = s.coll.FindOne(ctx, bson.M{"_id": objectID}).Decode(&loc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RemoteLocation{}, sales.ErrLocationNotFound
	}
	if err != nil {
		return models.RemoteLocation{}, err
	}
	return loc, nil
}

// ListActive returns the selectable locations ordered by name.
func (s *Locations) ListActive(ctx context.Context) ([]models.RemoteLocation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	locations := make([]models.RemoteLocation, 0)
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}
