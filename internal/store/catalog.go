// Package store holds the Mongo-backed repositories.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"backoffice/internal/database"
	"backoffice/internal/models"
)

// Catalog reads the product and modifier documents written by the catalog
// sync job.
type Catalog struct {
	products  *mongo.Collection
	modifiers *mongo.Collection
}

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{
		products:  db.Collection(database.PosProductsCollection),
		modifiers: db.Collection(database.ModifierGroupsCollection),
	}
}

func (s *Catalog) ListPosProducts(ctx context.Context) ([]models.PosProduct, error) {
	cursor, err := s.products.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodePosProducts(ctx, cursor)
}

func (s *Catalog) FindProductModifiers(ctx context.Context, externalProductID string) (models.ProductModifiers, bool, error) {
	var doc models.ProductModifiers
	err := s.modifiers.FindOne(ctx, bson.M{"externalProductId": externalProductID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProductModifiers{}, false, nil
	}
	if err != nil {
		return models.ProductModifiers{}, false, err
	}
	return doc, true, nil
}

// normalizePosProduct repairs documents written by older sync jobs: flags
// stored as strings, numeric external ids and a missing isActive flag.
func normalizePosProduct(raw bson.M) (models.PosProduct, error) {
	for _, key := range []string{"hasModifiers", "isFavorite"} {
		raw[key] = boolValue(raw[key], false)
	}
	raw["isActive"] = boolValue(raw["isActive"], true)

	switch typed := raw["externalProductId"].(type) {
	case int32:
		raw["externalProductId"] = strconv.FormatInt(int64(typed), 10)
	case int64:
		raw["externalProductId"] = strconv.FormatInt(typed, 10)
	case float64:
		raw["externalProductId"] = strconv.FormatInt(int64(typed), 10)
	}

	switch typed := raw["price"].(type) {
	case int32:
		raw["price"] = float64(typed)
	case int64:
		raw["price"] = float64(typed)
	case string:
		parsed, _ := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		raw["price"] = parsed
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.PosProduct{}, err
	}
	var p models.PosProduct
	if err := bson.Unmarshal(data, &p); err != nil {
		return models.PosProduct{}, err
	}
	return p, nil
}

func boolValue(v any, fallback bool) bool {
	switch typed := v.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return parsed
	case int32:
		return typed != 0
	case int64:
		return typed != 0
	default:
		return fallback
	}
}

func decodePosProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.PosProduct, error) {
	products := make([]models.PosProduct, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		product, err := normalizePosProduct(raw)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}
