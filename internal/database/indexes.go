package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

func catalogIndexes() []indexSpec {
	return []indexSpec{
		{PosProductsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "externalProductId", Value: 1}},
			Options: options.Index().SetName("externalProductId_unique").SetUnique(true),
		}},
		{PosProductsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "isFavorite", Value: -1}},
			Options: options.Index().SetName("active_favorite_index"),
		}},
		{ModifierGroupsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "externalProductId", Value: 1}},
			Options: options.Index().SetName("externalProductId_unique").SetUnique(true),
		}},
	}
}

func auditIndexes() []indexSpec {
	return []indexSpec{
		{PosSaleLogsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "externalSaleId", Value: 1}},
			Options: options.Index().SetName("externalSaleId_index"),
		}},
		{PosSaleLogsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_index"),
		}},
		{RemoteOrderLogsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "externalOrderId", Value: 1}},
			Options: options.Index().SetName("externalOrderId_index"),
		}},
		{RemoteOrderLogsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_index"),
		}},
	}
}

// EnsureCatalogIndexes creates lookup indexes on the catalog collections.
func EnsureCatalogIndexes(db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexes(db, logger, catalogIndexes())
}

// EnsureAuditIndexes creates lookup indexes on the audit log collections.
func EnsureAuditIndexes(db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexes(db, logger, auditIndexes())
}

func ensureIndexes(db *mongo.Database, logger *zap.Logger, specs []indexSpec) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, spec := range specs {
		name := ""
		if spec.model.Options != nil && spec.model.Options.Name != nil {
			name = *spec.model.Options.Name
		}
		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			logger.Warn("index creation failed",
				zap.String("collection", spec.collection),
				zap.String("index", name),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("index ensured", zap.String("collection", spec.collection), zap.String("index", name))
	}
	return nil
}
