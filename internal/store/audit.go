package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backoffice/internal/database"
	"backoffice/internal/models"
)

// AuditLogs appends sale and delivery audit records.
type AuditLogs struct {
	sales  *mongo.Collection
	remote *mongo.Collection
}

func NewAuditLogs(db *mongo.Database) *AuditLogs {
	return &AuditLogs{
		sales:  db.Collection(database.PosSaleLogsCollection),
		remote: db.Collection(database.RemoteOrderLogsCollection),
	}
}

func (s *AuditLogs) InsertSaleLog(ctx context.Context, log models.SaleLog) error {
	_, err := s.sales.InsertOne(ctx, log)
	return err
}

func (s *AuditLogs) InsertRemoteOrderLog(ctx context.Context, log models.RemoteOrderLog) error {
	_, err := s.remote.InsertOne(ctx, log)
	return err
}

// ListSaleLogs returns one page of sale records, newest first, and the total
// number of records.
func (s *AuditLogs) ListSaleLogs(ctx context.Context, page, limit int64) ([]models.SaleLog, int64, error) {
	total, err := s.sales.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := s.sales.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	logs := make([]models.SaleLog, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
