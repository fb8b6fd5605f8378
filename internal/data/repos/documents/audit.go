package documents

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type AuditLogRepo interface {
	Insert(ctx context.Context, doc *AuditDoc) error
	ListByDocument(ctx context.Context, documentID string) ([]*AuditDoc, error)
	Count(ctx context.Context) (int64, error)
}

type auditLogRepo struct {
	coll *mongo.Collection
	log  *logger.Logger
}

func NewAuditLogRepo(db *mongo.Database, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{coll: db.Collection(crops.AuditCollection), log: baseLog.With("repo", "DocumentAuditLogRepo")}
}

func (r *auditLogRepo) Insert(ctx context.Context, doc *AuditDoc) error {
	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

func (r *auditLogRepo) ListByDocument(ctx context.Context, documentID string) ([]*AuditDoc, error) {
	cur, err := r.coll.Find(ctx, bson.M{"document_id": documentID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []*AuditDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *auditLogRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}
