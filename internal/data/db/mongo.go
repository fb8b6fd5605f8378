package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type MongoConfig struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
}

type MongoService struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
}

func NewMongoService(ctx context.Context, logg *logger.Logger, cfg MongoConfig) (*MongoService, error) {
	serviceLog := logg.With("service", "MongoService", "database", cfg.Database)

	timeout := cfg.ServerSelectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	serviceLog.Info("document store connected", "uri", cfg.URI)
	return &MongoService{client: client, db: client.Database(cfg.Database), log: serviceLog}, nil
}

func (s *MongoService) Client() *mongo.Client     { return s.client }
func (s *MongoService) Database() *mongo.Database { return s.db }

func (s *MongoService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureMongoIndexes creates the unique name indexes on the dimension
// collections and the natural-key index on crop_yield_records.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for _, kind := range crops.DimensionKinds {
		_, err := db.Collection(kind.Collection()).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: kind.NameField(), Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_" + kind.NameField()),
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", kind.Collection(), err)
		}
	}
	_, err := db.Collection(crops.RecordCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "state_id", Value: 1},
				{Key: "crop_id", Value: 1},
				{Key: "season_id", Value: 1},
				{Key: "year", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_natural_key"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", crops.RecordCollection, err)
	}
	_, err = db.Collection(crops.AuditCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "document_id", Value: 1}},
		Options: options.Index().SetName("document_id"),
	})
	if err != nil {
		return fmt.Errorf("create %s index: %w", crops.AuditCollection, err)
	}
	return nil
}
