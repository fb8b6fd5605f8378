package documents

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type DimensionRepo interface {
	// GetIDByName returns "" when no document has the name.
	GetIDByName(ctx context.Context, kind crops.DimensionKind, name string) (string, error)
	// Upsert returns the id for name, inserting it when absent.
	Upsert(ctx context.Context, kind crops.DimensionKind, name string) (id string, created bool, err error)
	// IDsMatching returns ids whose name contains substr, ignoring case.
	IDsMatching(ctx context.Context, kind crops.DimensionKind, substr string) ([]string, error)
	// AllIDs returns every id of the collection as hex strings.
	AllIDs(ctx context.Context, kind crops.DimensionKind) (map[string]struct{}, error)
	Count(ctx context.Context, kind crops.DimensionKind) (int64, error)
}

type dimensionRepo struct {
	db  *mongo.Database
	log *logger.Logger
}

func NewDimensionRepo(db *mongo.Database, baseLog *logger.Logger) DimensionRepo {
	return &dimensionRepo{db: db, log: baseLog.With("repo", "DocumentDimensionRepo")}
}

type idOnly struct {
	ID primitive.ObjectID `bson:"_id"`
}

func (r *dimensionRepo) GetIDByName(ctx context.Context, kind crops.DimensionKind, name string) (string, error) {
	var doc idOnly
	err := r.db.Collection(kind.Collection()).
		FindOne(ctx, bson.M{kind.NameField(): name}, options.FindOne().SetProjection(bson.M{"_id": 1})).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (r *dimensionRepo) Upsert(ctx context.Context, kind crops.DimensionKind, name string) (string, bool, error) {
	res, err := r.db.Collection(kind.Collection()).UpdateOne(
		ctx,
		bson.M{kind.NameField(): name},
		bson.M{"$setOnInsert": bson.M{kind.NameField(): name}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		inTx := mongo.SessionFromContext(ctx) != nil
		if retryErr := raceRetryError(err, inTx); retryErr != nil {
			return "", false, retryErr
		}
		// A concurrent upsert of the same name loses the unique index race;
		// the winner's row is the answer.
		if mongo.IsDuplicateKeyError(err) {
			id, findErr := r.GetIDByName(ctx, kind, name)
			if findErr == nil && id != "" {
				return id, false, nil
			}
		}
		return "", false, err
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), true, nil
	}
	id, err := r.GetIDByName(ctx, kind, name)
	return id, false, err
}

func (r *dimensionRepo) IDsMatching(ctx context.Context, kind crops.DimensionKind, substr string) ([]string, error) {
	filter := bson.M{kind.NameField(): primitive.Regex{Pattern: regexp.QuoteMeta(substr), Options: "i"}}
	cur, err := r.db.Collection(kind.Collection()).Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []idOnly
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID.Hex())
	}
	return out, nil
}

func (r *dimensionRepo) AllIDs(ctx context.Context, kind crops.DimensionKind) (map[string]struct{}, error) {
	cur, err := r.db.Collection(kind.Collection()).Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]struct{}{}
	for cur.Next(ctx) {
		var d idOnly
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out[d.ID.Hex()] = struct{}{}
	}
	return out, cur.Err()
}

func (r *dimensionRepo) Count(ctx context.Context, kind crops.DimensionKind) (int64, error) {
	return r.db.Collection(kind.Collection()).CountDocuments(ctx, bson.M{})
}

const transientTxLabel = "TransientTransactionError"

// transientTxError carries the transient label so the session's transaction
// runner aborts and reruns the whole callback.
type transientTxError struct {
	err error
}

func (e *transientTxError) Error() string { return e.err.Error() }
func (e *transientTxError) Unwrap() error { return e.err }

func (e *transientTxError) HasErrorLabel(label string) bool { return label == transientTxLabel }

// raceRetryError returns the error to surface for a name upsert that lost a
// unique index race inside a transaction, or nil when err is not such a loss.
// The server has already aborted the transaction, so the winner's row is only
// readable from a fresh attempt.
func raceRetryError(err error, inTx bool) error {
	if !inTx || !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return &transientTxError{err: err}
}
