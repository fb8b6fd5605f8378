package documents

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// RecordQuery is a list query after name filters were resolved to ids. A
// non-nil empty id slice matches nothing.
type RecordQuery struct {
	StateIDs  []string
	CropIDs   []string
	SeasonIDs []string
	Year      *int
	Limit     int
	Offset    int
}

type RecordRepo interface {
	Insert(ctx context.Context, doc *RecordDoc) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*RecordDoc, error)
	// FindByKey skips the document with id exclude unless exclude is zero.
	FindByKey(ctx context.Context, key crops.NaturalKey, exclude primitive.ObjectID) (*RecordDoc, error)
	Set(ctx context.Context, id primitive.ObjectID, fields bson.M) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	Latest(ctx context.Context) (*RecordDoc, error)
	List(ctx context.Context, q RecordQuery) ([]*RecordDoc, error)
	Count(ctx context.Context) (int64, error)
	// References streams the three dimension ids of every record.
	References(ctx context.Context, fn func(stateID, cropID, seasonID string)) error
	DuplicateKeys(ctx context.Context) ([]DuplicateKey, error)
}

type recordRepo struct {
	coll *mongo.Collection
	log  *logger.Logger
}

func NewRecordRepo(db *mongo.Database, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{coll: db.Collection(crops.RecordCollection), log: baseLog.With("repo", "DocumentRecordRepo")}
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *recordRepo) Insert(ctx context.Context, doc *RecordDoc) (primitive.ObjectID, error) {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, err
	}
	return doc.ID, nil
}

func (r *recordRepo) findOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*RecordDoc, error) {
	var doc RecordDoc
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *recordRepo) Get(ctx context.Context, id primitive.ObjectID) (*RecordDoc, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *recordRepo) FindByKey(ctx context.Context, key crops.NaturalKey, exclude primitive.ObjectID) (*RecordDoc, error) {
	filter := bson.M{
		"state_id":  key.StateID,
		"crop_id":   key.CropID,
		"season_id": key.SeasonID,
		"year":      key.Year,
	}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return r.findOne(ctx, filter)
}

func (r *recordRepo) Set(ctx context.Context, id primitive.ObjectID, fields bson.M) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (r *recordRepo) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *recordRepo) Latest(ctx context.Context) (*RecordDoc, error) {
	return r.findOne(ctx, bson.M{}, options.FindOne().SetSort(newestFirst))
}

func (r *recordRepo) List(ctx context.Context, q RecordQuery) ([]*RecordDoc, error) {
	filter := bson.M{}
	if q.StateIDs != nil {
		filter["state_id"] = bson.M{"$in": q.StateIDs}
	}
	if q.CropIDs != nil {
		filter["crop_id"] = bson.M{"$in": q.CropIDs}
	}
	if q.SeasonIDs != nil {
		filter["season_id"] = bson.M{"$in": q.SeasonIDs}
	}
	if q.Year != nil {
		filter["year"] = *q.Year
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*RecordDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *recordRepo) References(ctx context.Context, fn func(stateID, cropID, seasonID string)) error {
	proj := bson.M{"state_id": 1, "crop_id": 1, "season_id": 1}
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(proj))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d RecordDoc
		if err := cur.Decode(&d); err != nil {
			return err
		}
		fn(d.StateID, d.CropID, d.SeasonID)
	}
	return cur.Err()
}

func (r *recordRepo) DuplicateKeys(ctx context.Context) ([]DuplicateKey, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "state_id", Value: "$state_id"},
				{Key: "crop_id", Value: "$crop_id"},
				{Key: "season_id", Value: "$season_id"},
				{Key: "year", Value: "$year"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Key struct {
			StateID  string `bson:"state_id"`
			CropID   string `bson:"crop_id"`
			SeasonID string `bson:"season_id"`
			Year     int    `bson:"year"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]DuplicateKey, 0, len(rows))
	for _, row := range rows {
		out = append(out, DuplicateKey{
			StateID:  row.Key.StateID,
			CropID:   row.Key.CropID,
			SeasonID: row.Key.SeasonID,
			Year:     row.Key.Year,
			Count:    row.Count,
		})
	}
	return out, nil
}
