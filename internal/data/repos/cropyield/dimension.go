package cropyield

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/dbctx"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type DimensionRepo interface {
	// GetIDByName returns uuid.Nil when no row has the name.
	GetIDByName(dbc dbctx.Context, kind crops.DimensionKind, name string) (uuid.UUID, error)
	// InsertIfAbsent inserts name and reports whether this call created the row.
	InsertIfAbsent(dbc dbctx.Context, kind crops.DimensionKind, name string) (bool, error)
	Count(dbc dbctx.Context, kind crops.DimensionKind) (int64, error)
}

type dimensionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDimensionRepo(db *gorm.DB, baseLog *logger.Logger) DimensionRepo {
	return &dimensionRepo{db: db, log: baseLog.With("repo", "DimensionRepo")}
}

func (r *dimensionRepo) GetIDByName(dbc dbctx.Context, kind crops.DimensionKind, name string) (uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var ids []uuid.UUID
	if err := t.WithContext(dbc.Ctx).
		Table(kind.Collection()).
		Where(kind.NameField()+" = ?", name).
		Limit(1).
		Pluck(kind.IDField(), &ids).Error; err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, nil
	}
	return ids[0], nil
}

func (r *dimensionRepo) InsertIfAbsent(dbc dbctx.Context, kind crops.DimensionKind, name string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row, err := newDimensionRow(kind, uuid.New(), name)
	if err != nil {
		return false, err
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: kind.NameField()}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dimensionRepo) Count(dbc dbctx.Context, kind crops.DimensionKind) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Table(kind.Collection()).Count(&n).Error
	return n, err
}

func newDimensionRow(kind crops.DimensionKind, id uuid.UUID, name string) (any, error) {
	switch kind {
	case crops.DimensionState:
		return &crops.State{StateID: id, StateName: name}, nil
	case crops.DimensionCrop:
		return &crops.Crop{CropID: id, CropName: name}, nil
	case crops.DimensionSeason:
		return &crops.Season{SeasonID: id, SeasonName: name}, nil
	default:
		return nil, fmt.Errorf("unknown dimension kind %q", kind)
	}
}
