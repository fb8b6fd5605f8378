package cropyield

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/dbctx"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

// RecordViewRow is a crop_yield_records row joined with its dimension names.
type RecordViewRow struct {
	RecordID       uuid.UUID `gorm:"column:record_id"`
	StateID        uuid.UUID `gorm:"column:state_id"`
	CropID         uuid.UUID `gorm:"column:crop_id"`
	SeasonID       uuid.UUID `gorm:"column:season_id"`
	StateName      string    `gorm:"column:state_name"`
	CropName       string    `gorm:"column:crop_name"`
	SeasonName     string    `gorm:"column:season_name"`
	CropYear       int       `gorm:"column:crop_year"`
	Area           *float64  `gorm:"column:area"`
	Production     *float64  `gorm:"column:production"`
	AnnualRainfall *float64  `gorm:"column:annual_rainfall"`
	Fertilizer     *float64  `gorm:"column:fertilizer"`
	Pesticide      *float64  `gorm:"column:pesticide"`
	Yield          *float64  `gorm:"column:yield"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// DuplicateKeyRow is one natural key held by several rows.
type DuplicateKeyRow struct {
	StateID  uuid.UUID `gorm:"column:state_id"`
	CropID   uuid.UUID `gorm:"column:crop_id"`
	SeasonID uuid.UUID `gorm:"column:season_id"`
	CropYear int       `gorm:"column:crop_year"`
	N        int64     `gorm:"column:n"`
}

type RecordRepo interface {
	Create(dbc dbctx.Context, row *crops.CropYieldRecord) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*crops.CropYieldRecord, error)
	// FindByKey ignores the row with id exclude when exclude is not uuid.Nil.
	FindByKey(dbc dbctx.Context, stateID, cropID, seasonID uuid.UUID, year int, exclude uuid.UUID) (*crops.CropYieldRecord, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) (int64, error)
	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)

	GetView(dbc dbctx.Context, id uuid.UUID) (*RecordViewRow, error)
	LatestView(dbc dbctx.Context) (*RecordViewRow, error)
	ListViews(dbc dbctx.Context, f crops.RecordFilter) ([]*RecordViewRow, error)

	Count(dbc dbctx.Context) (int64, error)
	CountDangling(dbc dbctx.Context, kind crops.DimensionKind) (int64, error)
	DuplicateKeys(dbc dbctx.Context) ([]*DuplicateKeyRow, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (r *recordRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *recordRepo) Create(dbc dbctx.Context, row *crops.CropYieldRecord) error {
	if row.RecordID == uuid.Nil {
		row.RecordID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return r.tx(dbc).Create(row).Error
}

func (r *recordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*crops.CropYieldRecord, error) {
	var row crops.CropYieldRecord
	err := r.tx(dbc).Where("record_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *recordRepo) FindByKey(dbc dbctx.Context, stateID, cropID, seasonID uuid.UUID, year int, exclude uuid.UUID) (*crops.CropYieldRecord, error) {
	q := r.tx(dbc).
		Where("state_id = ? AND crop_id = ? AND season_id = ? AND crop_year = ?", stateID, cropID, seasonID, year)
	if exclude != uuid.Nil {
		q = q.Where("record_id <> ?", exclude)
	}
	var row crops.CropYieldRecord
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *recordRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	res := r.tx(dbc).
		Model(&crops.CropYieldRecord{}).
		Where("record_id = ?", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *recordRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	res := r.tx(dbc).Where("record_id = ?", id).Delete(&crops.CropYieldRecord{})
	return res.RowsAffected, res.Error
}

func (r *recordRepo) viewQuery(dbc dbctx.Context) *gorm.DB {
	return r.tx(dbc).
		Table("crop_yield_records AS r").
		Select("r.record_id, r.state_id, r.crop_id, r.season_id, s.state_name, c.crop_name, se.season_name, " +
			"r.crop_year, r.area, r.production, r.annual_rainfall, r.fertilizer, r.pesticide, r.yield, r.created_at").
		Joins("JOIN states s ON s.state_id = r.state_id").
		Joins("JOIN crops c ON c.crop_id = r.crop_id").
		Joins("JOIN seasons se ON se.season_id = r.season_id")
}

func (r *recordRepo) GetView(dbc dbctx.Context, id uuid.UUID) (*RecordViewRow, error) {
	var rows []*RecordViewRow
	if err := r.viewQuery(dbc).Where("r.record_id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *recordRepo) LatestView(dbc dbctx.Context) (*RecordViewRow, error) {
	var rows []*RecordViewRow
	if err := r.viewQuery(dbc).
		Order("r.created_at DESC").
		Order("r.record_id DESC").
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *recordRepo) ListViews(dbc dbctx.Context, f crops.RecordFilter) ([]*RecordViewRow, error) {
	q := r.viewQuery(dbc)
	if f.State != "" {
		q = q.Where(`LOWER(s.state_name) LIKE ? ESCAPE '\'`, containsPattern(f.State))
	}
	if f.Crop != "" {
		q = q.Where(`LOWER(c.crop_name) LIKE ? ESCAPE '\'`, containsPattern(f.Crop))
	}
	if f.Season != "" {
		q = q.Where(`LOWER(se.season_name) LIKE ? ESCAPE '\'`, containsPattern(f.Season))
	}
	if f.Year != nil {
		q = q.Where("r.crop_year = ?", *f.Year)
	}
	var rows []*RecordViewRow
	err := q.Order("r.created_at DESC").
		Order("r.record_id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Scan(&rows).Error
	return rows, err
}

func (r *recordRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.tx(dbc).Model(&crops.CropYieldRecord{}).Count(&n).Error
	return n, err
}

func (r *recordRepo) CountDangling(dbc dbctx.Context, kind crops.DimensionKind) (int64, error) {
	var n int64
	err := r.tx(dbc).
		Table("crop_yield_records AS r").
		Joins("LEFT JOIN "+kind.Collection()+" d ON d."+kind.IDField()+" = r."+kind.IDField()).
		Where("d." + kind.IDField() + " IS NULL").
		Count(&n).Error
	return n, err
}

func (r *recordRepo) DuplicateKeys(dbc dbctx.Context) ([]*DuplicateKeyRow, error) {
	var rows []*DuplicateKeyRow
	err := r.tx(dbc).
		Model(&crops.CropYieldRecord{}).
		Select("state_id, crop_id, season_id, crop_year, COUNT(*) AS n").
		Group("state_id, crop_id, season_id, crop_year").
		Having("COUNT(*) > 1").
		Scan(&rows).Error
	return rows, err
}

// containsPattern builds a lowercase LIKE pattern matching s anywhere, with
// LIKE metacharacters in s escaped.
func containsPattern(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + escaped + "%"
}
