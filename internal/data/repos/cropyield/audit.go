package cropyield

import (
	"gorm.io/gorm"

	"github.com/yungbote/agroyield-backend/internal/domain/crops"
	"github.com/yungbote/agroyield-backend/internal/platform/dbctx"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

type AuditLogRepo interface {
	Create(dbc dbctx.Context, row *crops.AuditLog) error
	ListByRecord(dbc dbctx.Context, recordID string) ([]*crops.AuditLog, error)
	Count(dbc dbctx.Context) (int64, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{db: db, log: baseLog.With("repo", "AuditLogRepo")}
}

func (r *auditLogRepo) Create(dbc dbctx.Context, row *crops.AuditLog) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *auditLogRepo) ListByRecord(dbc dbctx.Context, recordID string) ([]*crops.AuditLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*crops.AuditLog
	err := t.WithContext(dbc.Ctx).
		Where("record_id = ?", recordID).
		Order("changed_at ASC").
		Find(&out).Error
	return out, err
}

func (r *auditLogRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&crops.AuditLog{}).Count(&n).Error
	return n, err
}
