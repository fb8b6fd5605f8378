package aggregates

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yungbote/agroyield-backend/internal/data/store"
	domainagg "github.com/yungbote/agroyield-backend/internal/domain/aggregates"
	"github.com/yungbote/agroyield-backend/internal/domain/crops"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrNotFound indicates the targeted record is absent.
	ErrNotFound = errors.New("aggregate not found")
	// ErrConflict indicates a natural-key collision.
	ErrConflict = errors.New("aggregate conflict")
)

// tagged carries a caller-facing message alongside a sentinel.
type tagged struct {
	kind error
	msg  string
}

func (t *tagged) Error() string { return t.msg }
func (t *tagged) Unwrap() error { return t.kind }

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return &tagged{kind: ErrValidation, msg: strings.TrimSpace(msg)}
}

// NotFoundError tags an error as a missing record.
func NotFoundError(msg string) error {
	return &tagged{kind: ErrNotFound, msg: strings.TrimSpace(msg)}
}

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return &tagged{kind: ErrConflict, msg: strings.TrimSpace(msg)}
}

// MapError maps infrastructure/domain failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	var tag *tagged
	if errors.As(err, &tag) {
		switch tag.kind {
		case ErrValidation:
			return domainagg.NewError(domainagg.CodeInvalid, op, tag.msg, err)
		case ErrNotFound:
			return domainagg.NewError(domainagg.CodeNotFound, op, tag.msg, err)
		case ErrConflict:
			return domainagg.NewError(domainagg.CodeConflict, op, tag.msg, err)
		}
	}
	var verr *crops.ValidationError
	if errors.As(err, &verr) {
		return domainagg.NewError(domainagg.CodeInvalid, op, verr.Error(), err)
	}
	var dimErr *store.DimensionNotFoundError
	if errors.As(err, &dimErr) {
		return domainagg.NewError(domainagg.CodeNotFound, op, dimErr.Error(), err)
	}
	switch {
	case errors.Is(err, store.ErrMalformedID):
		return domainagg.NewError(domainagg.CodeInvalid, op, "invalid record id", err)
	case errors.Is(err, store.ErrRecordNotFound):
		return domainagg.NewError(domainagg.CodeNotFound, op, "Record not found", err)
	case errors.Is(err, store.ErrDuplicateKey):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mongo.ErrClientDisconnected):
		return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case code == "23503":
			return domainagg.Wrap(domainagg.CodeInvalid, op, err) // foreign_key_violation
		case strings.HasPrefix(code, "08"), code == "57P01", code == "57P03", code == "53300":
			return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err) // connection_exception/shutdown/too_many_connections
		}
	}
	var pgConnErr *pgconn.ConnectError
	if errors.As(err, &pgConnErr) {
		return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err)
	}

	if mongo.IsDuplicateKeyError(err) {
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "already exists"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return domainagg.Wrap(domainagg.CodeInvalid, op, err)
	case strings.Contains(msg, "server selection error"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "i/o timeout"):
		return domainagg.Wrap(domainagg.CodeStorageUnavailable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// withMessage replaces the caller-facing message of an error carrying code.
func withMessage(err error, code domainagg.ErrorCode, msg string) error {
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) || aggErr.Code != code {
		return err
	}
	return domainagg.NewError(code, aggErr.Op, msg, aggErr.Cause)
}
