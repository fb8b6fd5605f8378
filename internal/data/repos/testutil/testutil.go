package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/agroyield-backend/internal/data/db"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
)

var sqliteSeq atomic.Int64

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// SQLite opens a private in-memory database with the full schema migrated.
// Foreign keys are enforced so referential checks behave like Postgres.
func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", name, sqliteSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return gdb
}

// Postgres connects to TEST_POSTGRES_DSN, skipping when it is unset. Tables
// are truncated before returning.
func Postgres(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("set TEST_POSTGRES_DSN to run Postgres integration tests")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open postgres: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate postgres: %v", err)
	}
	if err := gdb.Exec("TRUNCATE audit_log, crop_yield_records, states, crops, seasons CASCADE").Error; err != nil {
		tb.Fatalf("truncate: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		tb.Cleanup(func() { _ = sqlDB.Close() })
	}
	return gdb
}

// Mongo connects to TEST_MONGO_URI and returns a fresh database that is
// dropped on cleanup. Transactions need a replica set.
func Mongo(tb testing.TB) *mongo.Database {
	tb.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		tb.Skip("set TEST_MONGO_URI to run MongoDB integration tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		tb.Fatalf("connect mongo: %v", err)
	}
	database := client.Database(fmt.Sprintf("agro_yield_test_%d", time.Now().UnixNano()))
	if err := db.EnsureMongoIndexes(ctx, database); err != nil {
		tb.Fatalf("mongo indexes: %v", err)
	}
	tb.Cleanup(func() {
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = database.Drop(c)
		_ = client.Disconnect(c)
	})
	return database
}
