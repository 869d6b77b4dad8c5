package database

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqlitePrefix selects the embedded sqlite driver, e.g. "sqlite://storage/pdfqa.db".
const SqlitePrefix = "sqlite://"

// PoolOptions sizes the connection pool. Zero values fall back to the defaults.
type PoolOptions struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

var DefaultPool = PoolOptions{
	MaxIdleConns:    5,
	MaxOpenConns:    15,
	ConnMaxLifetime: time.Hour,
}

func getLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // Don't include params in the SQL log
			Colorful:                  true,
		},
	)
}

func configureConnectionPool(db *gorm.DB, pool PoolOptions) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = DefaultPool.MaxIdleConns
	}
	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = DefaultPool.MaxOpenConns
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = DefaultPool.ConnMaxLifetime
	}

	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return nil
}

// NewGormDBFromDSN opens postgres, or sqlite for a "sqlite://" DSN. TranslateError is on so
// unique violations surface as gorm.ErrDuplicatedKey on both drivers.
func NewGormDBFromDSN(dsn string) (*gorm.DB, error) {
	return Open(dsn, DefaultPool)
}

func Open(dsn string, pool PoolOptions) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         getLogger(),
		TranslateError: true,
	}

	if path, ok := strings.CutPrefix(dsn, SqlitePrefix); ok {
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
		if err := configureConnectionPool(db, pool); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, pool); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate prepares extensions (postgres only) and auto-migrates the given models.
func Migrate(db *gorm.DB, enableVector bool, models ...interface{}) error {
	if enableVector && db.Dialector.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
			log.Printf("Warn: Failed to create vector extension: %v. Continuing...", err)
		}
	}
	return db.AutoMigrate(models...)
}
