package release

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oshokin/update-server/internal/config"
)

// NewDBConnection opens the database named by settings and migrates the schema.
func NewDBConnection(settings config.DatabaseSettings) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch settings.Dialect {
	case config.DialectPostgres:
		dialector = postgres.Open(settings.DSN)
	case config.DialectSQLite:
		dialector = sqlite.Open(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", settings.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", settings.Dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get raw DB connection: %w", err)
	}

	switch {
	case settings.Dialect == config.DialectSQLite:
		// SQLite allows a single writer; in-memory databases exist per connection.
		sqlDB.SetMaxOpenConns(1)
	case settings.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	}

	if err = Migrate(db); err != nil {
		_ = sqlDB.Close()

		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&applicationModel{}, &channelModel{}, &releaseModel{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	return nil
}

// CloseDB closes the database connection.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}

	if err = sqlDB.Close(); err != nil {
		return fmt.Errorf("close database connection: %w", err)
	}

	return nil
}
