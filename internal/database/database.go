package database

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "storesync/internal/logger"
	"storesync/internal/models"
)

type Database struct {
	DB *gorm.DB
}

type Options struct {
	// Driver selects the Postgres driver: "pgx" (default) or "pq".
	Driver   string
	LogLevel logger.LogLevel
	// Logger receives GORM's output. Defaults to an info-level logger on stdout.
	Logger *applog.Logger
}

func New(databaseURL string, opts Options) (*Database, error) {
	var db *gorm.DB
	var err error

	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	if opts.Logger == nil {
		opts.Logger = applog.New("info")
	}
	gormConfig := &gorm.Config{
		Logger: newGormLogger(opts.Logger, opts.LogLevel),
	}

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development and tests
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
		if err == nil {
			// One connection keeps in-memory databases shared.
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	} else {
		dialector := postgres.Open(databaseURL)
		if opts.Driver == "pq" {
			dialector = postgres.New(postgres.Config{
				DriverName: "postgres",
				DSN:        databaseURL,
			})
		}
		db, err = gorm.Open(dialector, gormConfig)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Migrate creates or updates the connector's own tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Connector{},
		&models.ConnectorWebhook{},
		&models.Customer{},
		&models.Address{},
		&models.Contact{},
		&models.IntegrationLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
