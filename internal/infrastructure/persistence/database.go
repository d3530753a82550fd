package persistence

import (
	"fmt"
	"time"

	"github.com/Ayash13/tulip-sub000/internal/infrastructure/config"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/logger"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/persistence/models"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	tracing telemetry.DBTracingConfig
}

// WithTracing registers otelgorm on the opened connection. DBName defaults
// to the configured database name.
func WithTracing(cfg telemetry.DBTracingConfig) DatabaseOption {
	return func(o *databaseOptions) {
		o.tracing = cfg
	}
}

// NewDatabase opens the database selected by cfg.Driver (postgres or sqlite)
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger, opts ...DatabaseOption) (*Database, error) {
	return NewDatabaseWithLogLevel(cfg, log, gormlogger.Warn, opts...)
}

// NewDatabaseWithLogLevel opens the database with a custom GORM log level
func NewDatabaseWithLogLevel(cfg *config.DatabaseConfig, log *zap.Logger, level gormlogger.LogLevel, opts ...DatabaseOption) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var options databaseOptions
	for _, opt := range opts {
		opt(&options)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log, level, logger.WithIgnoreRecordNotFoundError(true)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer at a time; concurrent writers would fail with SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{DB: db}
	if err := database.EnableTracing(dbName(cfg), options.tracing, log); err != nil {
		return nil, err
	}
	return database, nil
}

// EnableTracing turns every statement into a span when cfg.Enabled is set
func (d *Database) EnableTracing(name string, cfg telemetry.DBTracingConfig, log *zap.Logger) error {
	if cfg.DBName == "" {
		cfg.DBName = name
	}
	if err := telemetry.RegisterDBTracing(d.DB, cfg, log); err != nil {
		return fmt.Errorf("failed to enable database tracing: %w", err)
	}
	return nil
}

func dbName(cfg *config.DatabaseConfig) string {
	if cfg.Driver == "sqlite" {
		return cfg.Path
	}
	return cfg.DBName
}

// AutoMigrate creates or updates the letter tables
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate letter tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns database connection pool statistics and an error if unable to retrieve
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}
