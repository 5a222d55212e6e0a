package database

import (
	"fmt"
	"time"

	"rental-portal/internal/config"
	"rental-portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormDB wraps the shared *gorm.DB handle
type GormDB struct {
	db *gorm.DB
}

// Open connects to the database selected by cfg.Type
func Open(cfg config.DatabaseConfig) (*GormDB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	switch cfg.Type {
	case "mysql":
		return NewMySQL(cfg.MySQL, gcfg)
	case "postgres":
		return NewPostgres(cfg.Postgres, gcfg)
	case "sqlite", "":
		return NewSQLite(cfg.SQLite.Path, gcfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

// Close closes the connection pool
func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Identity{},
		&models.TenantProfile{},
		&models.LandlordProfile{},
		&models.Property{},
		&models.Apartment{},
		&models.ApartmentMedia{},
		&models.Booking{},
		&models.OccupancySnapshot{},
		&models.BookingDeleteLog{},
	)
}

// ForUpdate adds a row lock to the query. SQLite has no row locks; its single
// writer already serializes the transaction.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
