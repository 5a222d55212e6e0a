package database

import (
	"database/sql"
	"fmt"

	"rental-portal/internal/config"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresDSN builds a lib/pq key/value connection string
func postgresDSN(cfg config.PostgresConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslmode)
}

// NewPostgres opens the connection with lib/pq and hands it to the GORM
// postgres dialector.
func NewPostgres(cfg config.PostgresConfig, gcfg *gorm.Config) (*GormDB, error) {
	conn, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), gcfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}
	return &GormDB{db: db}, nil
}
