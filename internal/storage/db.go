package storage

import (
	"database/sql"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// New initializes the database connection and performs migrations.
func New(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SavedGame{}); err != nil {
		return nil, err
	}
	return db, nil
}

// NewFromConn wraps an existing *sql.DB handle (for example the one the
// Nakama runtime hands to modules) and performs migrations.
func NewFromConn(conn *sql.DB) (*gorm.DB, error) {
	if conn == nil {
		return nil, errors.New("storage: nil connection")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SavedGame{}); err != nil {
		return nil, err
	}
	return db, nil
}
