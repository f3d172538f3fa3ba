package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/membership-service/internal/config"
)

// SQLSlot keeps the value in a row of the slots table of a MySQL database. The table is created
// by the migration command, see scripts/database.sql.
type SQLSlot struct {
	db  *sqlx.DB
	key string

	// selectWhereName is a prepared statement for reading the value of a slot.
	selectWhereName *sqlx.Stmt

	// upsert is a prepared statement for creating or replacing the value of a slot.
	upsert *sqlx.Stmt
}

// CreateDatabase returns a MySQL database handle. The connection parameters are taken from
// the configuration, which in turn reads them from the environment.
func CreateDatabase(cfg config.Config) (*sql.DB, error) {
	sqlDB, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("could not open mysql: %w", err)
	}
	return sqlDB, nil
}

// NewSQLSlot wraps the specified sql database and prepares all statements. The database
// argument can be a real database for production use or a mock database within unit tests.
func NewSQLSlot(sqlDB *sql.DB, key string) (*SQLSlot, error) {
	var err error
	s := &SQLSlot{db: sqlx.NewDb(sqlDB, "mysql"), key: key}

	// Every mutation rewrites the slot, so the statements are prepared once.
	s.selectWhereName, err = s.db.Preparex(`
		SELECT value FROM slots WHERE name = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare select: %w", err)
	}
	s.upsert, err = s.db.Preparex(`
		INSERT INTO slots (name, value) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare upsert: %w", err)
	}
	return s, nil
}

func (s *SQLSlot) Read(ctx context.Context) ([]byte, error) {
	var value string
	err := s.selectWhereName.GetContext(ctx, &value, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read slot %s: %w", s.key, err)
	}
	return []byte(value), nil
}

func (s *SQLSlot) Write(ctx context.Context, data []byte) error {
	if _, err := s.upsert.ExecContext(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("could not write slot %s: %w", s.key, err)
	}
	return nil
}

// Close releases the prepared statements and the database connection.
func (s *SQLSlot) Close() error {
	s.selectWhereName.Close()
	s.upsert.Close()
	return s.db.Close()
}
