package storage

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/dirk.krummacker/membership-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// slotRecord is the row of the slots table as seen by the OR mapper.
type slotRecord struct {
	Name  string `gorm:"primaryKey;size:191"`
	Value string `gorm:"type:text;not null"`
}

func (slotRecord) TableName() string {
	return "slots"
}

// GormSlot keeps the value in the slots table of any database gorm can talk to. Production
// uses PostgreSQL; the tests use SQLite.
type GormSlot struct {
	db  *gorm.DB
	key string
}

// OpenPostgres initializes the object relational mapper and the database connection.
func OpenPostgres(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}
	return db, nil
}

// NewGormSlot returns the slot for key and makes sure that the table exists.
func NewGormSlot(db *gorm.DB, key string) (*GormSlot, error) {
	if err := db.AutoMigrate(&slotRecord{}); err != nil {
		return nil, fmt.Errorf("could not migrate slots table: %w", err)
	}
	return &GormSlot{db: db, key: key}, nil
}

func (s *GormSlot) Read(ctx context.Context) ([]byte, error) {
	var record slotRecord
	err := s.db.WithContext(ctx).Where("name = ?", s.key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read slot %s: %w", s.key, err)
	}
	return []byte(record.Value), nil
}

func (s *GormSlot) Write(ctx context.Context, data []byte) error {
	record := slotRecord{Name: s.key, Value: string(data)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("could not write slot %s: %w", s.key, err)
	}
	return nil
}

// Close releases the database connection.
func (s *GormSlot) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
