package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/posdesk/posd/internal/upstream"
	"github.com/posdesk/posd/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// record is one wholesale snapshot row; the payload is the full JSON array.
type record struct {
	Key       string `gorm:"primaryKey;column:key"`
	Payload   []byte `gorm:"column:payload"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "snapshots" }

// SQLite is the on-disk Store used by a till machine.
type SQLite struct {
	conn *gorm.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (and migrates) the local snapshot database.
func NewSQLite(cfg config.SnapshotConfig) (*SQLite, error) {
	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	if err := conn.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrating snapshot db: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) SaveProducts(ctx context.Context, products []upstream.Product) error {
	return s.save(ctx, KeyProducts, products)
}

func (s *SQLite) LoadProducts(ctx context.Context) ([]upstream.Product, bool, error) {
	var products []upstream.Product
	found, err := s.load(ctx, KeyProducts, &products)
	return products, found, err
}

func (s *SQLite) SaveCart(ctx context.Context, items []upstream.CartItem) error {
	return s.save(ctx, KeyCart, items)
}

func (s *SQLite) LoadCart(ctx context.Context) ([]upstream.CartItem, bool, error) {
	var items []upstream.CartItem
	found, err := s.load(ctx, KeyCart, &items)
	return items, found, err
}

// Close releases the pooled connections.
func (s *SQLite) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLite) save(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", key, err)
	}

	row := record{Key: key, Payload: payload, UpdatedAt: time.Now()}
	err = s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("writing snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) load(ctx context.Context, key string, dest any) (bool, error) {
	var row record
	err := s.conn.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(row.Payload, dest); err != nil {
		return false, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	return true, nil
}
