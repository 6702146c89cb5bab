package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"scalpbot/internal/store"
	"scalpbot/internal/store/model"
)

// pureGoDriver is the database/sql name registered by modernc.org/sqlite.
const pureGoDriver = "sqlite"

var ErrTradeNotFound = errors.New("trade not found")

type JournalStore struct {
	db *gorm.DB
}

var _ store.TradeJournal = (*JournalStore)(nil)

func NewJournalStore(path string) (*JournalStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: pureGoDriver, DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewJournalStoreFromDB(db)
}

func NewJournalStoreFromDB(db *gorm.DB) (*JournalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&model.TradeModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &JournalStore{db: db}, nil
}

func (s *JournalStore) RecordOpen(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil {
		return fmt.Errorf("trade cannot be nil")
	}
	if trade.Status == 0 {
		trade.Status = model.TradeStatusOpen
	}
	if len(trade.Orders) == 0 {
		trade.Orders = datatypes.JSON("[]")
	}
	return s.db.WithContext(ctx).Create(trade).Error
}

func (s *JournalStore) RecordClose(ctx context.Context, tradeID string, c model.TradeClose) error {
	closedAt := c.ClosedAt
	res := s.db.WithContext(ctx).
		Model(&model.TradeModel{}).
		Where("trade_id = ?", tradeID).
		Updates(map[string]any{
			"exit_price":   c.ExitPrice,
			"pnl":          c.PnL,
			"close_reason": c.Reason,
			"status":       model.TradeStatusClosed,
			"closed_at":    &closedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}
	return nil
}

func (s *JournalStore) ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.TradeModel
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *JournalStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
