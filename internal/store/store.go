package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/tokenfsm/config"
	"github.com/BaSui01/tokenfsm/types"
)

// =============================================================================
// 🗄️ 解码历史存储
// =============================================================================

// Store 持久化解码运行记录，底层为 GORM 连接池
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Dialector 根据驱动名与 DSN 选择 GORM 方言
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, types.Errorf(types.ErrInvalidRequest, "unsupported history driver %q", driver)
	}
}

// Open 按配置打开数据库、设置连接池并迁移表结构
func Open(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "open history database").WithCause(err)
	}

	s, err := New(db, logger)
	if err != nil {
		return nil, err
	}

	// SQLite 单写者；内存库在多连接下各自独立
	if strings.EqualFold(cfg.Driver, "sqlite") || cfg.Driver == "" {
		s.sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			s.sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			s.sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		s.sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.logger.Info("history store opened",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return s, nil
}

// New 包装一个已打开的 GORM 实例，不做迁移
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "get sql.DB").WithCause(err)
	}
	return &Store{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "history_store")),
	}, nil
}

// Migrate 创建或更新 decode_runs 表
func (s *Store) Migrate(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return types.NewError(types.ErrStorage, "migrate history schema").WithCause(err)
	}
	return nil
}

// DB 返回 GORM 实例
func (s *Store) DB() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return types.NewError(types.ErrStorage, "ping history database").WithCause(err)
	}
	return nil
}

// PoolStats 连接池统计信息
type PoolStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// Stats 返回连接池统计
func (s *Store) Stats() PoolStats {
	st := s.sqlDB.Stats()
	return PoolStats{
		MaxOpenConnections: st.MaxOpenConnections,
		OpenConnections:    st.OpenConnections,
		InUse:              st.InUse,
		Idle:               st.Idle,
		WaitCount:          st.WaitCount,
		WaitDuration:       st.WaitDuration,
	}
}

// Close 关闭连接池，重复调用无副作用
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing history store")
	return s.sqlDB.Close()
}

var errClosed = types.NewError(types.ErrStorage, "history store is closed")

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	return s.db.WithContext(ctx), nil
}

func storageErr(op string, err error) error {
	return types.NewError(types.ErrStorage, fmt.Sprintf("%s failed", op)).WithCause(err)
}
