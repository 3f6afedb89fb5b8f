package factory

import (
	"fmt"

	"go.uber.org/zap"

	"mailsign/backend/internal/config"
	"mailsign/backend/internal/storage"
	"mailsign/backend/internal/storage/hybrid"
	"mailsign/backend/internal/storage/memory"
	"mailsign/backend/internal/storage/postgres"
	"mailsign/backend/internal/storage/redis"
)

// OpenDatabase 按配置打开 gorm 存储并应用连接池参数
func OpenDatabase(cfg config.DatabaseConfig) (*postgres.Store, error) {
	var (
		db  *postgres.Store
		err error
	)
	switch cfg.Type {
	case "mysql":
		db, err = postgres.NewMySQLStore(cfg.DSN)
	case "postgres", "postgresql":
		db, err = postgres.NewStore(cfg.DSN)
	case "sqlite":
		db, err = postgres.NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres, sqlite)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := db.SetPool(cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open 根据配置选择存储：
//   - 未配置数据库时使用内存存储（开发环境）
//   - 配置数据库但未配置 Redis 时直接使用数据库
//   - 两者都配置时使用混合存储
func Open(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	db, err := OpenDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Redis.Address == "" {
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
		return db, nil
	}

	cache, err := redis.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	log.Info("using hybrid storage",
		zap.String("type", cfg.Database.Type),
		zap.String("redis_address", cfg.Redis.Address),
	)
	return hybrid.NewStore(db, cache, cfg.Redis.CacheTTL, log), nil
}
