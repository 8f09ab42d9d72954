package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"sqlroute-go/internal/config"
)

// Manager SQLite数据库连接管理器
// 每次操作独立打开和关闭连接，保证错误路径上不泄漏连接
type Manager struct {
	config *config.SQLiteConfig // 数据库配置
	logger *zap.Logger          // 结构化日志器
}

// NewManager 创建新的数据库管理器
func NewManager(dbConfig *config.SQLiteConfig, logger *zap.Logger) (*Manager, error) {
	if dbConfig == nil {
		return nil, fmt.Errorf("数据库配置不能为空")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := dbConfig.Validate(); err != nil {
		return nil, fmt.Errorf("数据库配置无效: %w", err)
	}

	logger.Info("初始化SQLite数据库管理器",
		zap.String("path", dbConfig.Path),
		zap.Duration("busy_timeout", dbConfig.BusyTimeout),
		zap.Duration("query_timeout", dbConfig.QueryTimeout),
	)

	return &Manager{
		config: dbConfig,
		logger: logger,
	}, nil
}

// WithConn 在一个作用域内的短连接上执行fn
// 连接在fn返回后无条件关闭，fn不得持有*sql.DB的引用
func (m *Manager) WithConn(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open("sqlite3", m.config.DSN())
	if err != nil {
		m.logger.Error("打开数据库文件失败",
			zap.String("path", m.config.Path),
			zap.Error(err))
		return fmt.Errorf("打开数据库文件失败: %w", err)
	}
	defer db.Close()

	// 单连接即可，避免SQLite文件锁竞争
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("数据库连接验证失败: %w", err)
	}

	return fn(db)
}

// HealthCheck 执行数据库健康检查
// 打开一个短连接并执行简单查询验证数据库文件可用
func (m *Manager) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.WithConn(checkCtx, func(db *sql.DB) error {
		var result int
		if err := db.QueryRowContext(checkCtx, "SELECT 1").Scan(&result); err != nil {
			return err
		}
		if result != 1 {
			return fmt.Errorf("健康检查返回异常结果: %d", result)
		}
		return nil
	})
	if err != nil {
		m.logger.Error("数据库健康检查失败", zap.Error(err))
		return fmt.Errorf("数据库健康检查失败: %w", err)
	}

	return nil
}

// QueryTimeout 返回配置的查询超时时间
func (m *Manager) QueryTimeout() time.Duration {
	return m.config.QueryTimeout
}
