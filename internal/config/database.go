package config

import (
	"fmt"
	"os"
	"time"
)

// SQLiteConfig SQLite数据库配置
// 目标数据库是一个以路径寻址的数据库文件，每次操作独立开启连接
type SQLiteConfig struct {
	Path         string        `env:"SQLITE_DB_PATH" json:"path"`           // 数据库文件路径
	BusyTimeout  time.Duration `env:"SQLITE_BUSY_TIMEOUT" json:"busy_timeout"`  // 锁等待超时
	QueryTimeout time.Duration `env:"SQLITE_QUERY_TIMEOUT" json:"query_timeout"` // 查询超时
	ReadOnly     bool          `env:"SQLITE_READ_ONLY" json:"read_only"`    // 只读模式打开
}

// DefaultSQLiteConfig 创建默认SQLite配置
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/data.db",
		BusyTimeout:  5 * time.Second,
		QueryTimeout: 30 * time.Second,
	}
}

// LoadSQLiteConfigFromEnv 从环境变量加载SQLite配置
func LoadSQLiteConfigFromEnv() *SQLiteConfig {
	config := DefaultSQLiteConfig()

	if path := os.Getenv("SQLITE_DB_PATH"); path != "" {
		config.Path = path
	}

	return config
}

// DSN 构建go-sqlite3连接字符串
// 使用file: URI格式，携带锁等待超时参数
func (c *SQLiteConfig) DSN() string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", c.Path, c.BusyTimeout.Milliseconds())
	if c.ReadOnly {
		dsn += "&mode=ro"
	}
	return dsn
}

// Validate 验证配置有效性
func (c *SQLiteConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("数据库文件路径不能为空")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("查询超时必须大于0")
	}
	return nil
}
