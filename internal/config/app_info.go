package config

import (
	"runtime"
	"time"
)

// AppInfo 应用信息配置
type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
	Environment string `json:"environment"`
}

// DefaultAppInfo 返回默认的应用信息
func DefaultAppInfo() *AppInfo {
	return &AppInfo{
		Name:        "sqlroute-api",
		Version:     "0.1.0",
		BuildTime:   time.Now().UTC().Format(time.RFC3339),
		GoVersion:   runtime.Version(),
		Environment: "development",
	}
}

// GetBuildInfo 获取构建信息
func (a *AppInfo) GetBuildInfo() map[string]any {
	return map[string]any{
		"name":        a.Name,
		"version":     a.Version,
		"build_time":  a.BuildTime,
		"go_version":  a.GoVersion,
		"environment": a.Environment,
	}
}
