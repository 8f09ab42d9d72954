// 健康检查HTTP API处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqlroute-go/internal/config"
)

// HealthChecker 数据库健康检查接口定义
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查HTTP处理器
type HealthHandler struct {
	checker HealthChecker
	appInfo *config.AppInfo
	logger  *zap.Logger
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(checker HealthChecker, appInfo *config.AppInfo, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		appInfo: appInfo,
		logger:  logger,
	}
}

// Health 处理健康检查请求
// 数据库不可用时返回503
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	httpStatus := http.StatusOK
	databaseStatus := "up"

	if err := h.checker.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		databaseStatus = "down"
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"database":  databaseStatus,
		"app":       h.appInfo.GetBuildInfo(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
