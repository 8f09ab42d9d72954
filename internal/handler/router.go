package handler

import (
	"github.com/gin-gonic/gin"

	"sqlroute-go/internal/metrics"
)

// RouterConfig 路由配置结构
type RouterConfig struct {
	NL2SQLHandler *NL2SQLHandler
	RouteHandler  *RouteHandler
	HealthHandler *HealthHandler
	Metrics       *metrics.PrometheusMetrics
}

// SetupRoutes 配置所有API路由
func SetupRoutes(r *gin.Engine, config *RouterConfig) {
	// 全局中间件，顺序按请求处理流程排列
	r.Use(gin.Recovery())
	if config.Metrics != nil {
		r.Use(config.Metrics.GinMiddleware())
	}

	// API版本管理
	v1 := r.Group("/api/v1")
	{
		v1.POST("/nl2sql", config.NL2SQLHandler.Convert) // 自然语言转SQL并执行
		v1.POST("/route", config.RouteHandler.Classify)  // 语义路由分类
	}

	// 健康检查和系统监控端点
	r.GET("/health", config.HealthHandler.Health)
	if config.Metrics != nil {
		r.GET("/metrics", gin.WrapH(config.Metrics.Handler()))
	}
}
