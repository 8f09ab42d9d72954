// 语义路由HTTP API处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqlroute-go/internal/metrics"
	"sqlroute-go/internal/routing"
)

// RouterInterface 语义路由器接口定义
type RouterInterface interface {
	Classify(ctx context.Context, query string) (*routing.RouteMatch, error)
}

// RouteHandler 语义路由HTTP处理器
type RouteHandler struct {
	router  RouterInterface
	metrics *metrics.PrometheusMetrics
	logger  *zap.Logger
}

// NewRouteHandler 创建路由处理器实例
func NewRouteHandler(router RouterInterface, pm *metrics.PrometheusMetrics, logger *zap.Logger) *RouteHandler {
	return &RouteHandler{
		router:  router,
		metrics: pm,
		logger:  logger,
	}
}

// RouteRequest 路由分类API请求结构
type RouteRequest struct {
	Query string `json:"query" binding:"required,min=1,max=1000"`
}

// RouteResponse 路由分类API响应结构
// route为null表示没有路由达到相似度阈值
type RouteResponse struct {
	Query string   `json:"query"`
	Route *string  `json:"route"`
	Score *float64 `json:"score,omitempty"`
}

// Classify 处理单条查询的路由分类请求
func (h *RouteHandler) Classify(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid_request",
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	match, err := h.router.Classify(c.Request.Context(), req.Query)
	if err != nil {
		h.logger.Error("route classification failed",
			zap.String("query", req.Query),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     "embedding_request_failed",
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	response := RouteResponse{Query: req.Query}
	if match != nil {
		response.Route = &match.Name
		response.Score = &match.Score
		h.metrics.RecordRouteDecision(match.Name)
	} else {
		h.metrics.RecordRouteDecision("")
	}

	c.JSON(http.StatusOK, response)
}
