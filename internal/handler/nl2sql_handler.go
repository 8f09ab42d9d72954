// NL2SQL HTTP API处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqlroute-go/internal/service"
)

// ErrorResponse 统一的错误响应结构
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NL2SQLServiceInterface NL2SQL服务接口定义
type NL2SQLServiceInterface interface {
	ConvertAndRun(ctx context.Context, tableName, question string) (*service.ConvertResult, error)
}

// NL2SQLHandler NL2SQL HTTP处理器
type NL2SQLHandler struct {
	nl2sqlService NL2SQLServiceInterface
	logger        *zap.Logger
}

// NewNL2SQLHandler 创建NL2SQL处理器实例
func NewNL2SQLHandler(nl2sqlService NL2SQLServiceInterface, logger *zap.Logger) *NL2SQLHandler {
	return &NL2SQLHandler{
		nl2sqlService: nl2sqlService,
		logger:        logger,
	}
}

// NL2SQLRequest NL2SQL API请求结构
type NL2SQLRequest struct {
	Table string `json:"table" binding:"required,min=1,max=128"`
	Query string `json:"query" binding:"required,min=1,max=1000"`
}

// Convert 处理自然语言转SQL并执行的请求
// 模型回复格式错误返回200（可恢复状态，sql_present=false）；
// 传输层错误返回502
func (h *NL2SQLHandler) Convert(c *gin.Context) {
	var req NL2SQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid_request",
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	result, err := h.nl2sqlService.ConvertAndRun(c.Request.Context(), req.Table, req.Query)
	if err != nil {
		h.logger.Error("NL2SQL request failed",
			zap.String("table", req.Table),
			zap.String("query", req.Query),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:     "llm_request_failed",
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
