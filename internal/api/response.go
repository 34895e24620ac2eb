package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// respondError 按错误码写出错误响应，非应用错误按500处理
func respondError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError || errors.IsCritical(appErr) {
		logger.LogError(appErr, "请求处理失败",
			zap.String("path", c.FullPath()),
			zap.Bool("critical", errors.IsCritical(appErr)),
			zap.String("stack", appErr.GetStack()))
	}
	c.JSON(status, ErrorResponse{
		Code:    int(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// badRequest 请求参数错误
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    int(errors.ErrInvalidParam),
		Message: "请求参数错误",
		Details: err.Error(),
	})
}
