package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
)

// SuccessResponse API成功响应结构
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// respondOK 输出成功响应
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &SuccessResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// respondCreated 输出创建成功响应
func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, &SuccessResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// respondError 把应用错误映射为HTTP响应
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr))
}

// respondBadRequest 参数绑定失败的快捷出口
func respondBadRequest(c *gin.Context, err error) {
	respondError(c, apperrors.New(apperrors.ErrInvalidParam).WithCause(err))
}
