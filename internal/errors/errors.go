package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown            ErrorCode = 1000
	ErrInvalidParam       ErrorCode = 1001
	ErrNotFound           ErrorCode = 1002
	ErrPermissionDenied   ErrorCode = 1003
	ErrUnauthenticated    ErrorCode = 1004
	ErrFailedPrecondition ErrorCode = 1005
	ErrConflict           ErrorCode = 1006

	// 房间错误 (2000-2999)
	ErrRoomNotWaiting  ErrorCode = 2000
	ErrRoomFull        ErrorCode = 2001
	ErrAlreadyInRoom   ErrorCode = 2002
	ErrNotInRoom       ErrorCode = 2003
	ErrNotHost         ErrorCode = 2004
	ErrNotEnoughPlayer ErrorCode = 2005
	ErrPlayerNotReady  ErrorCode = 2006

	// 游戏错误 (3000-3999)
	ErrGameAlreadyStarted ErrorCode = 3000
	ErrWrongGamePhase     ErrorCode = 3001
	ErrNotDecisionPlayer  ErrorCode = 3002
	ErrInvalidDecision    ErrorCode = 3003

	// 数据库错误 (5000-5999)
	ErrDatabaseQuery   ErrorCode = 5000
	ErrDatabaseInsert  ErrorCode = 5001
	ErrDatabaseUpdate  ErrorCode = 5002
	ErrDatabaseDelete  ErrorCode = 5003
	ErrTransaction     ErrorCode = 5004
	ErrDataIntegrity   ErrorCode = 5005
	ErrDatabaseConnect ErrorCode = 5006

	// 安全错误 (7000-7999)
	ErrAuthentication ErrorCode = 7000
	ErrTokenExpired   ErrorCode = 7001
	ErrTokenInvalid   ErrorCode = 7002
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:            "未知错误",
	ErrInvalidParam:       "无效的参数",
	ErrNotFound:           "资源未找到",
	ErrPermissionDenied:   "权限不足",
	ErrUnauthenticated:    "未认证的请求",
	ErrFailedPrecondition: "当前状态不允许该操作",
	ErrConflict:           "并发冲突，请重试",

	// 房间错误
	ErrRoomNotWaiting:  "房间不在等待状态",
	ErrRoomFull:        "房间已满",
	ErrAlreadyInRoom:   "已在该房间中",
	ErrNotInRoom:       "不在该房间中",
	ErrNotHost:         "只有房主可以执行该操作",
	ErrNotEnoughPlayer: "玩家人数不足",
	ErrPlayerNotReady:  "还有玩家未准备",

	// 游戏错误
	ErrGameAlreadyStarted: "游戏已经开始",
	ErrWrongGamePhase:     "游戏阶段不允许该操作",
	ErrNotDecisionPlayer:  "只有判定玩家可以提交判定",
	ErrInvalidDecision:    "判定必须是 TRUTH 或 LIE",

	// 数据库错误
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",
	ErrDatabaseDelete:  "数据库删除失败",
	ErrTransaction:     "事务处理失败",
	ErrDataIntegrity:   "数据完整性错误",
	ErrDatabaseConnect: "数据库连接失败",

	// 安全错误
	ErrAuthentication: "认证失败",
	ErrTokenExpired:   "令牌已过期",
	ErrTokenInvalid:   "无效的令牌",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode `json:"code"`    // 错误码
	Message string    `json:"message"` // 错误消息
	Details string    `json:"details"` // 详细信息
	Cause   error     `json:"-"`       // 原始错误
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrInvalidParam || e.Code == ErrInvalidDecision:
		return 400 // Bad Request
	case e.Code == ErrUnauthenticated || (e.Code >= 7000 && e.Code <= 7002):
		return 401 // Unauthorized
	case e.Code == ErrPermissionDenied || e.Code == ErrNotHost || e.Code == ErrNotDecisionPlayer:
		return 403 // Forbidden
	case e.Code == ErrNotFound:
		return 404 // Not Found
	case e.Code == ErrConflict:
		return 409 // Conflict
	case e.Code == ErrFailedPrecondition ||
		(e.Code >= 2000 && e.Code <= 2999) ||
		(e.Code >= 3000 && e.Code <= 3999):
		return 400 // 前置条件不满足，按调用方错误处理
	case e.Code >= 5000 && e.Code <= 5999:
		return 503 // Service Unavailable
	default:
		return 500 // Internal Server Error
	}
}

// IsRetryable 判断错误是否可重试
// 乐观并发更新失败以及存储层瞬时故障可由调用方重发请求。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrConflict,
		ErrDatabaseQuery,
		ErrDatabaseInsert,
		ErrDatabaseUpdate,
		ErrDatabaseDelete,
		ErrTransaction:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		Retryable: IsRetryable(err),
		Timestamp: time.Now().Unix(),
	}
}
