package response

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// AppError 接口层错误：业务码与对外消息，Err 为不返回给调用方的内部原因
type AppError struct {
	Code      int
	Message   string
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 构造 AppError
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MarkRetryable 标记为可重试，响应 data 中带 retryable
func (e *AppError) MarkRetryable() *AppError {
	e.Retryable = true
	return e
}

// Write 以统一信封写出，内部原因不外泄
func (e *AppError) Write(c *gin.Context) {
	if e.Retryable {
		ErrorWithData(c, e.Code, e.Message, gin.H{"retryable": true})
		return
	}
	Error(c, e.Code, e.Message)
}

// AsAppError 从错误链中取出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
