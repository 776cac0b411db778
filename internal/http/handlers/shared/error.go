package shared

import (
	"errors"

	"github.com/Bmariten/afripulse-v2-sub001/internal/http/response"
	"github.com/Bmariten/afripulse-v2-sub001/internal/logger"
	"github.com/Bmariten/afripulse-v2-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.With("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	RespondAppError(c, response.WrapError(code, msg, err))
}

// RespondAppError 写出 AppError；内部原因只进日志
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr == nil {
		return
	}
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"retryable", appErr.Retryable,
			"error", appErr.Err,
		)
	}
	appErr.Write(c)
}

// MappedError 业务错误到接口错误码的映射；Retryable 提示客户端可原样重试
type MappedError struct {
	Target    error
	Code      int
	Msg       string
	Retryable bool
}

// DomainErrorRules 领域错误映射表；未命中的错误按内部错误处理并记录日志
var DomainErrorRules = []MappedError{
	// 商品
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Msg: "product not found"},
	{Target: service.ErrProductUnavailable, Code: response.CodeConflict, Msg: "product unavailable"},
	{Target: service.ErrInsufficientStock, Code: response.CodeConflict, Msg: "insufficient stock"},
	{Target: service.ErrInvalidPrice, Code: response.CodeBadRequest, Msg: "invalid price"},
	{Target: service.ErrInvalidInventory, Code: response.CodeBadRequest, Msg: "invalid inventory count"},
	{Target: service.ErrInvalidProductData, Code: response.CodeBadRequest, Msg: "invalid product data"},
	{Target: service.ErrSlugExists, Code: response.CodeConflict, Msg: "slug already exists"},
	{Target: service.ErrProductStatus, Code: response.CodeBadRequest, Msg: "invalid product status"},
	{Target: service.ErrImageNotFound, Code: response.CodeNotFound, Msg: "product image not found"},
	{Target: service.ErrImageInvalid, Code: response.CodeBadRequest, Msg: "invalid product image"},
	// 购物车
	{Target: service.ErrInvalidQuantity, Code: response.CodeBadRequest, Msg: "invalid quantity"},
	{Target: service.ErrCartItemNotFound, Code: response.CodeNotFound, Msg: "cart item not found"},
	// 结算与订单
	{Target: service.ErrEmptyCart, Code: response.CodeBadRequest, Msg: "cart is empty"},
	{Target: service.ErrCheckoutInProgress, Code: response.CodeConflict, Msg: "checkout already in progress", Retryable: true},
	{Target: service.ErrShippingAddress, Code: response.CodeBadRequest, Msg: "shipping address required"},
	{Target: service.ErrPaymentRejected, Code: response.CodePaymentRejected, Msg: "payment rejected"},
	{Target: service.ErrIllegalTransition, Code: response.CodeConflict, Msg: "illegal order status transition"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Msg: "order not found"},
	{Target: service.ErrInternalCommitFailure, Code: response.CodeInternal, Msg: "checkout failed, please retry", Retryable: true},
	// 推广
	{Target: service.ErrAffiliateNotFound, Code: response.CodeNotFound, Msg: "affiliate not found"},
	{Target: service.ErrAffiliateExists, Code: response.CodeConflict, Msg: "affiliate profile already exists"},
	{Target: service.ErrAffiliateDisabled, Code: response.CodeForbidden, Msg: "affiliate disabled"},
	{Target: service.ErrAffiliateStatus, Code: response.CodeBadRequest, Msg: "invalid affiliate status"},
	{Target: service.ErrAffiliateLinkNotFound, Code: response.CodeNotFound, Msg: "affiliate link not found"},
	{Target: service.ErrInvalidCommissionRate, Code: response.CodeBadRequest, Msg: "invalid commission rate"},
	// 账号
	{Target: service.ErrEmailExists, Code: response.CodeConflict, Msg: "email already registered"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Msg: "invalid email"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Msg: "password does not meet policy"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Msg: "invalid credentials"},
	{Target: service.ErrUserDisabled, Code: response.CodeUnauthorized, Msg: "user disabled"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Msg: "user not found"},
	{Target: service.ErrInvalidRole, Code: response.CodeBadRequest, Msg: "invalid role"},
	{Target: service.ErrInvalidUserStatus, Code: response.CodeBadRequest, Msg: "invalid user status"},
	{Target: service.ErrSellerProfileInvalid, Code: response.CodeBadRequest, Msg: "business name required"},
	{Target: service.ErrSellerProfileAbsent, Code: response.CodeForbidden, Msg: "seller profile not found"},
	{Target: service.ErrInvalidToken, Code: response.CodeUnauthorized, Msg: "invalid token"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Msg: "forbidden"},
}

// MapError 按映射表把业务错误转换为 AppError，未命中时为内部错误
func MapError(err error, fallbackMsg string) *response.AppError {
	if appErr, ok := response.AsAppError(err); ok {
		return appErr
	}
	for _, rule := range DomainErrorRules {
		if errors.Is(err, rule.Target) {
			appErr := response.WrapError(rule.Code, rule.Msg, nil)
			if rule.Retryable {
				appErr = appErr.MarkRetryable()
			}
			// 提交失败时订单可能已落库，保留原因以便对账
			if rule.Code == response.CodeInternal {
				appErr.Err = err
			}
			return appErr
		}
	}
	return response.WrapError(response.CodeInternal, fallbackMsg, err)
}

// RespondWithMappedError 按映射表返回业务错误
func RespondWithMappedError(c *gin.Context, err error, fallbackMsg string) {
	RespondAppError(c, MapError(err, fallbackMsg))
}
