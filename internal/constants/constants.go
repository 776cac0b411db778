package constants

// 用户角色常量（创建后不可变更）
const (
	RoleAdmin     = "admin"
	RoleSeller    = "seller"
	RoleAffiliate = "affiliate"
	RoleCustomer  = "customer"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 商品状态常量
const (
	ProductStatusPending  = "pending"
	ProductStatusActive   = "active"
	ProductStatusFlagged  = "flagged"
	ProductStatusInactive = "inactive"
)

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// 订单取消原因
const (
	CancelReasonCustomer           = "customer_request"
	CancelReasonAdmin              = "admin"
	CancelReasonPaymentRejected    = "payment_rejected"
	CancelReasonReservationExpired = "reservation_expired"
)

// 推广用户状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// 推广佣金状态常量
const (
	AffiliateCommissionStatusPendingConfirm = "pending_confirm"
	AffiliateCommissionStatusAvailable      = "available"
	AffiliateCommissionStatusRejected       = "rejected"
)

// 订单事件类型
const (
	OrderEventCreated   = "order.created"
	OrderEventPaid      = "order.paid"
	OrderEventShipped   = "order.shipped"
	OrderEventDelivered = "order.delivered"
	OrderEventCancelled = "order.cancelled"
)

// 支付网关类型
const (
	PaymentProviderOffline  = "offline"
	PaymentProviderSandbox  = "sandbox"
	PaymentProviderDeferred = "deferred"
)

// DefaultCommissionRate 默认佣金比例（百分比）
const DefaultCommissionRate = "10.00"

// AffiliateCodeLength 推广码长度
const AffiliateCodeLength = 8

// 队列名称
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// 异步任务类型
const (
	TaskOrderReservationExpire = "order:reservation_expire"
	TaskOrderEventPublish      = "order:event_publish"
)
