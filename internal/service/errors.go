package service

import "errors"

// 商品
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidInventory   = errors.New("invalid inventory count")
	ErrInvalidProductData = errors.New("invalid product data")
	ErrSlugExists         = errors.New("slug already exists")
	ErrProductStatus      = errors.New("invalid product status")
	ErrImageNotFound      = errors.New("product image not found")
	ErrImageInvalid       = errors.New("invalid product image")
)

// 购物车
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrCartItemNotFound = errors.New("cart item not found")
)

// 结算与订单
var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrPaymentRejected       = errors.New("payment rejected")
	ErrIllegalTransition     = errors.New("illegal order status transition")
	ErrInternalCommitFailure = errors.New("internal commit failure")
	ErrOrderNotFound         = errors.New("order not found")
	ErrShippingAddress       = errors.New("shipping address required")
	ErrCheckoutInProgress    = errors.New("checkout already in progress")
)

// 推广
var (
	ErrAffiliateNotFound      = errors.New("affiliate not found")
	ErrAffiliateExists        = errors.New("affiliate profile already exists")
	ErrAffiliateDisabled      = errors.New("affiliate disabled")
	ErrAffiliateStatus        = errors.New("invalid affiliate status")
	ErrAffiliateLinkNotFound  = errors.New("affiliate link not found")
	ErrInvalidCommissionRate  = errors.New("invalid commission rate")
	ErrAffiliateCodeExhausted = errors.New("affiliate code generation failed")
)

// 账号与权限
var (
	ErrEmailExists          = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrWeakPassword         = errors.New("password too short")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserDisabled         = errors.New("user disabled")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidUserStatus    = errors.New("invalid user status")
	ErrSellerProfileInvalid = errors.New("business name required")
	ErrInvalidToken         = errors.New("invalid token")
	ErrForbidden            = errors.New("forbidden")
	ErrSellerProfileAbsent  = errors.New("seller profile not found")
)
