package repository

import "time"

// ProductListFilter 商品列表过滤条件
type ProductListFilter struct {
	Page            int
	PageSize        int
	SellerID        uint
	Category        string
	Search          string
	Status          string
	OnlyPurchasable bool
}

// OrderListFilter 订单列表过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// SellerOrderItemFilter 卖家订单项过滤条件
type SellerOrderItemFilter struct {
	Page     int
	PageSize int
	SellerID uint
	Status   string
}

// AffiliateCommissionListFilter 佣金列表过滤条件
type AffiliateCommissionListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	OrderID            uint
	Status             string
}
