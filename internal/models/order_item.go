package models

import "time"

// OrderItem 订单项；名称、单价与佣金均为下单时快照
type OrderItem struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                           // 主键
	OrderID          uint      `gorm:"index;not null" json:"order_id"`                                 // 订单ID
	ProductID        *uint     `gorm:"index" json:"product_id,omitempty"`                              // 商品ID（商品删除后置空）
	SellerID         uint      `gorm:"index;not null" json:"seller_id"`                                // 卖家ID
	ProductName      string    `gorm:"type:varchar(200);not null" json:"product_name"`                 // 商品名称快照
	PricePerUnit     Money     `gorm:"type:decimal(20,2);not null" json:"price_per_unit"`              // 单价快照
	Quantity         int       `gorm:"not null" json:"quantity"`                                       // 数量
	Subtotal         Money     `gorm:"type:decimal(20,2);not null" json:"subtotal"`                    // 小计
	AffiliateID      *uint     `gorm:"index" json:"affiliate_id,omitempty"`                            // 归因推广用户
	AffiliateLinkID  *uint     `json:"affiliate_link_id,omitempty"`                                    // 归因推广链接
	CommissionRate   Money     `gorm:"type:decimal(10,2);not null;default:0" json:"commission_rate"`   // 佣金比例快照
	CommissionAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"` // 佣金金额快照
	CreatedAt        time.Time `json:"created_at"`                                                     // 创建时间

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
