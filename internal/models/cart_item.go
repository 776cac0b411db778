package models

import "time"

// CartItem 购物车项；推广归因在加购时写入且之后不再覆盖
type CartItem struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                                               // 主键
	CartID             uint       `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`    // 购物车ID
	ProductID          uint       `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"` // 商品ID
	Quantity           int        `gorm:"not null" json:"quantity"`                                           // 数量
	AffiliateProfileID *uint      `gorm:"index" json:"affiliate_profile_id,omitempty"`                        // 归因推广用户
	AffiliateLinkID    *uint      `json:"affiliate_link_id,omitempty"`                                        // 归因推广链接
	AttributedAt       *time.Time `json:"attributed_at,omitempty"`                                            // 归因时间
	CreatedAt          time.Time  `json:"created_at"`                                                         // 创建时间
	UpdatedAt          time.Time  `gorm:"index" json:"updated_at"`                                            // 更新时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
