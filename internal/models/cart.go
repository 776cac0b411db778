package models

import "time"

// Cart 购物车，每个用户一条，首次加购时创建
// 结算期间由 CheckoutClaimedUntil 占用，同一购物车同时只能有一笔结算
type Cart struct {
	ID                   uint       `gorm:"primarykey" json:"id"`
	UserID               uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	CheckoutOrderID      *uint      `gorm:"index" json:"checkout_order_id,omitempty"`
	CheckoutClaimedUntil *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}
