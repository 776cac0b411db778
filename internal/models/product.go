package models

import (
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                                                        // 主键
	SellerID       uint           `gorm:"not null;index" json:"seller_id"`                                                             // 卖家用户ID
	Name           string         `gorm:"type:varchar(200);not null" json:"name"`                                                      // 名称
	Slug           string         `gorm:"uniqueIndex;not null" json:"slug"`                                                            // 唯一标识
	Description    string         `gorm:"type:text" json:"description"`                                                                // 描述
	Category       string         `gorm:"type:varchar(100);index" json:"category"`                                                     // 分类
	Price          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`                                          // 价格
	DiscountPrice  *Money         `gorm:"type:decimal(20,2)" json:"discount_price,omitempty"`                                          // 折扣价（须小于价格）
	InventoryCount int            `gorm:"not null;default:0;check:chk_products_inventory,inventory_count >= 0" json:"inventory_count"` // 库存
	Status         string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`                             // 状态
	IsApproved     bool           `gorm:"not null;default:false;index" json:"is_approved"`                                             // 是否审核通过
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                                                     // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                                                  // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                                              // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// IsPurchasable 审核通过且处于上架状态
func (p *Product) IsPurchasable() bool {
	return p != nil && p.IsApproved && p.Status == constants.ProductStatusActive
}

// UnitPrice 成交单价：有折扣价时取折扣价
func (p *Product) UnitPrice() Money {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() && p.DiscountPrice.LessThan(p.Price.Decimal) {
		return *p.DiscountPrice
	}
	return p.Price
}
