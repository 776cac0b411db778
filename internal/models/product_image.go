package models

import "time"

// ProductImage 商品图片；每个商品至多一张主图（部分唯一索引）
type ProductImage struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	ProductID    uint      `gorm:"not null;index;index:idx_product_images_primary,unique,where:is_primary = true" json:"product_id"`
	URL          string    `gorm:"type:varchar(1024);not null" json:"url"`
	AltText      string    `gorm:"type:varchar(255)" json:"alt_text"`
	IsPrimary    bool      `gorm:"not null;default:false" json:"is_primary"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (ProductImage) TableName() string {
	return "product_images"
}
