package models

import "time"

// AffiliateLink 推广链接，product_id 为空表示全站链接
type AffiliateLink struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	AffiliateProfileID uint      `gorm:"not null;uniqueIndex:idx_affiliate_links_profile_product" json:"affiliate_profile_id"`
	ProductID          *uint     `gorm:"uniqueIndex:idx_affiliate_links_profile_product" json:"product_id,omitempty"`
	Code               string    `gorm:"type:varchar(16);not null;uniqueIndex" json:"code"`
	Clicks             int64     `gorm:"not null;default:0" json:"clicks"`
	Conversions        int64     `gorm:"not null;default:0" json:"conversions"`
	Earnings           Money     `gorm:"type:decimal(20,2);not null;default:0" json:"earnings"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	AffiliateProfile *AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"-"`
}

// TableName 指定表名
func (AffiliateLink) TableName() string {
	return "affiliate_links"
}
