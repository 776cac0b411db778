package models

import "time"

// AffiliateClick 推广点击记录
type AffiliateClick struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                       // 主键
	AffiliateLinkID    uint      `gorm:"not null;index" json:"affiliate_link_id"`    // 推广链接ID
	AffiliateProfileID uint      `gorm:"not null;index" json:"affiliate_profile_id"` // 推广用户ID
	VisitorKey         string    `gorm:"type:varchar(128);index" json:"visitor_key"` // 访客标识
	ClientIP           string    `gorm:"type:varchar(64)" json:"client_ip"`          // 客户端IP
	UserAgent          string    `gorm:"type:varchar(1024)" json:"user_agent"`       // 客户端UA
	Referrer           string    `gorm:"type:varchar(1024)" json:"referrer"`         // 来源地址
	CreatedAt          time.Time `gorm:"index;not null" json:"created_at"`           // 创建时间
}

// TableName 指定表名
func (AffiliateClick) TableName() string {
	return "affiliate_clicks"
}
