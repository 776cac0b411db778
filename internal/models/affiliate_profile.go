package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateProfile 推广用户档案
type AffiliateProfile struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	UserID         uint           `gorm:"not null;uniqueIndex" json:"user_id"`                           // 用户ID
	AffiliateCode  string         `gorm:"type:varchar(16);not null;uniqueIndex" json:"code"`             // 推广码
	CommissionRate Money          `gorm:"type:decimal(10,2);not null;default:10" json:"commission_rate"` // 佣金比例（百分比）
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`                 // 状态
	Website        string         `gorm:"type:varchar(255)" json:"website"`                              // 推广站点
	Niche          string         `gorm:"type:varchar(120)" json:"niche"`                                // 推广领域
	PayoutEmail    string         `gorm:"type:varchar(120)" json:"payout_email"`                         // 结算邮箱
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                    // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"` // 用户信息
}

// TableName 指定表名
func (AffiliateProfile) TableName() string {
	return "affiliate_profiles"
}
