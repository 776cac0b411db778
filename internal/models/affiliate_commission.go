package models

import "time"

// AffiliateCommission 推广佣金记录，一条订单项至多一条
type AffiliateCommission struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                                           // 主键
	AffiliateProfileID uint       `gorm:"not null;index" json:"affiliate_profile_id"`                     // 推广用户ID
	OrderID            uint       `gorm:"not null;index" json:"order_id"`                                 // 订单ID
	OrderItemID        uint       `gorm:"not null;uniqueIndex" json:"order_item_id"`                      // 订单项ID
	BaseAmount         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`       // 佣金基数
	RatePercent        Money      `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"`      // 成交时的佣金比例
	CommissionAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"` // 佣金金额
	Status             string     `gorm:"type:varchar(32);not null;index" json:"status"`                  // 佣金状态
	ConfirmAt          *time.Time `gorm:"index" json:"confirm_at,omitempty"`                              // 待确认到期时间
	AvailableAt        *time.Time `json:"available_at,omitempty"`                                         // 转可结算时间
	InvalidReason      string     `gorm:"type:varchar(255)" json:"invalid_reason,omitempty"`              // 失效原因
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt          time.Time  `json:"updated_at"`                                                     // 更新时间
}

// TableName 指定表名
func (AffiliateCommission) TableName() string {
	return "affiliate_commissions"
}
