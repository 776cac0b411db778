package models

import "time"

// SellerProfile 卖家档案（与用户一对一，通过 user_id 反查）
type SellerProfile struct {
	ID                    uint      `gorm:"primarykey" json:"id"`
	UserID                uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	BusinessName          string    `gorm:"type:varchar(120);not null" json:"business_name"`
	BusinessEmail         string    `gorm:"type:varchar(120)" json:"business_email"`
	BusinessPhone         string    `gorm:"type:varchar(32)" json:"business_phone"`
	BusinessAddress       string    `gorm:"type:text" json:"business_address"`
	TaxID                 string    `gorm:"type:varchar(64)" json:"tax_id"`
	Verified              bool      `gorm:"not null;default:false" json:"verified"`
	DefaultCommissionRate Money     `gorm:"type:decimal(10,2);not null;default:10" json:"default_commission_rate"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (SellerProfile) TableName() string {
	return "seller_profiles"
}
