package models

import "time"

// Order 订单表；金额字段创建后不可变，只允许修改状态与物流信息
type Order struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                          // 主键
	OrderNo           string     `gorm:"uniqueIndex;not null" json:"order_no"`                          // 订单编号
	CustomerID        *uint      `gorm:"index" json:"customer_id,omitempty"`                            // 下单用户（可为空）
	Status            string     `gorm:"type:varchar(20);index;not null" json:"status"`                 // 订单状态
	Currency          string     `gorm:"type:varchar(8);not null" json:"currency"`                      // 币种
	TotalAmount       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`     // 订单总额
	CommissionTotal   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"commission_total"` // 佣金合计
	ShippingAddress   string     `gorm:"type:text" json:"shipping_address"`                             // 收货地址快照
	BillingAddress    string     `gorm:"type:text" json:"billing_address"`                              // 账单地址快照
	PaymentMethod     string     `gorm:"type:varchar(64)" json:"payment_method"`                        // 支付方式
	PaymentRef        string     `gorm:"type:varchar(128)" json:"payment_ref,omitempty"`                // 支付流水号
	Notes             string     `gorm:"type:text" json:"notes,omitempty"`                              // 备注
	TrackingNumber    string     `gorm:"type:varchar(128)" json:"tracking_number,omitempty"`            // 物流单号
	CancelReason      string     `gorm:"type:varchar(64)" json:"cancel_reason,omitempty"`               // 取消原因
	InventoryReleased bool       `gorm:"not null;default:false" json:"-"`                               // 库存是否已回补
	ExpiresAt         *time.Time `gorm:"index" json:"expires_at,omitempty"`                             // 库存保留截止
	PaidAt            *time.Time `json:"paid_at,omitempty"`                                             // 支付时间
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`                                          // 发货时间
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`                                        // 签收时间
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`                                        // 取消时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                    // 更新时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
