package service

import (
	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
)

// allowedTransitions 合法的订单状态流转
var allowedTransitions = map[string][]string{
	constants.OrderStatusPending: {constants.OrderStatusPaid, constants.OrderStatusCancelled},
	constants.OrderStatusPaid:    {constants.OrderStatusShipped, constants.OrderStatusCancelled},
	constants.OrderStatusShipped: {constants.OrderStatusDelivered},
}

func canTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isOrderStatus(status string) bool {
	switch status {
	case constants.OrderStatusPending,
		constants.OrderStatusPaid,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
		constants.OrderStatusCancelled:
		return true
	}
	return false
}

// statusTimeColumn 状态对应的时间字段
func statusTimeColumn(status string) string {
	switch status {
	case constants.OrderStatusPaid:
		return "paid_at"
	case constants.OrderStatusShipped:
		return "shipped_at"
	case constants.OrderStatusDelivered:
		return "delivered_at"
	case constants.OrderStatusCancelled:
		return "cancelled_at"
	}
	return ""
}

func eventTypeForStatus(status string) string {
	switch status {
	case constants.OrderStatusPending:
		return constants.OrderEventCreated
	case constants.OrderStatusPaid:
		return constants.OrderEventPaid
	case constants.OrderStatusShipped:
		return constants.OrderEventShipped
	case constants.OrderStatusDelivered:
		return constants.OrderEventDelivered
	case constants.OrderStatusCancelled:
		return constants.OrderEventCancelled
	}
	return ""
}
