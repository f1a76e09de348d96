package models

// Display labels for the coded columns of t_order. The SQL templates
// alias most columns to their display names directly; these maps back
// the filter-options endpoint and the export column shaping.

// OrderStatusLabels maps a status code to its display label.
var OrderStatusLabels = map[int]string{
	1:  "待付款",
	2:  "待发货",
	3:  "待收货",
	4:  "待评价",
	5:  "交易成功",
	6:  "交易失败",
	7:  "待成团",
	10: "待接单",
	15: "待拣货",
	50: "部分支付",
	60: "整单的撤销中",
}

// ValidOrderStatuses is the enumerated set accepted by the status
// filter, in display order.
var ValidOrderStatuses = []int{1, 2, 3, 4, 5, 6, 7, 10, 15, 50, 60}

// SourceChannelLabels maps social_type to the ordering channel.
var SourceChannelLabels = map[int]string{
	1:  "鲸选微信小程序",
	2:  "微信公众号",
	6:  "鲸选支付宝小程序",
	7:  "PC",
	8:  "H5",
	9:  "新鲸选APP",
	10: "新鲸选APP",
	11: "支付宝H5",
	12: "字节宝小程序",
}

// OrderTypeLabels maps order_type to its display label.
var OrderTypeLabels = map[int]string{
	0: "普通订单",
	1: "团购订单",
	2: "秒杀订单",
	3: "积分订单",
}

// DeliveryTypeLabels maps dvy_type to its display label.
var DeliveryTypeLabels = map[int]string{
	1: "快递",
	2: "自提",
	3: "无需快递",
	4: "同城配送",
}

// IsValidOrderStatus reports whether code is a member of the status enum.
func IsValidOrderStatus(code int) bool {
	_, ok := OrderStatusLabels[code]
	return ok
}
