package enums

// OrderStatus tracks the lifecycle of a storefront order. Orders are created
// already completed; there are no later transitions.
type OrderStatus string

const OrderStatusCompleted OrderStatus = "completed"

var orderStatuses = []OrderStatus{OrderStatusCompleted}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return contains(orderStatuses, s) }

// ParseOrderStatus accepts only the lowercase database spelling.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(orderStatuses, "order status", value)
}
