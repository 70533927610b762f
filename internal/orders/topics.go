package orders

import "strconv"

const (
	TopicOrderCreated   = "order.created"
	TopicOrderConfirmed = "order.confirmed"
	TopicOrderCanceled  = "order.canceled"
	TopicCompensation   = "order.compensation.requested"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}

func CorrelationID(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}
