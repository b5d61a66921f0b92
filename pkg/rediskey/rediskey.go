package rediskey

import "fmt"

// Channel/key conventions shared by the API and the worker.
const (
	OrderPrefix    = "orders"
	CustomerPrefix = "customers"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// OrderChannel returns "orders:{ticketID}", the row-change channel for one order.
func OrderChannel(ticketID string) string {
	return NamespaceKey(OrderPrefix, ticketID)
}

// CustomerChannel returns "customers:{customerID}".
func CustomerChannel(customerID string) string {
	return NamespaceKey(CustomerPrefix, customerID)
}
