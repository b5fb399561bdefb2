package outbox

import (
	"time"
)

// Message is an order lifecycle event waiting to be published to RabbitMQ.
// Rows are written in the same transaction as the state change they
// describe and removed once delivered.
type Message struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// Routing keys for order lifecycle events.
const (
	RoutingKeyOrderCreated    = "order.created"
	RoutingKeyOrderCancelled  = "order.cancelled"
	RoutingKeyProductReturned = "order.product_returned"
	RoutingKeyOrderCompleted  = "order.completed"
	RoutingKeyBillGenerated   = "order.bill_generated"
)
