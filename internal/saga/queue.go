package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-order-saga.git/internal/kafka"
	"github.com/ariefcatur/go-order-saga.git/internal/orders"
)

// KafkaCompensationQueue mem-publish CompensationRequested ke topic
// kompensasi; worker compensator yang mengeksekusi cancel-nya.
type KafkaCompensationQueue struct {
	Producer *kafkax.Producer
	Service  string
}

func (q *KafkaCompensationQueue) Enqueue(ctx context.Context, orderID int64, reason string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventCompensationRequested,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      q.Service,
		CorrelationID: orders.CorrelationID(orderID),
		Payload: kafkax.MustMarshal(orders.CompensationRequestedPayload{
			OrderID: orderID,
			Reason:  reason,
		}),
	}
	q.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventCompensationRequested)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
