package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventBookingReserved  = "audition.booking.reserved.v1"
	EventBookingCancelled = "audition.booking.cancelled.v1"
)
