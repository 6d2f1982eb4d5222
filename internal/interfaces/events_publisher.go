package interfaces

// EventPublisher delivers committed-operation events to a notification
// channel. Implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(topic string, event any) error
}
