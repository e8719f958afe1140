package repository

// MessageBus is the credit queue boundary. The webhook path publishes credit
// events here and the worker consumes them off the other end.
type MessageBus interface {
	Publish(topic string, data []byte) error
}
