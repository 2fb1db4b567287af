package trader

// Notifier delivers outbound notifications to the operator.
type Notifier interface {
	SendMessage(text string) error
}

// nopNotifier discards every message, used when no messaging channel is
// configured.
type nopNotifier struct{}

func (nopNotifier) SendMessage(string) error { return nil }

// NewNopNotifier returns a notifier that drops all messages.
func NewNopNotifier() Notifier {
	return nopNotifier{}
}
