package service

// Notifier receives domain events after they are committed. The websocket hub
// implements it; a nil Notifier is allowed.
type Notifier interface {
	Publish(eventType, action string, payload map[string]interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, map[string]interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
