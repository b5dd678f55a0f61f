package usecase

// Live feed event types.
const (
	EventReading     = "reading"
	EventAlert       = "alert"
	EventHealthCheck = "health_check"
	EventZones       = "zones"
)

// Notifier pushes events to live dashboard clients.
type Notifier interface {
	Notify(eventType string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
