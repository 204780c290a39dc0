package analytics

import (
	"github.com/prebid/prebid-mediator/events"
)

// Module must be implemented by analytics modules. LogEvent is called synchronously from the
// publishing goroutine, so modules which do I/O should buffer and return quickly. Do not keep
// references to the event's payload; it may be shared with other listeners.
type Module interface {
	LogEvent(e events.Event)
	Shutdown()
}
