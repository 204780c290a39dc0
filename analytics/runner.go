package analytics

import (
	"sync"

	"github.com/prebid/prebid-mediator/events"
)

// Runner feeds every event published on a bus to a set of modules.
type Runner struct {
	bus     *events.Bus
	modules []Module
	subs    []*events.Subscription
	once    sync.Once
}

// NewRunner subscribes the modules to every event kind. A runner with no modules subscribes
// nothing.
func NewRunner(bus *events.Bus, modules ...Module) *Runner {
	r := &Runner{bus: bus, modules: modules}
	if len(modules) > 0 {
		r.subs = bus.SubscribeAll(r.logEvent)
	}
	return r
}

func (r *Runner) logEvent(e events.Event) {
	for _, module := range r.modules {
		module.LogEvent(e)
	}
}

// Len is the number of enabled modules.
func (r *Runner) Len() int {
	return len(r.modules)
}

// Shutdown unsubscribes from the bus and shuts every module down. Calls after the first are no-ops.
func (r *Runner) Shutdown() {
	r.once.Do(func() {
		for _, sub := range r.subs {
			r.bus.Unsubscribe(sub.Kind(), sub)
		}
		for _, module := range r.modules {
			module.Shutdown()
		}
	})
}
