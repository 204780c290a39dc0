package exchange

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/events"
	"github.com/prebid/prebid-mediator/metrics"
)

type callResult struct {
	name    string
	outcome metrics.DelegateOutcome
	elapsed time.Duration
}

// delegateCall guards one delegate invocation. Whichever of done, the deadline or a recovered
// panic comes first completes the call. Everything after that is ignored.
type delegateCall struct {
	cycle   *cycle
	name    string
	kind    string
	clock   clock.Clock
	timeout time.Duration
	// closed is set once the phase owning this call has passed its barrier.
	closed *atomic.Bool
	// onFinish runs exactly once, under mu, before the result is handed back.
	onFinish func(outcome metrics.DelegateOutcome, elapsed time.Duration)
	results  chan<- callResult

	mu       sync.Mutex
	started  time.Time
	finished bool
	doneSeen bool
	timer    *clock.Timer
	cancel   context.CancelFunc
}

// start arms the deadline and returns the context handed to the delegate. The context is
// cancelled once the call completes.
func (dc *delegateCall) start(ctx context.Context) context.Context {
	callCtx, cancel := context.WithCancel(ctx)

	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.cancel = cancel
	dc.started = dc.clock.Now()
	if dc.timeout > 0 {
		dc.timer = dc.clock.AfterFunc(dc.timeout, dc.expire)
	}
	return callCtx
}

// invoke runs fn, converting a panic into an error and a completed call.
func (dc *delegateCall) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			glog.Errorf("Auction cycle recovered panic from %s %s: %v. Stack trace is: %v", dc.kind, dc.name, r, stack)
			if !dc.closed.Load() {
				dc.cycle.reportError(&errortypes.DelegatePanic{
					Provider:   dc.name,
					Message:    fmt.Sprintf("%s %s panicked: %v", dc.kind, dc.name, r),
					StackTrace: stack,
				})
			}
			dc.finish(metrics.DelegateOutcomePanic, nil)
		}
	}()
	fn()
}

// done is the DoneFunc handed to the delegate.
func (dc *delegateCall) done() {
	dc.mu.Lock()
	if dc.finished {
		repeated := dc.doneSeen
		dc.mu.Unlock()
		if repeated && !dc.closed.Load() {
			dc.cycle.reportError(&errortypes.ContractViolation{
				Provider: dc.name,
				Message:  fmt.Sprintf("%s %s called done more than once", dc.kind, dc.name),
			})
			return
		}
		glog.V(2).Infof("Ignoring late done from %s %s", dc.kind, dc.name)
		return
	}
	dc.doneSeen = true
	dc.complete(metrics.DelegateOutcomeDone, nil)
	dc.mu.Unlock()
}

// expire fires when the callback timeout elapses.
func (dc *delegateCall) expire() {
	dc.finish(metrics.DelegateOutcomeTimeout, func() {
		dc.cycle.reportError(&errortypes.Timeout{
			Provider: dc.name,
			Message:  fmt.Sprintf("%s %s did not call done within %v", dc.kind, dc.name, dc.timeout),
		})
	})
}

// abandon times the call out because the cycle context ended before the delegate finished.
func (dc *delegateCall) abandon(cause error) {
	dc.finish(metrics.DelegateOutcomeTimeout, func() {
		dc.cycle.reportError(&errortypes.Timeout{
			Provider: dc.name,
			Message:  fmt.Sprintf("%s %s abandoned before calling done: %v", dc.kind, dc.name, cause),
		})
	})
}

func (dc *delegateCall) finish(outcome metrics.DelegateOutcome, before func()) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.finished {
		return false
	}
	dc.complete(outcome, before)
	return true
}

// complete must be called with mu held.
func (dc *delegateCall) complete(outcome metrics.DelegateOutcome, before func()) {
	dc.finished = true
	if dc.timer != nil {
		dc.timer.Stop()
	}
	if dc.cancel != nil {
		dc.cancel()
	}
	if before != nil {
		before()
	}
	elapsed := dc.clock.Since(dc.started)
	if dc.onFinish != nil {
		dc.onFinish(outcome, elapsed)
	}
	dc.results <- callResult{name: dc.name, outcome: outcome, elapsed: elapsed}
}

// bidderCall adds the pushBid side of the bid delegate contract.
type bidderCall struct {
	*delegateCall
	slots map[string]struct{}
}

func (bc *bidderCall) pushBid(obj *entities.BidObject) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.finished {
		glog.V(2).Infof("Ignoring late bid from bid provider %s", bc.name)
		return
	}
	if obj == nil {
		bc.cycle.reportError(&errortypes.ContractViolation{
			Provider: bc.name,
			Message:  fmt.Sprintf("bid provider %s pushed a nil bid", bc.name),
		})
		return
	}
	if _, ok := bc.slots[obj.Slot]; !ok {
		bc.cycle.me.RecordBidRejected(bc.name)
		bc.cycle.reportError(&errortypes.ContractViolation{
			Provider: bc.name,
			Message:  fmt.Sprintf("bid provider %s pushed a bid for slot %q which it was not asked to bid on", bc.name, obj.Slot),
		})
		return
	}

	bid := bc.cycle.acceptBid(bc.name, obj)
	bc.cycle.me.RecordBidReceived(bc.name)
	glog.V(2).Infof("Bid %s from %s for %s: %s", bid.ID, bc.name, bid.Slot, bid.Value)
	// The accepted bid goes on to the transforms, so the event gets its own copy.
	payload := bid.BidObject.Clone()
	bc.cycle.bus.Publish(events.BidNext, events.BidNextData{
		ID:              bid.ID,
		Slot:            bid.Slot,
		BidProvider:     bc.name,
		Sizes:           payload.Sizes,
		Value:           bid.Value,
		CustomTargeting: payload.Targeting,
	})
}
