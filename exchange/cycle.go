package exchange

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/events"
	"github.com/prebid/prebid-mediator/metrics"
)

// cycle holds the artifacts of one auction cycle. They are discarded when the cycle ends.
type cycle struct {
	e         *exchange
	id        string
	bus       *events.Bus
	me        metrics.MetricsEngine
	cycleType metrics.CycleType
	state     State

	errMu sync.Mutex
	errs  []error

	bidsMu sync.Mutex
	bids   []*entities.Bid
}

func (e *exchange) newCycle() *cycle {
	cycleType := metrics.CycleTypeInit
	if e.cycles > 0 {
		cycleType = metrics.CycleTypeRefresh
	}
	return &cycle{
		e:         e,
		id:        e.newID(),
		bus:       e.bus,
		me:        e.me,
		cycleType: cycleType,
		state:     StateIdle,
	}
}

func (c *cycle) run(ctx context.Context, r AuctionRequest) *AuctionResponse {
	start := c.e.clock.Now()
	response := &AuctionResponse{ID: c.id}

	slots, errs := c.e.cycleSlots(r)
	for _, err := range errs {
		c.reportError(err)
	}

	c.setState(StateBidCollection)
	response.TimedOutBidders = c.collectBids(ctx, slots)

	c.setState(StateTargetingAssembly)
	bids, errs := c.e.pipeline.Apply(c.acceptedBids())
	for _, err := range errs {
		c.reportError(err)
	}
	response.Bids = bids
	var orphans []string
	response.Targeting, orphans = buildTargeting(slots, bids, c.e.pageTargeting, c.e.newID)
	for _, slot := range orphans {
		c.reportError(&errortypes.ContractViolation{
			Message: fmt.Sprintf("transforms produced bids for slot %q which is not part of this cycle, dropping them", slot),
		})
	}

	if c.e.auctioneer == nil {
		c.reportError(&errortypes.BadConfig{Message: "no auction provider configured, skipping the auction"})
	} else {
		c.setState(StateAuctionTrigger)
		if c.awaitTrigger(ctx) {
			c.bus.Publish(events.AuctionGo, events.EmptyData{})
			c.setState(StateAuctionRunning)
			response.AuctionTimedOut = c.runAuction(ctx, response.Targeting)
		}
	}

	c.setState(StateDone)
	response.State = c.state
	response.Errors = c.errors()
	c.me.RecordCycle(metrics.CycleLabels{CycleType: c.cycleType, HasErrors: response.HasErrors()}, c.e.clock.Since(start))
	return response
}

func (c *cycle) setState(next State) {
	glog.V(2).Infof("Auction cycle %s: %s -> %s", c.id, c.state, next)
	c.state = next
}

// reportError is the error side channel. It never stops the cycle.
func (c *cycle) reportError(err error) {
	c.errMu.Lock()
	c.errs = append(c.errs, err)
	c.errMu.Unlock()

	glog.Warningf("Auction cycle %s: %v", c.id, err)
	c.me.RecordError(errortypes.CodeName(errortypes.ReadCode(err)))
	c.bus.Publish(events.Error, events.NewErrorData(err))
}

func (c *cycle) errors() []error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return append([]error(nil), c.errs...)
}

func (c *cycle) acceptBid(provider string, obj *entities.BidObject) *entities.Bid {
	bid := &entities.Bid{
		ID:        c.e.newID(),
		Provider:  provider,
		BidObject: obj.Clone(),
	}

	c.bidsMu.Lock()
	c.bids = append(c.bids, bid)
	c.bidsMu.Unlock()
	return bid
}

func (c *cycle) acceptedBids() []*entities.Bid {
	c.bidsMu.Lock()
	defer c.bidsMu.Unlock()
	return append([]*entities.Bid(nil), c.bids...)
}

type bidderAssignment struct {
	bidder adapters.BidDelegate
	slots  []entities.SlotConfig
}

// collectBids fans out to every bid delegate with at least one slot in this cycle and waits for
// all of them to finish or time out. It returns the names of the ones which timed out.
func (c *cycle) collectBids(ctx context.Context, slots []entities.SlotConfig) []string {
	assignments := make([]bidderAssignment, 0, len(c.e.bidders))
	for _, bidder := range c.e.bidders {
		var assigned []entities.SlotConfig
		for _, slot := range slots {
			if slot.HasBidProvider(bidder.Name()) {
				assigned = append(assigned, slot)
			}
		}
		if len(assigned) == 0 {
			glog.V(2).Infof("Skipping bid provider %s: no slots in this cycle", bidder.Name())
			continue
		}
		assignments = append(assignments, bidderAssignment{bidder: bidder, slots: assigned})
	}

	if c.e.opts.RandomizeBidRequests {
		c.e.randomGenerator.Shuffle(len(assignments), func(i, j int) {
			assignments[i], assignments[j] = assignments[j], assignments[i]
		})
	}

	results := make(chan callResult, len(assignments))
	closed := &atomic.Bool{}
	calls := make([]*delegateCall, 0, len(assignments))

	for _, assignment := range assignments {
		bidder := assignment.bidder
		name := bidder.Name()
		refresh := c.e.initializedBidders[name]
		c.e.initializedBidders[name] = true

		call := c.newBidderCall(name, assignment.slots, refresh, closed, results)
		calls = append(calls, call.delegateCall)

		c.bus.Publish(events.BidStart, events.BidProviderData{BidProvider: name})
		callCtx := call.start(ctx)
		slotsForBidder := cloneSlots(assignment.slots)

		go call.invoke(func() {
			if refresher, ok := bidder.(adapters.BidRefresher); ok && refresh {
				refresher.Refresh(callCtx, slotsForBidder, call.pushBid, call.done)
				return
			}
			bidder.Init(callCtx, slotsForBidder, call.pushBid, call.done)
		})
	}

	outcomes := awaitCalls(ctx, calls, results)
	closed.Store(true)

	var timedOut []string
	for _, call := range calls {
		if outcomes[call.name] == metrics.DelegateOutcomeTimeout {
			timedOut = append(timedOut, call.name)
		}
	}
	return timedOut
}

func (c *cycle) newBidderCall(name string, slots []entities.SlotConfig, refresh bool, closed *atomic.Bool, results chan<- callResult) *bidderCall {
	slotSet := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		slotSet[slot.Name] = struct{}{}
	}

	labels := metrics.BidderLabels{Bidder: name, CycleType: metrics.CycleTypeInit}
	if refresh {
		labels.CycleType = metrics.CycleTypeRefresh
	}

	return &bidderCall{
		slots: slotSet,
		delegateCall: &delegateCall{
			cycle:   c,
			name:    name,
			kind:    "bid provider",
			clock:   c.e.clock,
			timeout: c.e.opts.BidProviderCbTimeout,
			closed:  closed,
			results: results,
			onFinish: func(outcome metrics.DelegateOutcome, elapsed time.Duration) {
				c.bus.Publish(events.BidComplete, events.BidProviderData{BidProvider: name})
				labels.Outcome = outcome
				c.me.RecordBidderRequest(labels, elapsed)
			},
		},
	}
}

// awaitCalls is the join barrier. If ctx ends first, every call still outstanding is timed out.
func awaitCalls(ctx context.Context, calls []*delegateCall, results <-chan callResult) map[string]metrics.DelegateOutcome {
	outcomes := make(map[string]metrics.DelegateOutcome, len(calls))
	ctxDone := ctx.Done()

	for received := 0; received < len(calls); {
		select {
		case res := <-results:
			outcomes[res.name] = res.outcome
			received++
		case <-ctxDone:
			ctxDone = nil
			for _, call := range calls {
				call.abandon(ctx.Err())
			}
		}
	}
	return outcomes
}

// awaitTrigger waits for the trigger to call start. It reports false when the cycle context
// ended first, in which case the auction is skipped.
func (c *cycle) awaitTrigger(ctx context.Context) bool {
	trigger := c.e.trigger
	if triggerer, ok := c.e.auctioneer.(adapters.AuctionTriggerer); ok {
		trigger = triggerer.Trigger
	}
	if trigger == nil {
		return true
	}

	name := c.e.auctioneer.Name()
	fired := make(chan struct{})
	var once sync.Once
	start := func() {
		once.Do(func() { close(fired) })
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				glog.Errorf("Auction cycle recovered panic from the trigger of %s: %v. Stack trace is: %v", name, r, stack)
				c.reportError(&errortypes.DelegatePanic{
					Provider:   name,
					Message:    fmt.Sprintf("auction trigger of %s panicked: %v", name, r),
					StackTrace: stack,
				})
				start()
			}
		}()
		trigger(ctx, start)
	}()

	select {
	case <-fired:
		return true
	case <-ctx.Done():
		c.reportError(&errortypes.Timeout{
			Provider: name,
			Message:  fmt.Sprintf("auction trigger of %s did not fire before the cycle ended: %v", name, ctx.Err()),
		})
		return false
	}
}

// runAuction invokes the auction delegate and waits for it to finish or time out. It reports
// whether it timed out.
func (c *cycle) runAuction(ctx context.Context, targeting []entities.SlotTargetingObject) bool {
	auctioneer := c.e.auctioneer
	name := auctioneer.Name()
	refresh := c.e.auctioneerReady
	c.e.auctioneerReady = true

	labels := metrics.AuctionLabels{Auctioneer: name, CycleType: metrics.CycleTypeInit}
	if refresh {
		labels.CycleType = metrics.CycleTypeRefresh
	}

	results := make(chan callResult, 1)
	call := &delegateCall{
		cycle:   c,
		name:    name,
		kind:    "auction provider",
		clock:   c.e.clock,
		timeout: c.e.opts.AuctionProviderCbTimeout,
		closed:  &atomic.Bool{},
		results: results,
		onFinish: func(outcome metrics.DelegateOutcome, elapsed time.Duration) {
			c.bus.Publish(events.AuctionComplete, events.EmptyData{})
			labels.Outcome = outcome
			c.me.RecordAuctionRequest(labels, elapsed)
		},
	}

	c.bus.Publish(events.AuctionLibStart, events.AuctionProviderData{AuctionProvider: name})
	callCtx := call.start(ctx)
	targetingForAuction := cloneTargeting(targeting)

	go call.invoke(func() {
		if refresher, ok := auctioneer.(adapters.AuctionRefresher); ok && refresh {
			refresher.Refresh(callCtx, targetingForAuction, call.done)
			return
		}
		auctioneer.Init(callCtx, targetingForAuction, call.done)
	})

	outcomes := awaitCalls(ctx, []*delegateCall{call}, results)
	call.closed.Store(true)
	return outcomes[name] == metrics.DelegateOutcomeTimeout
}

func cloneSlots(slots []entities.SlotConfig) []entities.SlotConfig {
	clones := make([]entities.SlotConfig, len(slots))
	for i, slot := range slots {
		clones[i] = slot
		clones[i].Sizes = append([]entities.Size(nil), slot.Sizes...)
		clones[i].BidProviders = append([]string(nil), slot.BidProviders...)
	}
	return clones
}

func cloneTargeting(targeting []entities.SlotTargetingObject) []entities.SlotTargetingObject {
	clones := make([]entities.SlotTargetingObject, len(targeting))
	for i, t := range targeting {
		clones[i] = t
		clones[i].Sizes = append([]entities.Size(nil), t.Sizes...)
		clones[i].Targeting = make(map[string]string, len(t.Targeting))
		for k, v := range t.Targeting {
			clones[i].Targeting[k] = v
		}
	}
	return clones
}
