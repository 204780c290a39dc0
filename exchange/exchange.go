package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/events"
	"github.com/prebid/prebid-mediator/metrics"
	"github.com/prebid/prebid-mediator/transform"
	"github.com/prebid/prebid-mediator/util/randomutil"
	"github.com/prebid/prebid-mediator/util/uuidutil"
)

// Exchange runs auction cycles.
type Exchange interface {
	// HoldAuction runs one full cycle, from bid collection through the auction delegate
	// completing. It always returns a response: failures are published as error events and
	// collected in the response, they never end the cycle early. Cycles are serialized.
	HoldAuction(ctx context.Context, r AuctionRequest) *AuctionResponse
}

// Options are the process-wide mediator settings. They are read-only once the exchange is built.
type Options struct {
	ID                       string
	AuctionProviderCbTimeout time.Duration
	BidProviderCbTimeout     time.Duration
	RandomizeBidRequests     bool
}

// DefaultCallbackTimeout applies to both delegate kinds when nothing else is configured.
const DefaultCallbackTimeout = 2000 * time.Millisecond

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		AuctionProviderCbTimeout: DefaultCallbackTimeout,
		BidProviderCbTimeout:     DefaultCallbackTimeout,
	}
}

// Config is everything an exchange coordinates.
type Config struct {
	Options
	Slots []entities.SlotConfig
	// BidDelegates are used in registration order. When two share a name the first one wins.
	BidDelegates    []adapters.BidDelegate
	AuctionDelegate adapters.AuctionDelegate
	// AuctionTrigger is used when the auction delegate has no Trigger of its own. Nil starts
	// the auction as soon as targeting is assembled.
	AuctionTrigger adapters.AuctionTriggerFn
	Pipeline       *transform.Pipeline
	PageTargeting  map[string]string
}

type exchange struct {
	opts          Options
	slots         []entities.SlotConfig
	bidders       []adapters.BidDelegate
	auctioneer    adapters.AuctionDelegate
	trigger       adapters.AuctionTriggerFn
	pipeline      *transform.Pipeline
	pageTargeting map[string]string

	bus             *events.Bus
	me              metrics.MetricsEngine
	clock           clock.Clock
	randomGenerator randomutil.RandomGenerator
	idGenerator     uuidutil.UUIDGenerator

	configErrors     []error
	reportConfigOnce sync.Once

	// cycleMu serializes cycles. The fields below it are cross-cycle delegate state.
	cycleMu            sync.Mutex
	cycles             int
	initializedBidders map[string]bool
	auctioneerReady    bool
}

// NewExchange validates the delegate set and builds an exchange. Configuration problems are not
// returned: they are published once, as error events, when the first cycle starts.
func NewExchange(cfg Config, bus *events.Bus, me metrics.MetricsEngine, clk clock.Clock, randomGenerator randomutil.RandomGenerator, idGenerator uuidutil.UUIDGenerator) Exchange {
	if clk == nil {
		clk = clock.New()
	}
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	if randomGenerator == nil {
		randomGenerator = randomutil.RandomNumberGenerator{}
	}
	if idGenerator == nil {
		idGenerator = uuidutil.UUIDRandomGenerator{}
	}

	e := &exchange{
		opts:               cfg.Options,
		slots:              cfg.Slots,
		auctioneer:         cfg.AuctionDelegate,
		trigger:            cfg.AuctionTrigger,
		pipeline:           cfg.Pipeline,
		pageTargeting:      cfg.PageTargeting,
		bus:                bus,
		me:                 me,
		clock:              clk,
		randomGenerator:    randomGenerator,
		idGenerator:        idGenerator,
		initializedBidders: make(map[string]bool),
	}
	e.bidders, e.configErrors = validateDelegates(cfg.Slots, cfg.BidDelegates)
	return e
}

// validateDelegates drops nil and duplicate bid delegates, keeping the first registered of each
// name, and flags slots which name a provider nobody registered.
func validateDelegates(slots []entities.SlotConfig, bidders []adapters.BidDelegate) ([]adapters.BidDelegate, []error) {
	var errs []error
	unique := make([]adapters.BidDelegate, 0, len(bidders))
	seen := make(map[string]bool, len(bidders))

	for _, bidder := range bidders {
		if bidder == nil {
			continue
		}
		name := bidder.Name()
		if seen[name] {
			errs = append(errs, &errortypes.BadConfig{
				Message: fmt.Sprintf("duplicate bid provider name %q: only the first registered delegate is used", name),
			})
			continue
		}
		seen[name] = true
		unique = append(unique, bidder)
	}

	unknown := make(map[string]bool)
	for _, slot := range slots {
		for _, provider := range slot.BidProviders {
			if !seen[provider] && !unknown[provider] {
				unknown[provider] = true
				errs = append(errs, &errortypes.BadConfig{
					Message: fmt.Sprintf("slot %q references unknown bid provider %q", slot.Name, provider),
				})
			}
		}
	}
	return unique, errs
}

func (e *exchange) HoldAuction(ctx context.Context, r AuctionRequest) *AuctionResponse {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	c := e.newCycle()
	e.reportConfigOnce.Do(func() {
		for _, err := range e.configErrors {
			c.reportError(err)
		}
	})
	response := c.run(ctx, r)
	e.cycles++
	return response
}

func (e *exchange) newID() string {
	id, err := e.idGenerator.Generate()
	if err != nil {
		glog.Errorf("Failed to generate an id: %v", err)
		return ""
	}
	return id
}

// cycleSlots resolves the slots a request asks for, in configuration order.
func (e *exchange) cycleSlots(r AuctionRequest) ([]entities.SlotConfig, []error) {
	if len(r.SlotNames) == 0 {
		return e.slots, nil
	}

	wanted := make(map[string]bool, len(r.SlotNames))
	for _, name := range r.SlotNames {
		wanted[name] = true
	}

	slots := make([]entities.SlotConfig, 0, len(r.SlotNames))
	for _, slot := range e.slots {
		if wanted[slot.Name] {
			slots = append(slots, slot)
			delete(wanted, slot.Name)
		}
	}

	var errs []error
	for _, name := range r.SlotNames {
		if wanted[name] {
			delete(wanted, name)
			errs = append(errs, &errortypes.BadConfig{Message: fmt.Sprintf("unknown slot %q requested", name)})
		}
	}
	return slots, errs
}
