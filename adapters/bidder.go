package adapters

import (
	"context"

	"github.com/prebid/prebid-mediator/entities"
)

// PushBidFunc hands one bid to the mediator. It may be called any number of times, in any order,
// until the delegate calls its DoneFunc.
type PushBidFunc func(bid *entities.BidObject)

// DoneFunc tells the mediator a delegate has finished. It must be called exactly once per
// invocation. Calls after the first are reported as contract violations.
type DoneFunc func()

// BidDelegate is the adapter contract for one demand source.
//
// Init is called on the first auction cycle with the slots this delegate may bid on. The
// delegate may push zero or more bids and must then call done. Init may return before the
// bidding finishes; the mediator waits on done, bounded by the bid provider callback timeout.
//
// A delegate which never calls done is not broken by this contract: the mediator times it out,
// keeps whatever bids it already pushed, and moves on.
type BidDelegate interface {
	// Name must be unique among bid delegates. It is matched against SlotConfig.BidProviders.
	Name() string
	// LibURI is where the delegate's library was loaded from.
	LibURI() string
	Init(ctx context.Context, slots []entities.SlotConfig, pushBid PushBidFunc, done DoneFunc)
}

// BidRefresher is implemented by bid delegates which bid differently on later cycles.
// Delegates without it are invoked through Init on every cycle.
type BidRefresher interface {
	Refresh(ctx context.Context, slots []entities.SlotConfig, pushBid PushBidFunc, done DoneFunc)
}

// BidFunc is the function form of BidDelegate.Init and BidRefresher.Refresh.
type BidFunc func(ctx context.Context, slots []entities.SlotConfig, pushBid PushBidFunc, done DoneFunc)

type bidDelegate struct {
	name   string
	libURI string
	init   BidFunc
}

func (d *bidDelegate) Name() string   { return d.name }
func (d *bidDelegate) LibURI() string { return d.libURI }

func (d *bidDelegate) Init(ctx context.Context, slots []entities.SlotConfig, pushBid PushBidFunc, done DoneFunc) {
	d.init(ctx, slots, pushBid, done)
}

type refreshableBidDelegate struct {
	bidDelegate
	refresh BidFunc
}

func (d *refreshableBidDelegate) Refresh(ctx context.Context, slots []entities.SlotConfig, pushBid PushBidFunc, done DoneFunc) {
	d.refresh(ctx, slots, pushBid, done)
}

// NewBidDelegate builds a BidDelegate from functions. The result implements BidRefresher only
// when refresh is non-nil.
func NewBidDelegate(name, libURI string, init, refresh BidFunc) BidDelegate {
	base := bidDelegate{name: name, libURI: libURI, init: init}
	if refresh == nil {
		return &base
	}
	return &refreshableBidDelegate{bidDelegate: base, refresh: refresh}
}
