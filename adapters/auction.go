package adapters

import (
	"context"

	"github.com/prebid/prebid-mediator/entities"
)

// AuctionDelegate is the adapter contract for the publisher ad server. Init receives the full
// targeting set for the cycle, makes the ad server call, and must call done exactly once.
type AuctionDelegate interface {
	Name() string
	LibURI() string
	Init(ctx context.Context, targeting []entities.SlotTargetingObject, done DoneFunc)
}

// AuctionRefresher is implemented by auction delegates with a distinct refresh call.
type AuctionRefresher interface {
	Refresh(ctx context.Context, targeting []entities.SlotTargetingObject, done DoneFunc)
}

// AuctionTriggerer is implemented by auction delegates which decide themselves when the auction
// starts. Trigger must eventually call start, otherwise the cycle waits until its context ends.
type AuctionTriggerer interface {
	Trigger(ctx context.Context, start DoneFunc)
}

// AuctionTriggerFn decides when the publisher ad server request is made. It calls start to go.
type AuctionTriggerFn func(ctx context.Context, start DoneFunc)

// AuctionFunc is the function form of AuctionDelegate.Init and AuctionRefresher.Refresh.
type AuctionFunc func(ctx context.Context, targeting []entities.SlotTargetingObject, done DoneFunc)

type auctionDelegate struct {
	name   string
	libURI string
	init   AuctionFunc
}

func (d *auctionDelegate) Name() string   { return d.name }
func (d *auctionDelegate) LibURI() string { return d.libURI }

func (d *auctionDelegate) Init(ctx context.Context, targeting []entities.SlotTargetingObject, done DoneFunc) {
	d.init(ctx, targeting, done)
}

type refreshableAuctionDelegate struct {
	*auctionDelegate
	refresh AuctionFunc
}

func (d *refreshableAuctionDelegate) Refresh(ctx context.Context, targeting []entities.SlotTargetingObject, done DoneFunc) {
	d.refresh(ctx, targeting, done)
}

type triggeringAuctionDelegate struct {
	AuctionDelegate
	trigger AuctionTriggerFn
}

func (d *triggeringAuctionDelegate) Trigger(ctx context.Context, start DoneFunc) {
	d.trigger(ctx, start)
}

type refreshableTriggeringAuctionDelegate struct {
	*refreshableAuctionDelegate
	trigger AuctionTriggerFn
}

func (d *refreshableTriggeringAuctionDelegate) Trigger(ctx context.Context, start DoneFunc) {
	d.trigger(ctx, start)
}

// NewAuctionDelegate builds an AuctionDelegate from functions. The result implements
// AuctionRefresher when refresh is non-nil and AuctionTriggerer when trigger is non-nil.
func NewAuctionDelegate(name, libURI string, init, refresh AuctionFunc, trigger AuctionTriggerFn) AuctionDelegate {
	base := &auctionDelegate{name: name, libURI: libURI, init: init}

	switch {
	case refresh != nil && trigger != nil:
		return &refreshableTriggeringAuctionDelegate{
			refreshableAuctionDelegate: &refreshableAuctionDelegate{auctionDelegate: base, refresh: refresh},
			trigger:                    trigger,
		}
	case refresh != nil:
		return &refreshableAuctionDelegate{auctionDelegate: base, refresh: refresh}
	case trigger != nil:
		return &triggeringAuctionDelegate{AuctionDelegate: base, trigger: trigger}
	default:
		return base
	}
}
