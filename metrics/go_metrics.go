package metrics

import (
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Metrics is the go-metrics implementation of MetricsEngine.
type Metrics struct {
	MetricsRegistry metrics.Registry

	CycleMeter       map[CycleType]metrics.Meter
	CycleErrorMeter  map[CycleType]metrics.Meter
	CycleTimer       map[CycleType]metrics.Timer
	AuctionMeter     map[DelegateOutcome]metrics.Meter
	AuctionTimer     metrics.Timer
	ErrorMeter       map[string]metrics.Meter
	errorMeterMutex  sync.RWMutex
	BidderMetrics    map[string]*BidderMetrics
	bidderMetricsMux sync.RWMutex
}

// BidderMetrics houses the metrics for a particular bid delegate.
type BidderMetrics struct {
	RequestMeter      map[DelegateOutcome]metrics.Meter
	RequestTimer      metrics.Timer
	BidsReceivedMeter metrics.Meter
	BidsRejectedMeter metrics.Meter
}

// NewMetrics builds the go-metrics engine. Bidders known up front are registered eagerly;
// others are added the first time they are seen.
func NewMetrics(registry metrics.Registry, bidders []string) *Metrics {
	m := &Metrics{
		MetricsRegistry: registry,
		CycleMeter:      make(map[CycleType]metrics.Meter),
		CycleErrorMeter: make(map[CycleType]metrics.Meter),
		CycleTimer:      make(map[CycleType]metrics.Timer),
		AuctionMeter:    make(map[DelegateOutcome]metrics.Meter),
		AuctionTimer:    metrics.GetOrRegisterTimer("auction.request_time", registry),
		ErrorMeter:      make(map[string]metrics.Meter),
		BidderMetrics:   make(map[string]*BidderMetrics),
	}

	for _, ct := range CycleTypes() {
		m.CycleMeter[ct] = metrics.GetOrRegisterMeter("cycle."+string(ct)+".requests", registry)
		m.CycleErrorMeter[ct] = metrics.GetOrRegisterMeter("cycle."+string(ct)+".with_errors", registry)
		m.CycleTimer[ct] = metrics.GetOrRegisterTimer("cycle."+string(ct)+".time", registry)
	}
	for _, outcome := range DelegateOutcomes() {
		m.AuctionMeter[outcome] = metrics.GetOrRegisterMeter("auction.requests."+string(outcome), registry)
	}
	for _, bidder := range bidders {
		m.getBidderMetrics(bidder)
	}
	return m
}

func makeBidderMetrics(registry metrics.Registry, bidder string) *BidderMetrics {
	prefix := "bidder." + bidder
	bm := &BidderMetrics{
		RequestMeter:      make(map[DelegateOutcome]metrics.Meter),
		RequestTimer:      metrics.GetOrRegisterTimer(prefix+".request_time", registry),
		BidsReceivedMeter: metrics.GetOrRegisterMeter(prefix+".bids_received", registry),
		BidsRejectedMeter: metrics.GetOrRegisterMeter(prefix+".bids_rejected", registry),
	}
	for _, outcome := range DelegateOutcomes() {
		bm.RequestMeter[outcome] = metrics.GetOrRegisterMeter(prefix+".requests."+string(outcome), registry)
	}
	return bm
}

func (me *Metrics) getBidderMetrics(bidder string) *BidderMetrics {
	me.bidderMetricsMux.RLock()
	bm, ok := me.BidderMetrics[bidder]
	me.bidderMetricsMux.RUnlock()
	if ok {
		return bm
	}

	me.bidderMetricsMux.Lock()
	defer me.bidderMetricsMux.Unlock()
	// Check again, it may have been added while we waited on the lock.
	if bm, ok = me.BidderMetrics[bidder]; ok {
		return bm
	}
	bm = makeBidderMetrics(me.MetricsRegistry, bidder)
	me.BidderMetrics[bidder] = bm
	return bm
}

func (me *Metrics) RecordBidderRequest(labels BidderLabels, duration time.Duration) {
	bm := me.getBidderMetrics(labels.Bidder)
	if meter, ok := bm.RequestMeter[labels.Outcome]; ok {
		meter.Mark(1)
	}
	bm.RequestTimer.Update(duration)
}

func (me *Metrics) RecordBidReceived(bidder string) {
	me.getBidderMetrics(bidder).BidsReceivedMeter.Mark(1)
}

func (me *Metrics) RecordBidRejected(bidder string) {
	me.getBidderMetrics(bidder).BidsRejectedMeter.Mark(1)
}

func (me *Metrics) RecordAuctionRequest(labels AuctionLabels, duration time.Duration) {
	if meter, ok := me.AuctionMeter[labels.Outcome]; ok {
		meter.Mark(1)
	}
	me.AuctionTimer.Update(duration)
}

func (me *Metrics) RecordCycle(labels CycleLabels, duration time.Duration) {
	me.CycleMeter[labels.CycleType].Mark(1)
	if labels.HasErrors {
		me.CycleErrorMeter[labels.CycleType].Mark(1)
	}
	me.CycleTimer[labels.CycleType].Update(duration)
}

func (me *Metrics) RecordError(code string) {
	me.errorMeterMutex.RLock()
	meter, ok := me.ErrorMeter[code]
	me.errorMeterMutex.RUnlock()
	if !ok {
		me.errorMeterMutex.Lock()
		meter, ok = me.ErrorMeter[code]
		if !ok {
			meter = metrics.GetOrRegisterMeter("errors."+code, me.MetricsRegistry)
			me.ErrorMeter[code] = meter
		}
		me.errorMeterMutex.Unlock()
	}
	meter.Mark(1)
}
