package metrics

import "time"

// CycleType tells whether an auction cycle called delegates through Init or Refresh.
type CycleType string

const (
	CycleTypeInit    CycleType = "init"
	CycleTypeRefresh CycleType = "refresh"
)

// CycleTypes returns all possible values for CycleType.
func CycleTypes() []CycleType {
	return []CycleType{CycleTypeInit, CycleTypeRefresh}
}

// DelegateOutcome is how a single delegate invocation ended.
type DelegateOutcome string

const (
	// DelegateOutcomeDone means the delegate called done before its deadline.
	DelegateOutcomeDone DelegateOutcome = "done"
	// DelegateOutcomeTimeout means the deadline elapsed first.
	DelegateOutcomeTimeout DelegateOutcome = "timeout"
	// DelegateOutcomePanic means the delegate panicked before calling done.
	DelegateOutcomePanic DelegateOutcome = "panic"
)

// DelegateOutcomes returns all possible values for DelegateOutcome.
func DelegateOutcomes() []DelegateOutcome {
	return []DelegateOutcome{DelegateOutcomeDone, DelegateOutcomeTimeout, DelegateOutcomePanic}
}

// BidderLabels defines the labels attached to bid delegate metrics.
type BidderLabels struct {
	Bidder    string
	CycleType CycleType
	Outcome   DelegateOutcome
}

// AuctionLabels defines the labels attached to auction delegate metrics.
type AuctionLabels struct {
	Auctioneer string
	CycleType  CycleType
	Outcome    DelegateOutcome
}

// CycleLabels defines the labels attached to whole-cycle metrics.
type CycleLabels struct {
	CycleType CycleType
	HasErrors bool
}

// MetricsEngine is a generic interface to record mediator metrics into the desired backend.
// The first three methods are the ones an auction cycle calls on its hot path.
type MetricsEngine interface {
	RecordBidderRequest(labels BidderLabels, duration time.Duration)
	RecordBidReceived(bidder string)
	RecordBidRejected(bidder string)
	RecordAuctionRequest(labels AuctionLabels, duration time.Duration)
	RecordCycle(labels CycleLabels, duration time.Duration)
	RecordError(code string)
}
