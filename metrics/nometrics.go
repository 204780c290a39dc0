package metrics

import "time"

// NilMetricsEngine implements MetricsEngine and discards everything. Useful in tests and when
// no backend is configured.
type NilMetricsEngine struct{}

func (NilMetricsEngine) RecordBidderRequest(labels BidderLabels, duration time.Duration)   {}
func (NilMetricsEngine) RecordBidReceived(bidder string)                                   {}
func (NilMetricsEngine) RecordBidRejected(bidder string)                                   {}
func (NilMetricsEngine) RecordAuctionRequest(labels AuctionLabels, duration time.Duration) {}
func (NilMetricsEngine) RecordCycle(labels CycleLabels, duration time.Duration)            {}
func (NilMetricsEngine) RecordError(code string)                                           {}
