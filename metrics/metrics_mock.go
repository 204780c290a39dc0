package metrics

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordBidderRequest mock
func (me *MetricsEngineMock) RecordBidderRequest(labels BidderLabels, duration time.Duration) {
	me.Called(labels, duration)
}

// RecordBidReceived mock
func (me *MetricsEngineMock) RecordBidReceived(bidder string) {
	me.Called(bidder)
}

// RecordBidRejected mock
func (me *MetricsEngineMock) RecordBidRejected(bidder string) {
	me.Called(bidder)
}

// RecordAuctionRequest mock
func (me *MetricsEngineMock) RecordAuctionRequest(labels AuctionLabels, duration time.Duration) {
	me.Called(labels, duration)
}

// RecordCycle mock
func (me *MetricsEngineMock) RecordCycle(labels CycleLabels, duration time.Duration) {
	me.Called(labels, duration)
}

// RecordError mock
func (me *MetricsEngineMock) RecordError(code string) {
	me.Called(code)
}
