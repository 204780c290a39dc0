package prometheusmetrics

import (
	"strconv"
	"time"

	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry

	// Cycle Metrics
	cycles      *prometheus.CounterVec
	cyclesTimer *prometheus.HistogramVec
	errors      *prometheus.CounterVec

	// Bid Delegate Metrics
	bidderRequests      *prometheus.CounterVec
	bidderRequestsTimer *prometheus.HistogramVec
	bidsReceived        *prometheus.CounterVec
	bidsRejected        *prometheus.CounterVec

	// Auction Delegate Metrics
	auctionRequests      *prometheus.CounterVec
	auctionRequestsTimer *prometheus.HistogramVec
}

const (
	auctioneerLabel = "auctioneer"
	bidderLabel     = "bidder"
	codeLabel       = "code"
	cycleTypeLabel  = "cycle_type"
	hasErrorsLabel  = "has_errors"
	outcomeLabel    = "outcome"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	standardTimeBuckets := []float64{0.05, 0.1, 0.15, 0.20, 0.25, 0.3, 0.4, 0.5, 0.75, 1, 2, 5}

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.cycles = newCounter(cfg, metrics.Registry,
		"cycles",
		"Count of auction cycles labeled by cycle type and whether any error was reported.",
		[]string{cycleTypeLabel, hasErrorsLabel})

	metrics.cyclesTimer = newHistogramVec(cfg, metrics.Registry,
		"cycle_time_seconds",
		"Seconds to run a full auction cycle labeled by cycle type.",
		[]string{cycleTypeLabel},
		standardTimeBuckets)

	metrics.errors = newCounter(cfg, metrics.Registry,
		"errors",
		"Count of error events labeled by error code.",
		[]string{codeLabel})

	metrics.bidderRequests = newCounter(cfg, metrics.Registry,
		"bidder_requests",
		"Count of bid delegate invocations labeled by bidder, cycle type and outcome.",
		[]string{bidderLabel, cycleTypeLabel, outcomeLabel})

	metrics.bidderRequestsTimer = newHistogramVec(cfg, metrics.Registry,
		"bidder_request_time_seconds",
		"Seconds a bid delegate took to call done, labeled by bidder.",
		[]string{bidderLabel},
		standardTimeBuckets)

	metrics.bidsReceived = newCounter(cfg, metrics.Registry,
		"bids_received",
		"Count of bids pushed by bid delegates labeled by bidder.",
		[]string{bidderLabel})

	metrics.bidsRejected = newCounter(cfg, metrics.Registry,
		"bids_rejected",
		"Count of bids dropped after being pushed, labeled by bidder.",
		[]string{bidderLabel})

	metrics.auctionRequests = newCounter(cfg, metrics.Registry,
		"auction_requests",
		"Count of auction delegate invocations labeled by auctioneer, cycle type and outcome.",
		[]string{auctioneerLabel, cycleTypeLabel, outcomeLabel})

	metrics.auctionRequestsTimer = newHistogramVec(cfg, metrics.Registry,
		"auction_request_time_seconds",
		"Seconds the auction delegate took to call done, labeled by auctioneer.",
		[]string{auctioneerLabel},
		standardTimeBuckets)

	preloadLabelValues(&metrics)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

func (m *Metrics) RecordBidderRequest(labels metrics.BidderLabels, duration time.Duration) {
	m.bidderRequests.With(prometheus.Labels{
		bidderLabel:    labels.Bidder,
		cycleTypeLabel: string(labels.CycleType),
		outcomeLabel:   string(labels.Outcome),
	}).Inc()

	m.bidderRequestsTimer.With(prometheus.Labels{
		bidderLabel: labels.Bidder,
	}).Observe(duration.Seconds())
}

func (m *Metrics) RecordBidReceived(bidder string) {
	m.bidsReceived.With(prometheus.Labels{
		bidderLabel: bidder,
	}).Inc()
}

func (m *Metrics) RecordBidRejected(bidder string) {
	m.bidsRejected.With(prometheus.Labels{
		bidderLabel: bidder,
	}).Inc()
}

func (m *Metrics) RecordAuctionRequest(labels metrics.AuctionLabels, duration time.Duration) {
	m.auctionRequests.With(prometheus.Labels{
		auctioneerLabel: labels.Auctioneer,
		cycleTypeLabel:  string(labels.CycleType),
		outcomeLabel:    string(labels.Outcome),
	}).Inc()

	m.auctionRequestsTimer.With(prometheus.Labels{
		auctioneerLabel: labels.Auctioneer,
	}).Observe(duration.Seconds())
}

func (m *Metrics) RecordCycle(labels metrics.CycleLabels, duration time.Duration) {
	m.cycles.With(prometheus.Labels{
		cycleTypeLabel: string(labels.CycleType),
		hasErrorsLabel: strconv.FormatBool(labels.HasErrors),
	}).Inc()

	m.cyclesTimer.With(prometheus.Labels{
		cycleTypeLabel: string(labels.CycleType),
	}).Observe(duration.Seconds())
}

func (m *Metrics) RecordError(code string) {
	m.errors.With(prometheus.Labels{
		codeLabel: code,
	}).Inc()
}
