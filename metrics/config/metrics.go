package config

import (
	"time"

	mainConfig "github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/metrics"
	prometheusmetrics "github.com/prebid/prebid-mediator/metrics/prometheus"
	gometrics "github.com/rcrowley/go-metrics"
	influxdb "github.com/vrischmann/go-metrics-influxdb"
)

// NewMetricsEngine reads the configuration and returns the appropriate metrics engine
// for this instance.
func NewMetricsEngine(cfg *mainConfig.Configuration, bidders []string) *DetailedMetricsEngine {
	// Create a list of metrics engines to use.
	// Capacity of 2, as unlikely to have more than 2 metrics backends, and in the case
	// of 1 we won't use the list so it will be garbage collected.
	engineList := make(MultiMetricsEngine, 0, 2)
	returnEngine := DetailedMetricsEngine{}

	if cfg.Metrics.Influxdb.Host != "" {
		// Currently use go-metrics as the metrics piece for influx
		returnEngine.GoMetrics = metrics.NewMetrics(gometrics.NewPrefixedRegistry("mediator."), bidders)
		engineList = append(engineList, returnEngine.GoMetrics)
		// Set up the Influx logger
		go influxdb.InfluxDB(
			returnEngine.GoMetrics.MetricsRegistry,                            // metrics registry
			time.Second*time.Duration(cfg.Metrics.Influxdb.MetricSendInterval), // Configurable interval
			cfg.Metrics.Influxdb.Host,                                          // the InfluxDB url
			cfg.Metrics.Influxdb.Database,                                      // your InfluxDB database
			cfg.Metrics.Influxdb.Username,                                      // your InfluxDB user
			cfg.Metrics.Influxdb.Password,                                      // your InfluxDB password
		)
		// Influx is not added to the engine list as goMetrics takes care of it already.
	}
	if cfg.Metrics.Prometheus.Port != 0 {
		// Set up the Prometheus metrics.
		returnEngine.PrometheusMetrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus)
		engineList = append(engineList, returnEngine.PrometheusMetrics)
	}

	// Now return the proper metrics engine
	if len(engineList) > 1 {
		returnEngine.MetricsEngine = &engineList
	} else if len(engineList) == 1 {
		returnEngine.MetricsEngine = engineList[0]
	} else {
		returnEngine.MetricsEngine = &DummyMetricsEngine{}
	}

	return &returnEngine
}

// DetailedMetricsEngine is a MultiMetricsEngine that preserves links to underlying metrics engines.
type DetailedMetricsEngine struct {
	metrics.MetricsEngine
	GoMetrics         *metrics.Metrics
	PrometheusMetrics *prometheusmetrics.Metrics
}

// MultiMetricsEngine logs metrics to multiple metrics databases The can be useful in transitioning
// an instance from one engine to another, you can run both in parallel to verify stats match up.
type MultiMetricsEngine []metrics.MetricsEngine

func (me *MultiMetricsEngine) RecordBidderRequest(labels metrics.BidderLabels, duration time.Duration) {
	for _, thisME := range *me {
		thisME.RecordBidderRequest(labels, duration)
	}
}

func (me *MultiMetricsEngine) RecordBidReceived(bidder string) {
	for _, thisME := range *me {
		thisME.RecordBidReceived(bidder)
	}
}

func (me *MultiMetricsEngine) RecordBidRejected(bidder string) {
	for _, thisME := range *me {
		thisME.RecordBidRejected(bidder)
	}
}

func (me *MultiMetricsEngine) RecordAuctionRequest(labels metrics.AuctionLabels, duration time.Duration) {
	for _, thisME := range *me {
		thisME.RecordAuctionRequest(labels, duration)
	}
}

func (me *MultiMetricsEngine) RecordCycle(labels metrics.CycleLabels, duration time.Duration) {
	for _, thisME := range *me {
		thisME.RecordCycle(labels, duration)
	}
}

func (me *MultiMetricsEngine) RecordError(code string) {
	for _, thisME := range *me {
		thisME.RecordError(code)
	}
}

// DummyMetricsEngine is a Noop metrics engine in case no metrics are configured. (may also be useful for tests)
type DummyMetricsEngine struct{}

func (me *DummyMetricsEngine) RecordBidderRequest(labels metrics.BidderLabels, duration time.Duration) {
}

func (me *DummyMetricsEngine) RecordBidReceived(bidder string) {
}

func (me *DummyMetricsEngine) RecordBidRejected(bidder string) {
}

func (me *DummyMetricsEngine) RecordAuctionRequest(labels metrics.AuctionLabels, duration time.Duration) {
}

func (me *DummyMetricsEngine) RecordCycle(labels metrics.CycleLabels, duration time.Duration) {
}

func (me *DummyMetricsEngine) RecordError(code string) {
}
