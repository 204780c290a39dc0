package server

import (
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prebid/prebid-mediator/config"
	metricsconfig "github.com/prebid/prebid-mediator/metrics/config"
)

func newPrometheusServer(cfg *config.Configuration, metrics *metricsconfig.DetailedMetricsEngine) *http.Server {
	if metrics == nil || metrics.PrometheusMetrics == nil {
		glog.Fatal("Prometheus metrics configured, but a Prometheus metrics engine was not found. Cannot set up a Prometheus listener.")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", newPrometheusHandler(cfg, metrics))
	return &http.Server{
		Addr:    cfg.Host + ":" + strconv.Itoa(cfg.Metrics.Prometheus.Port),
		Handler: mux,
	}
}

func newPrometheusHandler(cfg *config.Configuration, metrics *metricsconfig.DetailedMetricsEngine) http.Handler {
	return promhttp.HandlerFor(metrics.PrometheusMetrics.Registry, promhttp.HandlerOpts{
		ErrorLog:            loggerForPrometheus{},
		MaxRequestsInFlight: 5,
		Timeout:             cfg.Metrics.Prometheus.Timeout(),
	})
}

type loggerForPrometheus struct{}

func (loggerForPrometheus) Println(v ...interface{}) {
	glog.Warningln(v...)
}
