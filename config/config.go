package config

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/docker/go-units"
	"github.com/golang/glog"
	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	ID         string `mapstructure:"id"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	AdminPort  int    `mapstructure:"admin_port"`
	EnableGzip bool   `mapstructure:"enable_gzip"`
	// StatusResponse is the body of GET /status. Empty answers 204.
	StatusResponse string `mapstructure:"status_response"`

	// Callback timeouts, in milliseconds, for auction and bid delegates.
	AuctionProviderCbTimeout int  `mapstructure:"auction_provider_cb_timeout_ms"`
	BidProviderCbTimeout     int  `mapstructure:"bid_provider_cb_timeout_ms"`
	RandomizeBidRequests     bool `mapstructure:"randomize_bid_requests"`
	// RefreshIntervalSeconds re-runs the auction periodically. Zero disables it.
	RefreshIntervalSeconds int `mapstructure:"refresh_interval_seconds"`

	PageTargeting   map[string]string `mapstructure:"page_targeting"`
	Slots           []Slot            `mapstructure:"slots"`
	BidProviders    []BidProvider     `mapstructure:"bid_providers"`
	AuctionProvider AuctionProvider   `mapstructure:"auction_provider"`
	Transforms      []Transform       `mapstructure:"transforms"`

	Metrics    Metrics    `mapstructure:"metrics"`
	Analytics  Analytics  `mapstructure:"analytics"`
	HTTPClient HTTPClient `mapstructure:"http_client"`
}

// Slot is the configured form of entities.SlotConfig.
type Slot struct {
	Name         string   `mapstructure:"name"`
	ElementID    string   `mapstructure:"element_id"`
	Sizes        [][]int  `mapstructure:"sizes"`
	BidProviders []string `mapstructure:"bid_providers"`
}

// SlotConfig converts the slot into the entity handed to delegates. Call only after validation.
func (s Slot) SlotConfig() entities.SlotConfig {
	sizes := make([]entities.Size, 0, len(s.Sizes))
	for _, size := range s.Sizes {
		sizes = append(sizes, entities.Size{size[0], size[1]})
	}
	return entities.SlotConfig{
		Name:         s.Name,
		ElementID:    s.ElementID,
		Sizes:        sizes,
		BidProviders: append([]string(nil), s.BidProviders...),
	}
}

// BidProvider describes one bid delegate. Adapter picks the implementation which is built for it.
type BidProvider struct {
	Name     string `mapstructure:"name"`
	Adapter  string `mapstructure:"adapter"`
	LibURI   string `mapstructure:"lib_uri"`
	Endpoint string `mapstructure:"endpoint"`
	// Label, if set, overrides the targeting key used for this provider's bids.
	Label string `mapstructure:"label"`
	// Refresh enables the delegate's refresh entry point on later cycles.
	Refresh bool `mapstructure:"refresh"`
}

// AuctionProvider describes the single auction delegate.
type AuctionProvider struct {
	Name     string `mapstructure:"name"`
	Adapter  string `mapstructure:"adapter"`
	LibURI   string `mapstructure:"lib_uri"`
	Endpoint string `mapstructure:"endpoint"`
	Refresh  bool   `mapstructure:"refresh"`
}

// IsEnabled is false when no auction provider has been configured.
func (ap AuctionProvider) IsEnabled() bool {
	return ap.Name != ""
}

// Transform names a built-in bid transform and its params.
type Transform struct {
	Name   string                 `mapstructure:"name"`
	Params map[string]interface{} `mapstructure:"params"`
}

type Metrics struct {
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type InfluxMetrics struct {
	Host               string `mapstructure:"host"`
	Database           string `mapstructure:"database"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MetricSendInterval int    `mapstructure:"metric_send_interval"`
}

func (im *InfluxMetrics) validate(errs []error) []error {
	if im.Host == "" {
		return errs
	}
	if im.Database == "" {
		errs = append(errs, errors.New("metrics.influxdb.database must be set when metrics.influxdb.host is set"))
	}
	if im.MetricSendInterval <= 0 {
		errs = append(errs, fmt.Errorf("metrics.influxdb.metric_send_interval must be positive. Got %d", im.MetricSendInterval))
	}
	return errs
}

type PrometheusMetrics struct {
	Port             int    `mapstructure:"port"`
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (m *PrometheusMetrics) validate(errs []error) []error {
	if m.Port > 0 && m.TimeoutMillisRaw <= 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.timeout_ms must be positive if metrics.prometheus.port is defined. Got timeout=%d and port=%d", m.TimeoutMillisRaw, m.Port))
	}
	return errs
}

func (m *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(m.TimeoutMillisRaw) * time.Millisecond
}

// Analytics configures the event reporters. Each one is enabled by setting its primary field.
type Analytics struct {
	File     FileLogs          `mapstructure:"file"`
	HTTP     HTTPAnalytics     `mapstructure:"http"`
	Postgres PostgresAnalytics `mapstructure:"postgres"`
}

// FileLogs Corresponding config for FileLogger as a PBS Analytics Module
type FileLogs struct {
	Filename string `mapstructure:"filename"`
}

// HTTPAnalytics ships gzipped event batches to an HTTP endpoint.
type HTTPAnalytics struct {
	Endpoint   string `mapstructure:"endpoint"`
	BufferSize string `mapstructure:"buffer_size"`
	EventCount int    `mapstructure:"event_count"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	// SampleRate is the share of events shipped, between 0 and 1.
	SampleRate float64 `mapstructure:"sample_rate"`
	// Filter is an optional boolean expression over Type, Provider, Slot and Code,
	// e.g. `Type == "error" || Provider == "p1"`.
	Filter string `mapstructure:"filter"`
}

// BufferBytes parses BufferSize, e.g. "2MB".
func (h HTTPAnalytics) BufferBytes() (int64, error) {
	return units.FromHumanSize(h.BufferSize)
}

func (h *HTTPAnalytics) validate(errs []error) []error {
	if h.Endpoint == "" {
		return errs
	}
	if !govalidator.IsURL(h.Endpoint) {
		errs = append(errs, fmt.Errorf("analytics.http.endpoint %q is not a valid URL", h.Endpoint))
	}
	if _, err := h.BufferBytes(); err != nil {
		errs = append(errs, fmt.Errorf("analytics.http.buffer_size %q is invalid: %v", h.BufferSize, err))
	}
	if h.EventCount <= 0 {
		errs = append(errs, fmt.Errorf("analytics.http.event_count must be positive. Got %d", h.EventCount))
	}
	if h.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("analytics.http.timeout_ms must be positive. Got %d", h.TimeoutMs))
	}
	if h.SampleRate < 0 || h.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("analytics.http.sample_rate must be between 0 and 1. Got %v", h.SampleRate))
	}
	return errs
}

// PostgresAnalytics writes every event as a row into a Postgres table.
type PostgresAnalytics struct {
	Database string `mapstructure:"dbname"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Table    string `mapstructure:"table"`
}

// ConnString returns a connection string for the given database. Empty values are left out.
// See https://www.postgresql.org/docs/9.1/static/libpq-connect.html#LIBPQ-CONNSTRING
func (cfg *PostgresAnalytics) ConnString() string {
	buffer := bytes.NewBuffer(nil)

	if cfg.Host != "" {
		buffer.WriteString("host=")
		buffer.WriteString(cfg.Host)
		buffer.WriteString(" ")
	}

	if cfg.Port > 0 {
		buffer.WriteString("port=")
		buffer.WriteString(strconv.Itoa(cfg.Port))
		buffer.WriteString(" ")
	}

	if cfg.Username != "" {
		buffer.WriteString("user=")
		buffer.WriteString(cfg.Username)
		buffer.WriteString(" ")
	}

	if cfg.Password != "" {
		buffer.WriteString("password=")
		buffer.WriteString(cfg.Password)
		buffer.WriteString(" ")
	}

	if cfg.Database != "" {
		buffer.WriteString("dbname=")
		buffer.WriteString(cfg.Database)
		buffer.WriteString(" ")
	}

	buffer.WriteString("sslmode=disable")
	return buffer.String()
}

func (cfg *PostgresAnalytics) validate(errs []error) []error {
	if cfg.Database == "" {
		return errs
	}
	if cfg.Table == "" {
		errs = append(errs, errors.New("analytics.postgres.table must be set when analytics.postgres.dbname is set"))
	}
	return errs
}

type HTTPClient struct {
	TimeoutMs int `mapstructure:"timeout_ms"`
}

func (c HTTPClient) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (cfg *Configuration) validate() []error {
	var errs []error
	if cfg.AuctionProviderCbTimeout < 0 {
		errs = append(errs, fmt.Errorf("auction_provider_cb_timeout_ms must be non-negative. Got %d", cfg.AuctionProviderCbTimeout))
	}
	if cfg.BidProviderCbTimeout < 0 {
		errs = append(errs, fmt.Errorf("bid_provider_cb_timeout_ms must be non-negative. Got %d", cfg.BidProviderCbTimeout))
	}
	if cfg.RefreshIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("refresh_interval_seconds must be non-negative. Got %d", cfg.RefreshIntervalSeconds))
	}
	if cfg.Port <= 0 {
		errs = append(errs, fmt.Errorf("port must be positive. Got %d", cfg.Port))
	}
	if cfg.AdminPort < 0 {
		errs = append(errs, fmt.Errorf("admin_port must be non-negative. Got %d", cfg.AdminPort))
	}
	if cfg.HTTPClient.TimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("http_client.timeout_ms must be non-negative. Got %d", cfg.HTTPClient.TimeoutMs))
	}

	for i, slot := range cfg.Slots {
		errs = slot.validate(i, errs)
	}
	for i, bp := range cfg.BidProviders {
		errs = validateDescriptor(fmt.Sprintf("bid_providers[%d]", i), bp.Name, bp.Adapter, bp.LibURI, bp.Endpoint, errs)
	}
	if cfg.AuctionProvider.IsEnabled() {
		ap := cfg.AuctionProvider
		errs = validateDescriptor("auction_provider", ap.Name, ap.Adapter, ap.LibURI, ap.Endpoint, errs)
	}
	for i, t := range cfg.Transforms {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("transforms[%d].name must be set", i))
		}
	}

	errs = cfg.Metrics.Influxdb.validate(errs)
	errs = cfg.Metrics.Prometheus.validate(errs)
	errs = cfg.Analytics.HTTP.validate(errs)
	errs = cfg.Analytics.Postgres.validate(errs)
	return errs
}

func (s Slot) validate(i int, errs []error) []error {
	if s.Name == "" {
		errs = append(errs, fmt.Errorf("slots[%d].name must be set", i))
	}
	for j, size := range s.Sizes {
		if len(size) != 2 || size[0] < 0 || size[1] < 0 {
			errs = append(errs, fmt.Errorf("slots[%d].sizes[%d] must be a [width, height] pair. Got %v", i, j, size))
		}
	}
	return errs
}

func validateDescriptor(key, name, adapter, libURI, endpoint string, errs []error) []error {
	if name == "" {
		errs = append(errs, fmt.Errorf("%s.name must be set", key))
	}
	if adapter == "" {
		errs = append(errs, fmt.Errorf("%s.adapter must be set", key))
	}
	if libURI != "" && !govalidator.IsURL(libURI) {
		errs = append(errs, fmt.Errorf("%s.lib_uri %q is not a valid URL", key, libURI))
	}
	if endpoint != "" && !govalidator.IsURL(endpoint) {
		errs = append(errs, fmt.Errorf("%s.endpoint %q is not a valid URL", key, endpoint))
	}
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	glog.Info("Logging the resolved configuration:")
	logGeneral(reflect.ValueOf(c), "  \t")
	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

// SetupViper sets the default values and config locations on the given viper instance.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("id", "")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("status_response", "")
	v.SetDefault("auction_provider_cb_timeout_ms", 2000)
	v.SetDefault("bid_provider_cb_timeout_ms", 2000)
	v.SetDefault("randomize_bid_requests", false)
	v.SetDefault("refresh_interval_seconds", 0)
	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.metric_send_interval", 20)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)
	v.SetDefault("analytics.file.filename", "")
	v.SetDefault("analytics.http.endpoint", "")
	v.SetDefault("analytics.http.buffer_size", "2MB")
	v.SetDefault("analytics.http.event_count", 100)
	v.SetDefault("analytics.http.timeout_ms", 900000)
	v.SetDefault("analytics.http.sample_rate", 1.0)
	v.SetDefault("analytics.http.filter", "")
	v.SetDefault("analytics.postgres.dbname", "")
	v.SetDefault("analytics.postgres.host", "")
	v.SetDefault("analytics.postgres.port", 5432)
	v.SetDefault("analytics.postgres.user", "")
	v.SetDefault("analytics.postgres.password", "")
	v.SetDefault("analytics.postgres.table", "mediator_events")
	v.SetDefault("http_client.timeout_ms", 1000)

	// Set environment variable support:
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix("PBM")
	v.AutomaticEnv()
	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("Failed to read config file %s: %v", filename, err)
		}
	}
}
