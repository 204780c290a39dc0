package eventchannel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/analytics"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/events"
	"github.com/prebid/prebid-mediator/util/randomutil"
)

type httpModule struct {
	channel *EventChannel
	filter  eventFilter
}

// NewModule ships events as newline delimited JSON, in gzipped batches, to cfg.Endpoint.
// Only the sampled events which pass cfg.Filter are shipped.
func NewModule(client *http.Client, clk clock.Clock, cfg config.HTTPAnalytics) (analytics.Module, error) {
	return newModule(client, clk, cfg, randomutil.RandomNumberGenerator{})
}

func newModule(client *http.Client, clk clock.Clock, cfg config.HTTPAnalytics, sampler randomutil.Sampler) (analytics.Module, error) {
	bufferBytes, err := cfg.BufferBytes()
	if err != nil {
		return nil, fmt.Errorf("invalid buffer size %q: %v", cfg.BufferSize, err)
	}
	if cfg.EventCount <= 0 || cfg.TimeoutMs <= 0 {
		return nil, fmt.Errorf("event count and timeout must be positive")
	}
	filter, err := createFilter(cfg.SampleRate, cfg.Filter, sampler)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %v", cfg.Filter, err)
	}

	channel := NewEventChannel(
		NewHttpSender(client, cfg.Endpoint),
		clk,
		bufferBytes,
		int64(cfg.EventCount),
		time.Duration(cfg.TimeoutMs)*time.Millisecond,
	)
	return &httpModule{channel: channel, filter: filter}, nil
}

func (m *httpModule) LogEvent(e events.Event) {
	if !m.filter(e) {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		glog.Warningf("[eventchannel] skipping %s event: %v", e.Type, err)
		return
	}
	m.channel.Push(append(payload, '\n'))
}

func (m *httpModule) Shutdown() {
	m.channel.Close()
}
