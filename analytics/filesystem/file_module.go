// Package filesystem writes one JSON line per event. Files roll over daily.
package filesystem

import (
	"encoding/json"
	"fmt"

	"github.com/chasex/glog"

	"github.com/prebid/prebid-mediator/analytics"
	"github.com/prebid/prebid-mediator/events"
)

type eventLogger interface {
	Debug(v ...interface{})
	Flush()
}

// Module that can perform event logging
type fileLogger struct {
	logger eventLogger
}

func (f *fileLogger) LogEvent(e events.Event) {
	f.logger.Debug(jsonifyEvent(e))
	f.logger.Flush()
}

func (f *fileLogger) Shutdown() {
	f.logger.Flush()
}

func NewFileLogger(filename string) (analytics.Module, error) {
	options := glog.LogOptions{
		File:  filename,
		Flag:  glog.LstdFlags,
		Level: glog.Ldebug,
		Mode:  glog.R_Day,
	}
	logger, err := glog.New(options)
	if err != nil {
		return nil, fmt.Errorf("error creating file logger: %w", err)
	}
	return &fileLogger{logger: logger}, nil
}

func jsonifyEvent(e events.Event) string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("Transactional Logs Error: %s event badly formed %v", e.Type, err)
	}
	return string(b)
}
