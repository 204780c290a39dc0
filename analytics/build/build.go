// Package build turns the analytics config into a Runner listening on the event bus.
package build

import (
	"database/sql"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	_ "github.com/lib/pq"

	"github.com/prebid/prebid-mediator/analytics"
	"github.com/prebid/prebid-mediator/analytics/eventchannel"
	"github.com/prebid/prebid-mediator/analytics/filesystem"
	"github.com/prebid/prebid-mediator/analytics/postgres"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/events"
)

// New builds every configured module. Modules which fail to start are logged and left out.
func New(cfg config.Analytics, bus *events.Bus, clk clock.Clock, client *http.Client) *analytics.Runner {
	modules := make([]analytics.Module, 0, 3)
	if client == nil {
		client = http.DefaultClient
	}

	if len(cfg.File.Filename) > 0 {
		if mod, err := filesystem.NewFileLogger(cfg.File.Filename); err == nil {
			modules = append(modules, mod)
		} else {
			glog.Errorf("Could not initialize FileLogger for file %v :%v", cfg.File.Filename, err)
		}
	}

	if len(cfg.HTTP.Endpoint) > 0 {
		if mod, err := eventchannel.NewModule(client, clk, cfg.HTTP); err == nil {
			modules = append(modules, mod)
		} else {
			glog.Errorf("Could not initialize http analytics for %s: %v", cfg.HTTP.Endpoint, err)
		}
	}

	if len(cfg.Postgres.Database) > 0 {
		if mod, err := newPostgresModule(cfg.Postgres); err == nil {
			modules = append(modules, mod)
		} else {
			glog.Errorf("Could not initialize postgres analytics for %s: %v", cfg.Postgres.Database, err)
		}
	}

	return analytics.NewRunner(bus, modules...)
}

func newPostgresModule(cfg config.PostgresAnalytics) (analytics.Module, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, err
	}
	return postgres.NewModule(db, cfg.Table), nil
}
