package main

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/exchange"
	"github.com/prebid/prebid-mediator/router"
	"github.com/prebid/prebid-mediator/server"
	"github.com/prebid/prebid-mediator/util/task"
)

// Rev holds binary revision string
// Set manually at build time using:
//    go build -ldflags "-X main.Rev=`git rev-parse --short HEAD`"
var Rev string

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	err = serve(Rev, cfg)
	if err != nil {
		glog.Exitf("prebid-mediator failed: %v", err)
	}
}

const configFileName = "pbm"

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(revision string, cfg *config.Configuration) error {
	r, err := router.New(cfg, revision)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	refreshTask := newRefreshTask(cfg, r.Exchange)
	refreshTask.Start()
	defer refreshTask.Stop()

	corsRouter := router.SupportCORS(r)
	server.Listen(cfg, router.NoCache{Handler: corsRouter}, router.Admin(r.Version), r.MetricsEngine)
	return nil
}

// newRefreshTask runs the first cycle right away and, when an interval is configured, a refresh
// cycle on every tick after it.
func newRefreshTask(cfg *config.Configuration, ex exchange.Exchange) *task.TickerTask {
	return task.NewTickerTask(
		time.Duration(cfg.RefreshIntervalSeconds)*time.Second,
		task.RunnerFunc(func() error {
			resp := ex.HoldAuction(context.Background(), exchange.AuctionRequest{})
			if resp.HasErrors() {
				return errortypes.NewAggregateErrors("auction cycle "+resp.ID+" completed with errors", resp.Errors)
			}
			return nil
		}),
	)
}
