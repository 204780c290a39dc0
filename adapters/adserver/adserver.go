// Package adserver is an auction delegate which posts the assembled targeting to a publisher ad
// server endpoint.
package adserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/entities"
)

// Request is the body posted to the ad server.
type Request struct {
	Provider  string                         `json:"provider"`
	Refresh   bool                           `json:"refresh"`
	Targeting []entities.SlotTargetingObject `json:"targeting"`
}

type adapter struct {
	name     string
	endpoint string
	http     *adapters.HTTPAdapter
}

// Builder builds an ad server auction delegate from its descriptor.
func Builder(cfg config.AuctionProvider, client *adapters.HTTPAdapter) (adapters.AuctionDelegate, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("an endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %v", err)
	}

	a := &adapter{name: cfg.Name, endpoint: cfg.Endpoint, http: client}
	var refresh adapters.AuctionFunc
	if cfg.Refresh {
		refresh = a.refresh
	}
	return adapters.NewAuctionDelegate(cfg.Name, cfg.LibURI, a.init, refresh, nil), nil
}

func (a *adapter) init(ctx context.Context, targeting []entities.SlotTargetingObject, done adapters.DoneFunc) {
	a.send(ctx, targeting, false, done)
}

func (a *adapter) refresh(ctx context.Context, targeting []entities.SlotTargetingObject, done adapters.DoneFunc) {
	a.send(ctx, targeting, true, done)
}

func (a *adapter) send(ctx context.Context, targeting []entities.SlotTargetingObject, refresh bool, done adapters.DoneFunc) {
	defer done()

	body, err := json.Marshal(Request{Provider: a.name, Refresh: refresh, Targeting: targeting})
	if err != nil {
		glog.Errorf("Auction provider %s failed to encode targeting: %v", a.name, err)
		return
	}

	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")

	response, err := a.http.Do(ctx, &adapters.RequestData{
		Method:  "POST",
		Uri:     a.endpoint,
		Body:    body,
		Headers: headers,
	})
	if err != nil {
		glog.Warningf("Auction provider %s request failed: %v", a.name, err)
		return
	}
	glog.V(2).Infof("Auction provider %s responded with %d", a.name, response.StatusCode)
}
