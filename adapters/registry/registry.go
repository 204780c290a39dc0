// Package registry resolves configured provider descriptors to runnable delegates.
package registry

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/adapters/adserver"
	"github.com/prebid/prebid-mediator/adapters/ortb"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/events"
)

// BidderBuilder builds a bid delegate from its descriptor.
type BidderBuilder func(cfg config.BidProvider, client *adapters.HTTPAdapter) (adapters.BidDelegate, error)

// AuctionBuilder builds an auction delegate from its descriptor.
type AuctionBuilder func(cfg config.AuctionProvider, client *adapters.HTTPAdapter) (adapters.AuctionDelegate, error)

func newBidderBuilders() map[string]BidderBuilder {
	return map[string]BidderBuilder{
		"openrtb": ortb.Builder,
	}
}

func newAuctionBuilders() map[string]AuctionBuilder {
	return map[string]AuctionBuilder{
		"adserver": adserver.Builder,
	}
}

// Loader builds delegates before the first cycle, publishing the library lifecycle events.
type Loader struct {
	bus             *events.Bus
	client          *adapters.HTTPAdapter
	bidderBuilders  map[string]BidderBuilder
	auctionBuilders map[string]AuctionBuilder
}

func NewLoader(bus *events.Bus, client *adapters.HTTPAdapter) *Loader {
	return &Loader{
		bus:             bus,
		client:          client,
		bidderBuilders:  newBidderBuilders(),
		auctionBuilders: newAuctionBuilders(),
	}
}

// RegisterBidder adds or replaces the builder for a bid adapter name.
func (l *Loader) RegisterBidder(adapter string, builder BidderBuilder) {
	l.bidderBuilders[adapter] = builder
}

// RegisterAuction adds or replaces the builder for an auction adapter name.
func (l *Loader) RegisterAuction(adapter string, builder AuctionBuilder) {
	l.auctionBuilders[adapter] = builder
}

// LoadBidDelegates builds every provider in configuration order. Providers which fail to build
// are skipped; their errors are published and returned. Duplicate names are passed through,
// the exchange decides which one wins.
func (l *Loader) LoadBidDelegates(providers []config.BidProvider) ([]adapters.BidDelegate, []error) {
	delegates := make([]adapters.BidDelegate, 0, len(providers))
	var errs []error

	for _, provider := range providers {
		l.bus.Publish(events.BidLibStart, events.BidProviderData{BidProvider: provider.Name})

		builder, found := l.bidderBuilders[provider.Adapter]
		if !found {
			errs = append(errs, l.fail(provider.Name, fmt.Errorf("unknown bid adapter %q", provider.Adapter)))
			continue
		}
		delegate, err := builder(provider, l.client)
		if err != nil {
			errs = append(errs, l.fail(provider.Name, err))
			continue
		}

		glog.Infof("Loaded bid provider %s (%s)", provider.Name, provider.Adapter)
		l.bus.Publish(events.BidLibLoaded, events.BidProviderData{BidProvider: provider.Name})
		delegates = append(delegates, delegate)
	}
	return delegates, errs
}

// LoadAuctionDelegate builds the auction provider. It returns nil, and no error, when none is
// configured.
func (l *Loader) LoadAuctionDelegate(provider config.AuctionProvider) (adapters.AuctionDelegate, error) {
	if !provider.IsEnabled() {
		return nil, nil
	}
	l.bus.Publish(events.AuctionLibStart, events.AuctionProviderData{AuctionProvider: provider.Name})

	builder, found := l.auctionBuilders[provider.Adapter]
	if !found {
		return nil, l.fail(provider.Name, fmt.Errorf("unknown auction adapter %q", provider.Adapter))
	}
	delegate, err := builder(provider, l.client)
	if err != nil {
		return nil, l.fail(provider.Name, err)
	}

	glog.Infof("Loaded auction provider %s (%s)", provider.Name, provider.Adapter)
	l.bus.Publish(events.AuctionLibLoaded, events.AuctionProviderData{AuctionProvider: provider.Name})
	return delegate, nil
}

func (l *Loader) fail(name string, cause error) error {
	err := &errortypes.BadConfig{Message: fmt.Sprintf("%s: %v", name, cause)}
	glog.Errorf("Failed to load provider %v", err)
	l.bus.Publish(events.Error, events.NewErrorData(err))
	return err
}
