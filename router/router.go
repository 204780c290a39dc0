package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/adapters/registry"
	analyticsBuild "github.com/prebid/prebid-mediator/analytics/build"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/endpoints"
	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/events"
	"github.com/prebid/prebid-mediator/exchange"
	metricsConf "github.com/prebid/prebid-mediator/metrics/config"
	"github.com/prebid/prebid-mediator/transform"
)

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	Exchange      exchange.Exchange
	Bus           *events.Bus
	Version       endpoints.VersionInfo
	Shutdown      func()
}

// New loads every configured delegate, builds the exchange and registers the public endpoints.
// Delegates which fail to load are reported on the bus and left out; only an unusable
// transform list is fatal.
func New(cfg *config.Configuration, revision string) (r *Router, err error) {
	r = &Router{
		Router: httprouter.New(),
	}

	clk := clock.New()
	r.Bus = events.NewBus(clk)

	httpAdapter := adapters.NewHTTPAdapter(&adapters.HTTPAdapterConfig{
		MaxConns:        adapters.DefaultHTTPAdapterConfig.MaxConns,
		MaxConnsPerHost: adapters.DefaultHTTPAdapterConfig.MaxConnsPerHost,
		IdleConnTimeout: adapters.DefaultHTTPAdapterConfig.IdleConnTimeout,
		Timeout:         cfg.HTTPClient.Timeout(),
	})

	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg, bidProviderNames(cfg.BidProviders))

	// Reporters subscribe before the delegates load so they see the lib events too.
	analyticsRunner := analyticsBuild.New(cfg.Analytics, r.Bus, clk, httpAdapter.Client)
	r.Shutdown = analyticsRunner.Shutdown

	pipeline, err := buildPipeline(cfg.Transforms)
	if err != nil {
		analyticsRunner.Shutdown()
		return nil, fmt.Errorf("Mediator could not build the transform pipeline: %v", err)
	}

	loader := registry.NewLoader(r.Bus, httpAdapter)
	bidders, loadErrs := loader.LoadBidDelegates(cfg.BidProviders)
	auctioneer, loadErr := loader.LoadAuctionDelegate(cfg.AuctionProvider)
	if loadErr != nil {
		loadErrs = append(loadErrs, loadErr)
	}
	if len(loadErrs) > 0 {
		glog.Warningf("%d provider(s) failed to load", len(loadErrs))
	}

	r.Exchange = exchange.NewExchange(exchange.Config{
		Options:         exchangeOptions(cfg),
		Slots:           slotConfigs(cfg.Slots),
		BidDelegates:    bidders,
		AuctionDelegate: auctioneer,
		Pipeline:        pipeline,
		PageTargeting:   cfg.PageTargeting,
	}, r.Bus, r.MetricsEngine, clk, nil, nil)

	r.Version = endpoints.VersionInfo{
		ID:        cfg.ID,
		Revision:  revision,
		Providers: loadedProviders(bidders, auctioneer),
	}

	r.POST("/auction", endpoints.NewAuctionEndpoint(r.Exchange))
	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	r.Handler("GET", "/version", endpoints.NewVersionEndpoint(r.Version))

	return r, nil
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func exchangeOptions(cfg *config.Configuration) exchange.Options {
	opts := exchange.DefaultOptions()
	opts.ID = cfg.ID
	opts.RandomizeBidRequests = cfg.RandomizeBidRequests
	if cfg.AuctionProviderCbTimeout > 0 {
		opts.AuctionProviderCbTimeout = msToDuration(cfg.AuctionProviderCbTimeout)
	}
	if cfg.BidProviderCbTimeout > 0 {
		opts.BidProviderCbTimeout = msToDuration(cfg.BidProviderCbTimeout)
	}
	return opts
}

func slotConfigs(slots []config.Slot) []entities.SlotConfig {
	out := make([]entities.SlotConfig, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.SlotConfig())
	}
	return out
}

func bidProviderNames(providers []config.BidProvider) []string {
	names := make([]string, 0, len(providers))
	for _, provider := range providers {
		names = append(names, provider.Name)
	}
	return names
}

func loadedProviders(bidders []adapters.BidDelegate, auctioneer adapters.AuctionDelegate) []endpoints.LoadedProvider {
	providers := make([]endpoints.LoadedProvider, 0, len(bidders)+1)
	for _, b := range bidders {
		providers = append(providers, endpoints.LoadedProvider{Name: b.Name(), Role: "bid", LibURI: b.LibURI()})
	}
	if auctioneer != nil {
		providers = append(providers, endpoints.LoadedProvider{Name: auctioneer.Name(), Role: "auction", LibURI: auctioneer.LibURI()})
	}
	return providers
}

func buildPipeline(transforms []config.Transform) (*transform.Pipeline, error) {
	specs := make([]transform.Spec, 0, len(transforms))
	for _, t := range transforms {
		specs = append(specs, transform.Spec{Name: t.Name, Params: t.Params})
	}
	return transform.Build(specs)
}

// SupportCORS lets any page run auctions from the browser. The mediator holds no user state,
// so credentials and all origins are allowed.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
