// Package ortb is a bid delegate which asks an OpenRTB 2.x endpoint for banner bids on the
// slots it is given.
package ortb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/util/uuidutil"
)

var refreshExt = json.RawMessage(`{"mediator":{"refresh":true}}`)

type adapter struct {
	name        string
	endpoint    string
	label       string
	http        *adapters.HTTPAdapter
	idGenerator uuidutil.UUIDGenerator
}

// Builder builds an OpenRTB bid delegate from its descriptor.
func Builder(cfg config.BidProvider, client *adapters.HTTPAdapter) (adapters.BidDelegate, error) {
	return newDelegate(cfg, client, uuidutil.UUIDRandomGenerator{})
}

func newDelegate(cfg config.BidProvider, client *adapters.HTTPAdapter, idGenerator uuidutil.UUIDGenerator) (adapters.BidDelegate, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("an endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %v", err)
	}

	a := &adapter{
		name:        cfg.Name,
		endpoint:    cfg.Endpoint,
		label:       cfg.Label,
		http:        client,
		idGenerator: idGenerator,
	}
	var refresh adapters.BidFunc
	if cfg.Refresh {
		refresh = a.refresh
	}
	return adapters.NewBidDelegate(cfg.Name, cfg.LibURI, a.init, refresh), nil
}

func (a *adapter) init(ctx context.Context, slots []entities.SlotConfig, pushBid adapters.PushBidFunc, done adapters.DoneFunc) {
	a.bid(ctx, slots, false, pushBid, done)
}

func (a *adapter) refresh(ctx context.Context, slots []entities.SlotConfig, pushBid adapters.PushBidFunc, done adapters.DoneFunc) {
	a.bid(ctx, slots, true, pushBid, done)
}

func (a *adapter) bid(ctx context.Context, slots []entities.SlotConfig, refresh bool, pushBid adapters.PushBidFunc, done adapters.DoneFunc) {
	defer done()

	request, err := a.makeRequest(ctx, slots, refresh)
	if err != nil {
		glog.Warningf("Bid provider %s failed to build its request: %v", a.name, err)
		return
	}

	response, err := a.http.Do(ctx, request)
	if err != nil {
		glog.Warningf("Bid provider %s request failed: %v", a.name, err)
		return
	}
	if response.IsNoContent() {
		return
	}

	bids, errs := a.makeBids(slots, response)
	for _, err := range errs {
		glog.Warningf("Bid provider %s: %v", a.name, err)
	}
	for _, bid := range bids {
		pushBid(bid)
	}
}

func (a *adapter) makeRequest(ctx context.Context, slots []entities.SlotConfig, refresh bool) (*adapters.RequestData, error) {
	if len(slots) == 0 {
		return nil, errors.New("no slots to bid on")
	}

	id, err := a.idGenerator.Generate()
	if err != nil {
		return nil, err
	}

	bidRequest := openrtb2.BidRequest{
		ID:  id,
		Imp: make([]openrtb2.Imp, 0, len(slots)),
		AT:  1,
		Cur: []string{"USD"},
	}
	if deadline, ok := ctx.Deadline(); ok {
		bidRequest.TMax = time.Until(deadline).Milliseconds()
	}
	if refresh {
		bidRequest.Ext = refreshExt
	}

	for _, slot := range slots {
		formats := make([]openrtb2.Format, 0, len(slot.Sizes))
		for _, size := range slot.Sizes {
			formats = append(formats, openrtb2.Format{W: int64(size.Width()), H: int64(size.Height())})
		}
		bidRequest.Imp = append(bidRequest.Imp, openrtb2.Imp{
			ID:     slot.Name,
			TagID:  slot.Name,
			Banner: &openrtb2.Banner{Format: formats},
		})
	}

	body, err := json.Marshal(bidRequest)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")
	headers.Add("Accept", "application/json")
	headers.Add("X-Openrtb-Version", "2.6")

	return &adapters.RequestData{
		Method:  "POST",
		Uri:     a.endpoint,
		Body:    body,
		Headers: headers,
	}, nil
}

func (a *adapter) makeBids(slots []entities.SlotConfig, response *adapters.ResponseData) ([]*entities.BidObject, []error) {
	var bidResponse openrtb2.BidResponse
	if err := json.Unmarshal(response.Body, &bidResponse); err != nil {
		return nil, []error{fmt.Errorf("bad server response: %v", err)}
	}

	bySlot := make(map[string]entities.SlotConfig, len(slots))
	for _, slot := range slots {
		bySlot[slot.Name] = slot
	}

	var bids []*entities.BidObject
	var errs []error
	for _, seatBid := range bidResponse.SeatBid {
		for i := range seatBid.Bid {
			bid := &seatBid.Bid[i]
			slot, ok := bySlot[bid.ImpID]
			if !ok {
				errs = append(errs, fmt.Errorf("bid %s is for unknown impression %q", bid.ID, bid.ImpID))
				continue
			}
			if bid.Price <= 0 {
				continue
			}

			targeting, err := extTargeting(bid.Ext)
			if err != nil {
				errs = append(errs, fmt.Errorf("bid %s has malformed ext targeting: %v", bid.ID, err))
			}
			if bid.DealID != "" {
				if targeting == nil {
					targeting = make(map[string]string, 1)
				}
				targeting["hb_deal_"+a.name] = bid.DealID
			}

			sizes := slot.Sizes
			if bid.W > 0 && bid.H > 0 {
				sizes = []entities.Size{{int(bid.W), int(bid.H)}}
			}

			bids = append(bids, &entities.BidObject{
				Slot:      slot.Name,
				Value:     strconv.FormatFloat(bid.Price, 'f', 2, 64),
				Sizes:     sizes,
				Targeting: targeting,
				Label:     a.label,
			})
		}
	}
	return bids, errs
}

// extTargeting reads string key/values from bid.ext.prebid.targeting.
func extTargeting(ext json.RawMessage) (map[string]string, error) {
	if len(ext) == 0 {
		return nil, nil
	}

	var targeting map[string]string
	err := jsonparser.ObjectEach(ext, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		if dataType != jsonparser.String {
			return nil
		}
		parsed, err := jsonparser.ParseString(value)
		if err != nil {
			return err
		}
		if targeting == nil {
			targeting = make(map[string]string)
		}
		targeting[string(key)] = parsed
		return nil
	}, "prebid", "targeting")

	if err == jsonparser.KeyPathNotFoundError {
		return targeting, nil
	}
	return targeting, err
}
