package ortb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/entities"
)

type fixedID string

func (f fixedID) Generate() (string, error) { return string(f), nil }

type collector struct {
	mu    sync.Mutex
	bids  []*entities.BidObject
	dones int
}

func (c *collector) push(bid *entities.BidObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bids = append(c.bids, bid)
}

func (c *collector) done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dones++
}

var testSlots = []entities.SlotConfig{
	{Name: "/a/1", Sizes: []entities.Size{{300, 250}, {300, 600}}, BidProviders: []string{"rtb"}},
	{Name: "/a/2", Sizes: []entities.Size{{728, 90}}, BidProviders: []string{"rtb"}},
}

func newTestServer(t *testing.T, status int, response string, requests chan<- openrtb2.BidRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "application/json;charset=utf-8", r.Header.Get("Content-Type"))

		var request openrtb2.BidRequest
		require.NoError(t, json.Unmarshal(body, &request))
		if requests != nil {
			requests <- request
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
}

func TestBidsArePushed(t *testing.T) {
	requests := make(chan openrtb2.BidRequest, 1)
	server := newTestServer(t, http.StatusOK, `{
		"id": "req-1",
		"seatbid": [{
			"seat": "rtb",
			"bid": [
				{"id": "b1", "impid": "/a/1", "price": 1.5, "w": 300, "h": 600,
				 "ext": {"prebid": {"targeting": {"hb_size": "300x600", "hb_count": 2}}}},
				{"id": "b2", "impid": "/a/2", "price": 0.256, "dealid": "deal-9"},
				{"id": "b3", "impid": "/a/3", "price": 9},
				{"id": "b4", "impid": "/a/2", "price": 0}
			]
		}]
	}`, requests)
	defer server.Close()

	delegate, err := newDelegate(config.BidProvider{Name: "rtb", Endpoint: server.URL, Label: "hb_rtb"}, adapters.NewHTTPAdapter(nil), fixedID("req-1"))
	require.NoError(t, err)

	c := &collector{}
	delegate.Init(context.Background(), testSlots, c.push, c.done)

	request := <-requests
	assert.Equal(t, "req-1", request.ID)
	require.Len(t, request.Imp, 2)
	assert.Equal(t, "/a/1", request.Imp[0].ID)
	assert.Equal(t, "/a/1", request.Imp[0].TagID)
	assert.Equal(t, []openrtb2.Format{{W: 300, H: 250}, {W: 300, H: 600}}, request.Imp[0].Banner.Format)
	assert.Empty(t, request.Ext)

	assert.Equal(t, 1, c.dones)
	require.Len(t, c.bids, 2)
	assert.Equal(t, &entities.BidObject{
		Slot:      "/a/1",
		Value:     "1.50",
		Sizes:     []entities.Size{{300, 600}},
		Targeting: map[string]string{"hb_size": "300x600"},
		Label:     "hb_rtb",
	}, c.bids[0])
	assert.Equal(t, &entities.BidObject{
		Slot:      "/a/2",
		Value:     "0.26",
		Sizes:     []entities.Size{{728, 90}},
		Targeting: map[string]string{"hb_deal_rtb": "deal-9"},
		Label:     "hb_rtb",
	}, c.bids[1])
}

func TestRefreshMarksTheRequest(t *testing.T) {
	requests := make(chan openrtb2.BidRequest, 1)
	server := newTestServer(t, http.StatusNoContent, "", requests)
	defer server.Close()

	delegate, err := newDelegate(config.BidProvider{Name: "rtb", Endpoint: server.URL, Refresh: true}, adapters.NewHTTPAdapter(nil), fixedID("req-2"))
	require.NoError(t, err)

	refresher, ok := delegate.(adapters.BidRefresher)
	require.True(t, ok)

	c := &collector{}
	refresher.Refresh(context.Background(), testSlots[:1], c.push, c.done)

	request := <-requests
	assert.JSONEq(t, `{"mediator":{"refresh":true}}`, string(request.Ext))
	assert.Equal(t, 1, c.dones)
	assert.Empty(t, c.bids)
}

func TestRefreshIsOptIn(t *testing.T) {
	delegate, err := Builder(config.BidProvider{Name: "rtb", Endpoint: "http://rtb.example.com/bid"}, adapters.NewHTTPAdapter(nil))
	require.NoError(t, err)

	_, ok := delegate.(adapters.BidRefresher)
	assert.False(t, ok)
	assert.Equal(t, "rtb", delegate.Name())
}

func TestFailuresStillCallDone(t *testing.T) {
	testCases := []struct {
		description string
		status      int
		body        string
	}{
		{description: "server error", status: http.StatusInternalServerError, body: `{}`},
		{description: "malformed body", status: http.StatusOK, body: `{"seatbid":`},
	}

	for _, test := range testCases {
		server := newTestServer(t, test.status, test.body, nil)
		delegate, err := newDelegate(config.BidProvider{Name: "rtb", Endpoint: server.URL}, adapters.NewHTTPAdapter(nil), fixedID("req"))
		require.NoError(t, err, test.description)

		c := &collector{}
		delegate.Init(context.Background(), testSlots, c.push, c.done)
		server.Close()

		assert.Equal(t, 1, c.dones, test.description)
		assert.Empty(t, c.bids, test.description)
	}
}

func TestBuilderRejectsBadEndpoints(t *testing.T) {
	_, err := Builder(config.BidProvider{Name: "rtb"}, adapters.NewHTTPAdapter(nil))
	assert.Error(t, err)

	_, err = Builder(config.BidProvider{Name: "rtb", Endpoint: "not a url"}, adapters.NewHTTPAdapter(nil))
	assert.Error(t, err)
}

func TestExtTargeting(t *testing.T) {
	testCases := []struct {
		description string
		ext         string
		expected    map[string]string
	}{
		{description: "no ext"},
		{description: "no targeting", ext: `{"prebid":{"type":"banner"}}`},
		{description: "strings only", ext: `{"prebid":{"targeting":{"a":"1","b":2,"c":"x\"y"}}}`, expected: map[string]string{"a": "1", "c": `x"y`}},
	}

	for _, test := range testCases {
		targeting, err := extTargeting(json.RawMessage(test.ext))
		assert.NoError(t, err, test.description)
		assert.Equal(t, test.expected, targeting, test.description)
	}
}
