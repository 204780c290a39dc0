package adserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/config"
	"github.com/prebid/prebid-mediator/entities"
)

var testTargeting = []entities.SlotTargetingObject{
	{
		Type:      entities.TargetingTypeSlot,
		Name:      "/a/1",
		ID:        "t1",
		Sizes:     []entities.Size{{300, 250}},
		Targeting: map[string]string{"p1": "1.50"},
	},
}

func newRecordingServer(t *testing.T, status int, requests chan<- Request) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var request Request
		require.NoError(t, json.Unmarshal(body, &request))
		requests <- request
		w.WriteHeader(status)
	}))
}

func TestInitPostsTargeting(t *testing.T) {
	requests := make(chan Request, 1)
	server := newRecordingServer(t, http.StatusOK, requests)
	defer server.Close()

	delegate, err := Builder(config.AuctionProvider{Name: "gam", Endpoint: server.URL}, adapters.NewHTTPAdapter(nil))
	require.NoError(t, err)

	dones := 0
	delegate.Init(context.Background(), testTargeting, func() { dones++ })

	request := <-requests
	assert.Equal(t, "gam", request.Provider)
	assert.False(t, request.Refresh)
	assert.Equal(t, testTargeting, request.Targeting)
	assert.Equal(t, 1, dones)

	_, refreshes := delegate.(adapters.AuctionRefresher)
	assert.False(t, refreshes)
}

func TestRefresh(t *testing.T) {
	requests := make(chan Request, 1)
	server := newRecordingServer(t, http.StatusServiceUnavailable, requests)
	defer server.Close()

	delegate, err := Builder(config.AuctionProvider{Name: "gam", Endpoint: server.URL, Refresh: true}, adapters.NewHTTPAdapter(nil))
	require.NoError(t, err)

	refresher, ok := delegate.(adapters.AuctionRefresher)
	require.True(t, ok)

	dones := 0
	refresher.Refresh(context.Background(), testTargeting, func() { dones++ })

	assert.True(t, (<-requests).Refresh)
	assert.Equal(t, 1, dones, "done is called even when the ad server fails")
}

func TestBuilderRequiresAnEndpoint(t *testing.T) {
	_, err := Builder(config.AuctionProvider{Name: "gam"}, adapters.NewHTTPAdapter(nil))
	assert.Error(t, err)
}
