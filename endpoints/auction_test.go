package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/exchange"
)

type mockExchange struct {
	lastRequest *exchange.AuctionRequest
	response    *exchange.AuctionResponse
}

func (m *mockExchange) HoldAuction(ctx context.Context, r exchange.AuctionRequest) *exchange.AuctionResponse {
	m.lastRequest = &r
	return m.response
}

func newMockExchange() *mockExchange {
	return &mockExchange{response: &exchange.AuctionResponse{
		ID:    "cycle-1",
		State: exchange.StateDone,
		Targeting: []entities.SlotTargetingObject{
			{Type: entities.TargetingTypeSlot, Name: "top", ID: "t-1", Targeting: map[string]string{"p1": "1.50"}},
		},
		TimedOutBidders: []string{"p2"},
		Errors:          []error{&errortypes.Timeout{Provider: "p2", Message: "p2 timed out"}},
	}}
}

func TestAuctionWithoutBody(t *testing.T) {
	ex := newMockExchange()
	endpoint := NewAuctionEndpoint(ex)

	req := httptest.NewRequest("POST", "/auction", nil)
	recorder := httptest.NewRecorder()
	endpoint(recorder, req, nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	require.NotNil(t, ex.lastRequest)
	assert.Empty(t, ex.lastRequest.SlotNames)

	var body struct {
		ID        string `json:"id"`
		State     string `json:"state"`
		Targeting []struct {
			Type      string            `json:"type"`
			Name      string            `json:"name"`
			Targeting map[string]string `json:"targeting"`
		} `json:"targeting"`
		TimedOutBidders []string `json:"timedOutBidders"`
		Errors          []struct {
			Code     string `json:"code"`
			Provider string `json:"provider"`
			Severity string `json:"severity"`
			Message  string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	assert.Equal(t, "cycle-1", body.ID)
	assert.Equal(t, "DONE", body.State)
	require.Len(t, body.Targeting, 1)
	assert.Equal(t, "slot", body.Targeting[0].Type)
	assert.Equal(t, "top", body.Targeting[0].Name)
	assert.Equal(t, map[string]string{"p1": "1.50"}, body.Targeting[0].Targeting)
	assert.Equal(t, []string{"p2"}, body.TimedOutBidders)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "timeout", body.Errors[0].Code)
	assert.Equal(t, "p2", body.Errors[0].Provider)
	assert.Equal(t, "warning", body.Errors[0].Severity)
	assert.Equal(t, "p2 timed out", body.Errors[0].Message)
}

func TestAuctionWithSlotNames(t *testing.T) {
	ex := newMockExchange()
	endpoint := NewAuctionEndpoint(ex)

	req := httptest.NewRequest("POST", "/auction", strings.NewReader(`{"slots":["top","side"]}`))
	recorder := httptest.NewRecorder()
	endpoint(recorder, req, nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, ex.lastRequest)
	assert.Equal(t, []string{"top", "side"}, ex.lastRequest.SlotNames)
}

func TestAuctionWithMalformedBody(t *testing.T) {
	ex := newMockExchange()
	endpoint := NewAuctionEndpoint(ex)

	req := httptest.NewRequest("POST", "/auction", strings.NewReader(`{"slots":`))
	recorder := httptest.NewRecorder()
	endpoint(recorder, req, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.True(t, strings.HasPrefix(recorder.Body.String(), "Invalid request format: "))
	assert.Nil(t, ex.lastRequest)
}

func TestAuctionWithOversizedBody(t *testing.T) {
	ex := newMockExchange()
	endpoint := NewAuctionEndpoint(ex)

	req := httptest.NewRequest("POST", "/auction", strings.NewReader(strings.Repeat(" ", maxRequestSize+1)))
	recorder := httptest.NewRecorder()
	endpoint(recorder, req, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Nil(t, ex.lastRequest)
}

func TestAuctionWithoutErrorsOmitsThem(t *testing.T) {
	ex := &mockExchange{response: &exchange.AuctionResponse{ID: "cycle-2", State: exchange.StateDone}}
	endpoint := NewAuctionEndpoint(ex)

	recorder := httptest.NewRecorder()
	endpoint(recorder, httptest.NewRequest("POST", "/auction", nil), nil)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.NotContains(t, body, "errors")
}
