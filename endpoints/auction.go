package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"

	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/exchange"
)

// maxRequestSize bounds the optional /auction body, which only ever carries slot names.
const maxRequestSize = 64 * 1024

type auctionError struct {
	Code     string `json:"code"`
	Provider string `json:"provider,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type auctionResponse struct {
	*exchange.AuctionResponse
	Errors []auctionError `json:"errors,omitempty"`
}

// NewAuctionEndpoint runs one auction cycle per request. The body is optional: {"slots": [...]}
// restricts the cycle to those slots.
func NewAuctionEndpoint(ex exchange.Exchange) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req, err := parseAuctionRequest(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Invalid request format: %s", err.Error())
			return
		}

		resp := ex.HoldAuction(r.Context(), req)

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		if err := enc.Encode(toAuctionResponse(resp)); err != nil {
			glog.Errorf("/auction failed to write the response: %v", err)
		}
	}
}

func parseAuctionRequest(r *http.Request) (exchange.AuctionRequest, error) {
	var req exchange.AuctionRequest
	if r.Body == nil {
		return req, nil
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	if err != nil {
		return req, err
	}
	if len(body) > maxRequestSize {
		return req, fmt.Errorf("request body exceeds %d bytes", maxRequestSize)
	}
	if len(body) == 0 {
		return req, nil
	}
	err = json.Unmarshal(body, &req)
	return req, err
}

func toAuctionResponse(resp *exchange.AuctionResponse) auctionResponse {
	out := auctionResponse{AuctionResponse: resp}
	for _, err := range resp.Errors {
		severity := "fatal"
		if errortypes.IsWarning(err) {
			severity = "warning"
		}
		out.Errors = append(out.Errors, auctionError{
			Code:     errortypes.CodeName(errortypes.ReadCode(err)),
			Provider: errortypes.ReadProvider(err),
			Severity: severity,
			Message:  err.Error(),
		})
	}
	return out
}
