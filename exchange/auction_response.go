package exchange

import (
	"github.com/prebid/prebid-mediator/entities"
)

// AuctionRequest scopes one auction cycle.
type AuctionRequest struct {
	// SlotNames restricts the cycle to the named slots. Empty means every configured slot.
	SlotNames []string `json:"slots,omitempty"`
}

// AuctionResponse is what a completed cycle produced. A cycle always completes, so errors are
// reported alongside the results instead of replacing them.
type AuctionResponse struct {
	ID    string `json:"id"`
	State State  `json:"state"`
	// Bids is the working bid set after the transform pipeline ran.
	Bids      []*entities.Bid                `json:"bids"`
	Targeting []entities.SlotTargetingObject `json:"targeting"`
	// TimedOutBidders lists bid delegates which missed the bid provider callback timeout.
	TimedOutBidders []string `json:"timedOutBidders,omitempty"`
	AuctionTimedOut bool     `json:"auctionTimedOut,omitempty"`
	Errors          []error  `json:"-"`
}

// HasErrors reports whether any error was published during the cycle.
func (r *AuctionResponse) HasErrors() bool {
	return len(r.Errors) > 0
}
