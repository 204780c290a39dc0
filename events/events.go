package events

import (
	"runtime/debug"
	"time"

	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
)

// EventKind enumerates the auction lifecycle notifications. The set is closed.
type EventKind string

const (
	BidLibStart      EventKind = "bplibstart"
	BidLibLoaded     EventKind = "bplibloaded"
	BidStart         EventKind = "bidstart"
	BidNext          EventKind = "bidnext"
	BidComplete      EventKind = "bidcomplete"
	AuctionLibStart  EventKind = "aplibstart"
	AuctionLibLoaded EventKind = "aplibloaded"
	AuctionGo        EventKind = "auctiongo"
	AuctionComplete  EventKind = "auctioncomplete"
	Error            EventKind = "error"
)

// Kinds returns every EventKind in lifecycle order.
func Kinds() []EventKind {
	return []EventKind{
		BidLibStart,
		BidLibLoaded,
		BidStart,
		BidNext,
		BidComplete,
		AuctionLibStart,
		AuctionLibLoaded,
		AuctionGo,
		AuctionComplete,
		Error,
	}
}

// Event is a single published notification. It must not be mutated after publishing.
type Event struct {
	Timestamp time.Time   `json:"ts"`
	Type      EventKind   `json:"type"`
	Data      interface{} `json:"data"`
}

// BidProviderData is the payload of BidLibStart, BidLibLoaded, BidStart and BidComplete.
type BidProviderData struct {
	BidProvider string `json:"bidProvider"`
}

// AuctionProviderData is the payload of AuctionLibStart and AuctionLibLoaded.
type AuctionProviderData struct {
	AuctionProvider string `json:"auctionProvider"`
}

// BidNextData is the payload of BidNext.
type BidNextData struct {
	ID              string            `json:"id"`
	Slot            string            `json:"slot"`
	BidProvider     string            `json:"bidProvider"`
	Sizes           []entities.Size   `json:"sizes"`
	Value           string            `json:"value"`
	CustomTargeting map[string]string `json:"customTargeting,omitempty"`
}

// EmptyData is the payload of AuctionGo and AuctionComplete.
type EmptyData struct{}

// ErrorData is the payload of Error.
type ErrorData struct {
	Err        error  `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace"`
}

// NewErrorData wraps err for publishing. Panics recovered at a delegate boundary already carry
// the delegate's stack; anything else gets the stack of the caller.
func NewErrorData(err error) ErrorData {
	stack := ""
	if p, ok := err.(*errortypes.DelegatePanic); ok {
		stack = p.StackTrace
	}
	if stack == "" {
		stack = string(debug.Stack())
	}
	return ErrorData{
		Err:        err,
		Code:       errortypes.ReadCode(err),
		Message:    err.Error(),
		StackTrace: stack,
	}
}
