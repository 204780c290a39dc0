package entities

import "strconv"

// Size is a [width, height] pair. It marshals to a two element JSON array.
type Size [2]int

// Width of the creative slot.
func (s Size) Width() int { return s[0] }

// Height of the creative slot.
func (s Size) Height() int { return s[1] }

// String renders the size the way ad servers expect it, e.g. "300x250".
func (s Size) String() string {
	return strconv.Itoa(s[0]) + "x" + strconv.Itoa(s[1])
}

// SlotConfig identifies one ad placement and the bid providers allowed to bid on it.
type SlotConfig struct {
	// Name of the slot/ad unit in the auction provider system, e.g. "/abc/123/rectangle".
	Name string `json:"name"`
	// ElementID is the publisher's target element for the slot, if any.
	ElementID    string   `json:"elementId,omitempty"`
	Sizes        []Size   `json:"sizes"`
	BidProviders []string `json:"bidProviders"`
}

// HasBidProvider reports whether the named provider may bid on this slot.
func (s SlotConfig) HasBidProvider(name string) bool {
	for _, p := range s.BidProviders {
		if p == name {
			return true
		}
	}
	return false
}

// BidObject is what a bid delegate hands to its pushBid callback.
type BidObject struct {
	Slot string `json:"slot"`
	// Value is the publisher ad server targeting bid value.
	Value string `json:"value"`
	Sizes []Size `json:"sizes"`
	// Targeting carries additional key/value pairs for the ad server.
	Targeting map[string]string `json:"targeting,omitempty"`
	// Label is the targeting key to use for the bid value. Defaults to the provider name.
	Label string `json:"label,omitempty"`
}

// Clone returns a deep copy, so a delegate mutating its own BidObject after pushing it cannot
// change an accepted bid.
func (b BidObject) Clone() BidObject {
	clone := b
	if b.Sizes != nil {
		clone.Sizes = append([]Size(nil), b.Sizes...)
	}
	if b.Targeting != nil {
		clone.Targeting = make(map[string]string, len(b.Targeting))
		for k, v := range b.Targeting {
			clone.Targeting[k] = v
		}
	}
	return clone
}

// Bid is a BidObject accepted into an auction cycle.
type Bid struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	BidObject
}

// TargetingKey returns the key the bid value is stored under in slot targeting.
func (b *Bid) TargetingKey() string {
	if b.Label != "" {
		return b.Label
	}
	return b.Provider
}

// TargetingType is the level a SlotTargetingObject applies to.
type TargetingType string

const (
	TargetingTypeSlot TargetingType = "slot"
	TargetingTypePage TargetingType = "page"
)

// SlotTargetingObject is the key/value targeting handed to the auction delegate for one slot,
// or for the whole page when Type is TargetingTypePage.
type SlotTargetingObject struct {
	Type TargetingType `json:"type"`
	// Name is the slot name. Empty for page level targeting.
	Name      string            `json:"name,omitempty"`
	ID        string            `json:"id"`
	ElementID string            `json:"elementId,omitempty"`
	Sizes     []Size            `json:"sizes"`
	Targeting map[string]string `json:"targeting"`
}
