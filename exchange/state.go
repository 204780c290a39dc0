package exchange

// State is where an auction cycle is in its lifecycle. Cycles only move forward.
type State int

const (
	StateIdle State = iota
	StateBidCollection
	StateTargetingAssembly
	StateAuctionTrigger
	StateAuctionRunning
	StateDone
)

var stateNames = [...]string{
	StateIdle:              "IDLE",
	StateBidCollection:     "BID_COLLECTION",
	StateTargetingAssembly: "TARGETING_ASSEMBLY",
	StateAuctionTrigger:    "AUCTION_TRIGGER",
	StateAuctionRunning:    "AUCTION_RUNNING",
	StateDone:              "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
