package adapters

import "github.com/prebid/prebid-mediator/entities"

// TransformDelegate rewrites the bid set collected in a cycle before targeting is built. The
// returned slice replaces the working set; returning nil leaves the working set untouched.
// Implementations must be pure: no goroutines, no dependence on call order across cycles.
type TransformDelegate func(bids []*entities.Bid, params map[string]interface{}) []*entities.Bid
