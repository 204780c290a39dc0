package exchange

import (
	"sort"

	"github.com/prebid/prebid-mediator/entities"
)

// buildTargeting groups bids by slot into one targeting object per slot, in slot order. Slots
// without bids still get an object, with empty targeting. A page level object is appended when
// page targeting is configured.
//
// Within a slot, each bid contributes its custom targeting and then its value under its
// targeting key. Later bids win on key collisions.
//
// Bids for slots outside the cycle are left out. Their slot names come back sorted as orphans.
func buildTargeting(slots []entities.SlotConfig, bids []*entities.Bid, pageTargeting map[string]string, newID func() string) ([]entities.SlotTargetingObject, []string) {
	bySlot := make(map[string][]*entities.Bid, len(slots))
	for _, bid := range bids {
		if bid == nil {
			continue
		}
		bySlot[bid.Slot] = append(bySlot[bid.Slot], bid)
	}

	targeting := make([]entities.SlotTargetingObject, 0, len(slots)+1)
	for _, slot := range slots {
		kv := make(map[string]string)
		for _, bid := range bySlot[slot.Name] {
			for k, v := range bid.Targeting {
				kv[k] = v
			}
			kv[bid.TargetingKey()] = bid.Value
		}
		delete(bySlot, slot.Name)

		targeting = append(targeting, entities.SlotTargetingObject{
			Type:      entities.TargetingTypeSlot,
			Name:      slot.Name,
			ID:        newID(),
			ElementID: slot.ElementID,
			Sizes:     append([]entities.Size{}, slot.Sizes...),
			Targeting: kv,
		})
	}

	orphans := make([]string, 0, len(bySlot))
	for name := range bySlot {
		orphans = append(orphans, name)
	}
	sort.Strings(orphans)

	if len(pageTargeting) > 0 {
		kv := make(map[string]string, len(pageTargeting))
		for k, v := range pageTargeting {
			kv[k] = v
		}
		targeting = append(targeting, entities.SlotTargetingObject{
			Type:      entities.TargetingTypePage,
			ID:        newID(),
			Sizes:     []entities.Size{},
			Targeting: kv,
		})
	}
	return targeting, orphans
}
