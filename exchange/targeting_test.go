package exchange

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-mediator/entities"
)

func counterIDs() func() string {
	next := 0
	return func() string {
		next++
		return "t" + strconv.Itoa(next)
	}
}

func bid(provider, slot, value string) *entities.Bid {
	return &entities.Bid{Provider: provider, BidObject: entities.BidObject{Slot: slot, Value: value}}
}

func TestBuildTargeting(t *testing.T) {
	slots := []entities.SlotConfig{
		{Name: "/a/1", ElementID: "div-1", Sizes: []entities.Size{{300, 250}}},
		{Name: "/a/2", Sizes: []entities.Size{{728, 90}}},
		{Name: "/a/3"},
	}

	testCases := []struct {
		description string
		bids        []*entities.Bid
		expected    []map[string]string
		orphans     []string
	}{
		{
			description: "no bids",
			expected:    []map[string]string{{}, {}, {}},
		},
		{
			description: "grouped by slot in slot order",
			bids: []*entities.Bid{
				bid("p2", "/a/2", "0.10"),
				bid("p1", "/a/1", "1.00"),
				bid("p2", "/a/1", "2.00"),
			},
			expected: []map[string]string{{"p1": "1.00", "p2": "2.00"}, {"p2": "0.10"}, {}},
		},
		{
			description: "later bids win on collisions",
			bids: []*entities.Bid{
				bid("p1", "/a/1", "1.00"),
				bid("p1", "/a/1", "3.00"),
			},
			expected: []map[string]string{{"p1": "3.00"}, {}, {}},
		},
		{
			description: "label and custom targeting",
			bids: []*entities.Bid{
				{Provider: "p1", BidObject: entities.BidObject{
					Slot:      "/a/3",
					Value:     "1.00",
					Label:     "hb_p1",
					Targeting: map[string]string{"hb_deal": "d1", "hb_p1": "overwritten"},
				}},
			},
			expected: []map[string]string{{}, {}, {"hb_p1": "1.00", "hb_deal": "d1"}},
		},
		{
			description: "bids for other slots and nil bids are dropped",
			bids: []*entities.Bid{
				nil,
				bid("p1", "/elsewhere", "9.00"),
				bid("p1", "/a/2", "1.00"),
				bid("p2", "/another", "2.00"),
				bid("p2", "/elsewhere", "3.00"),
			},
			expected: []map[string]string{{}, {"p1": "1.00"}, {}},
			orphans:  []string{"/another", "/elsewhere"},
		},
	}

	for _, test := range testCases {
		targeting, orphans := buildTargeting(slots, test.bids, nil, counterIDs())

		if test.orphans == nil {
			assert.Empty(t, orphans, test.description)
		} else {
			assert.Equal(t, test.orphans, orphans, test.description)
		}
		require.Len(t, targeting, len(slots), test.description)
		for i, object := range targeting {
			assert.Equal(t, entities.TargetingTypeSlot, object.Type, test.description)
			assert.Equal(t, slots[i].Name, object.Name, test.description)
			assert.Equal(t, "t"+strconv.Itoa(i+1), object.ID, test.description)
			assert.Equal(t, test.expected[i], object.Targeting, test.description)
		}
	}
}

func TestBuildTargetingCopiesSlotSizes(t *testing.T) {
	slots := []entities.SlotConfig{{Name: "/a/1", ElementID: "div-1", Sizes: []entities.Size{{300, 250}}}}

	targeting, _ := buildTargeting(slots, nil, nil, counterIDs())
	targeting[0].Sizes[0] = entities.Size{1, 1}

	assert.Equal(t, entities.Size{300, 250}, slots[0].Sizes[0])
	assert.Equal(t, "div-1", targeting[0].ElementID)
}

func TestBuildTargetingPageObject(t *testing.T) {
	page := map[string]string{"section": "news"}
	slots := []entities.SlotConfig{{Name: "/a/1"}}

	targeting, orphans := buildTargeting(slots, []*entities.Bid{bid("p1", "/a/1", "1.00")}, page, counterIDs())
	assert.Empty(t, orphans)

	require.Len(t, targeting, 2)
	assert.Equal(t, entities.TargetingTypePage, targeting[1].Type)
	assert.Equal(t, "", targeting[1].Name)
	assert.Equal(t, "t2", targeting[1].ID)
	assert.Equal(t, page, targeting[1].Targeting)

	targeting[1].Targeting["section"] = "sports"
	assert.Equal(t, "news", page["section"])
}

func TestBuildTargetingWithoutSlots(t *testing.T) {
	targeting, orphans := buildTargeting(nil, []*entities.Bid{bid("p1", "/a/1", "1.00")}, nil, counterIDs())

	assert.Empty(t, targeting)
	assert.Equal(t, []string{"/a/1"}, orphans)
}
