package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeMarshalsAsPair(t *testing.T) {
	b, err := json.Marshal([]Size{{300, 250}, {728, 90}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[300,250],[728,90]]`, string(b))

	assert.Equal(t, "300x250", Size{300, 250}.String())
	assert.Equal(t, 728, Size{728, 90}.Width())
	assert.Equal(t, 90, Size{728, 90}.Height())
}

func TestSlotConfigHasBidProvider(t *testing.T) {
	slot := SlotConfig{Name: "/a/1", BidProviders: []string{"p1", "p2"}}

	assert.True(t, slot.HasBidProvider("p2"))
	assert.False(t, slot.HasBidProvider("p3"))
}

func TestBidTargetingKey(t *testing.T) {
	testCases := []struct {
		description string
		bid         Bid
		expected    string
	}{
		{
			description: "provider name when no label",
			bid:         Bid{Provider: "p1", BidObject: BidObject{Value: "1.50"}},
			expected:    "p1",
		},
		{
			description: "label wins",
			bid:         Bid{Provider: "p1", BidObject: BidObject{Value: "1.50", Label: "hb_p1"}},
			expected:    "hb_p1",
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, test.bid.TargetingKey(), test.description)
	}
}

func TestBidObjectCloneIsDeep(t *testing.T) {
	original := BidObject{
		Slot:      "/a/1",
		Value:     "1.50",
		Sizes:     []Size{{300, 250}},
		Targeting: map[string]string{"deal": "abc"},
	}

	clone := original.Clone()
	original.Sizes[0] = Size{1, 1}
	original.Targeting["deal"] = "changed"

	assert.Equal(t, []Size{{300, 250}}, clone.Sizes)
	assert.Equal(t, "abc", clone.Targeting["deal"])
	assert.Nil(t, BidObject{}.Clone().Targeting)
}
