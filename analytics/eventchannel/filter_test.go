package eventchannel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-mediator/events"
)

type fakeSampler struct {
	number float64
}

func (f fakeSampler) GenerateFloat64() float64 {
	return f.number
}

func TestCreateFilter(t *testing.T) {
	bidStart := events.Event{Type: events.BidStart, Data: events.BidProviderData{BidProvider: "p1"}}
	bidNext := events.Event{Type: events.BidNext, Data: events.BidNextData{BidProvider: "p2", Slot: "top"}}
	timeout := events.Event{Type: events.Error, Data: events.ErrorData{Code: 1}}

	testCases := []struct {
		name       string
		sampleRate float64
		sample     float64
		filter     string
		event      events.Event
		expected   bool
	}{
		{name: "everything sampled", sampleRate: 1, sample: 0.99, event: bidStart, expected: true},
		{name: "sample rate 0", sampleRate: 0, sample: 0, event: bidStart, expected: false},
		{name: "sampled out", sampleRate: 0.5, sample: 0.5, event: bidStart, expected: false},
		{name: "sampled in", sampleRate: 0.5, sample: 0.49, event: bidStart, expected: true},
		{name: "filter on type", sampleRate: 1, filter: `Type == "bidstart"`, event: bidStart, expected: true},
		{name: "filter on type mismatch", sampleRate: 1, filter: `Type == "error"`, event: bidStart, expected: false},
		{name: "filter on provider", sampleRate: 1, filter: `Provider == "p1"`, event: bidStart, expected: true},
		{name: "filter on slot", sampleRate: 1, filter: `Slot == "top" && Provider == "p2"`, event: bidNext, expected: true},
		{name: "filter on error code", sampleRate: 1, filter: `Code == 1`, event: timeout, expected: true},
	}

	for _, test := range testCases {
		filter, err := createFilter(test.sampleRate, test.filter, fakeSampler{number: test.sample})
		require.NoError(t, err, test.name)
		assert.Equal(t, test.expected, filter(test.event), test.name)
	}
}

func TestCreateFilterRejectsNonBooleanExpressions(t *testing.T) {
	_, err := createFilter(1, `Provider`, fakeSampler{})
	assert.Error(t, err)
}
