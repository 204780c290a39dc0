package transform

import (
	"fmt"
	"sort"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/entities"
)

// Builder makes a TransformDelegate for a configured transform name.
type Builder func() adapters.TransformDelegate

// Builders returns the transforms which can be named in configuration.
func Builders() map[string]Builder {
	return map[string]Builder{
		"drop_empty_values": func() adapters.TransformDelegate { return DropEmptyValues },
		"label_prefix":      func() adapters.TransformDelegate { return LabelPrefix },
	}
}

// Spec names a built-in transform and the params it is applied with.
type Spec struct {
	Name   string
	Params map[string]interface{}
}

// Build resolves configured transforms to operators, preserving order. A name may appear more
// than once with different params.
func Build(specs []Spec) (*Pipeline, error) {
	builders := Builders()
	ops := make([]Operator, 0, len(specs))
	for _, spec := range specs {
		builder, ok := builders[spec.Name]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q, known transforms are %v", spec.Name, knownNames(builders))
		}
		ops = append(ops, Operator{Name: spec.Name, Delegate: builder(), Params: spec.Params})
	}
	return NewPipeline(ops...), nil
}

// DropEmptyValues removes bids which carry no targeting value.
func DropEmptyValues(bids []*entities.Bid, _ map[string]interface{}) []*entities.Bid {
	kept := make([]*entities.Bid, 0, len(bids))
	for _, bid := range bids {
		if bid.Value != "" {
			kept = append(kept, bid)
		}
	}
	return kept
}

// LabelPrefix gives every unlabelled bid the label params["prefix"] + provider, e.g. "hb_pb_p1".
// Without a string prefix param it returns nil and leaves the bid set as it was.
func LabelPrefix(bids []*entities.Bid, params map[string]interface{}) []*entities.Bid {
	prefix, ok := params["prefix"].(string)
	if !ok || prefix == "" {
		return nil
	}

	labelled := make([]*entities.Bid, 0, len(bids))
	for _, bid := range bids {
		b := *bid
		if b.Label == "" {
			b.Label = prefix + b.Provider
		}
		labelled = append(labelled, &b)
	}
	return labelled
}

func knownNames(builders map[string]Builder) []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
