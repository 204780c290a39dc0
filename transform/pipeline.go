package transform

import (
	"fmt"
	"runtime/debug"

	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/adapters"
	"github.com/prebid/prebid-mediator/entities"
	"github.com/prebid/prebid-mediator/errortypes"
)

// Operator is one configured step of the pipeline.
type Operator struct {
	Name     string
	Delegate adapters.TransformDelegate
	Params   map[string]interface{}
}

// Pipeline applies its operators left to right, each one receiving the output of the previous.
// A nil *Pipeline is valid and leaves bids untouched.
type Pipeline struct {
	operators []Operator
}

// NewPipeline builds a pipeline from operators in the order they must run.
func NewPipeline(operators ...Operator) *Pipeline {
	ops := make([]Operator, 0, len(operators))
	for _, op := range operators {
		if op.Delegate != nil {
			ops = append(ops, op)
		}
	}
	return &Pipeline{operators: ops}
}

// Len returns the number of operators.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.operators)
}

// Apply runs every operator over bids. An operator which returns nil is skipped. An operator
// which panics is skipped and reported in the returned errors.
func (p *Pipeline) Apply(bids []*entities.Bid) ([]*entities.Bid, []error) {
	if p == nil {
		return bids, nil
	}

	var errs []error
	working := bids
	for _, op := range p.operators {
		out, err := applySafely(op, working)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if out == nil {
			glog.V(2).Infof("Transform %s dropped its contribution", op.Name)
			continue
		}
		working = out
	}
	return working, errs
}

func applySafely(op Operator, bids []*entities.Bid) (out []*entities.Bid, err error) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("Transform %s recovered panic: %v. Stack trace is: %v", op.Name, r, string(debug.Stack()))
			out = nil
			err = &errortypes.TransformFailure{
				Transform: op.Name,
				Message:   fmt.Sprintf("transform %s panicked: %v", op.Name, r),
			}
		}
	}()
	return op.Delegate(bids, op.Params), nil
}
