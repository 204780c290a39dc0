package eventchannel

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/golang/glog"

	"github.com/prebid/prebid-mediator/events"
	"github.com/prebid/prebid-mediator/util/randomutil"
)

type eventFilter func(e events.Event) bool

// filterEnv is what a filter expression is evaluated against.
type filterEnv struct {
	Type     string
	Provider string
	Slot     string
	Code     int
}

func newFilterEnv(e events.Event) filterEnv {
	env := filterEnv{Type: string(e.Type)}
	switch data := e.Data.(type) {
	case events.BidProviderData:
		env.Provider = data.BidProvider
	case events.AuctionProviderData:
		env.Provider = data.AuctionProvider
	case events.BidNextData:
		env.Provider = data.BidProvider
		env.Slot = data.Slot
	case events.ErrorData:
		env.Code = data.Code
	}
	return env
}

func createFilter(sampleRate float64, filter string, sampler randomutil.Sampler) (eventFilter, error) {
	var filterProgram *vm.Program
	var err error
	if filter != "" {
		// precompile the filter expression for performance, make sure we return a boolean from the expression
		filterProgram, err = expr.Compile(filter, expr.Env(filterEnv{}), expr.AsBool())
		if err != nil {
			return nil, err
		}
	}

	return func(e events.Event) bool {
		if sampleRate <= 0 || sampler.GenerateFloat64() >= sampleRate {
			return false
		}

		if filterProgram != nil {
			output, err := expr.Run(filterProgram, newFilterEnv(e))
			if err != nil {
				glog.Errorf("[eventchannel] Error filter: %v", err)
				return false
			}
			return output.(bool)
		}

		return true
	}, nil
}
