package prometheusmetrics

import (
	"github.com/prebid/prebid-mediator/errortypes"
	"github.com/prebid/prebid-mediator/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// preloadLabelValues makes the label combinations which do not depend on delegate names show up
// in the exposition before the first cycle runs.
func preloadLabelValues(m *Metrics) {
	cycleTypeValues := cycleTypesAsString()
	boolValues := []string{"true", "false"}
	errorCodeValues := []string{
		errortypes.CodeName(errortypes.TimeoutErrorCode),
		errortypes.CodeName(errortypes.ContractViolationErrorCode),
		errortypes.CodeName(errortypes.BadConfigErrorCode),
		errortypes.CodeName(errortypes.TransformFailureErrorCode),
		errortypes.CodeName(errortypes.DelegatePanicErrorCode),
		errortypes.CodeName(errortypes.UnknownErrorCode),
	}

	preloadLabelValuesForCounter(m.cycles, map[string][]string{
		cycleTypeLabel: cycleTypeValues,
		hasErrorsLabel: boolValues,
	})

	preloadLabelValuesForHistogram(m.cyclesTimer, map[string][]string{
		cycleTypeLabel: cycleTypeValues,
	})

	preloadLabelValuesForCounter(m.errors, map[string][]string{
		codeLabel: errorCodeValues,
	})
}

func cycleTypesAsString() []string {
	values := metrics.CycleTypes()
	valuesAsString := make([]string, len(values))
	for i, v := range values {
		valuesAsString[i] = string(v)
	}
	return valuesAsString
}

func preloadLabelValuesForCounter(counter *prometheus.CounterVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		counter.With(labels)
	})
}

func preloadLabelValuesForHistogram(histogram *prometheus.HistogramVec, labelsWithValues map[string][]string) {
	registerLabelPermutations(labelsWithValues, func(labels prometheus.Labels) {
		histogram.With(labels)
	})
}

func registerLabelPermutations(labelsWithValues map[string][]string, register func(prometheus.Labels)) {
	if len(labelsWithValues) == 0 {
		return
	}

	keys := make([]string, 0, len(labelsWithValues))
	values := make([][]string, 0, len(labelsWithValues))
	for k, v := range labelsWithValues {
		keys = append(keys, k)
		values = append(values, v)
	}

	labels := prometheus.Labels{}
	registerLabelPermutationsRecursive(0, keys, values, labels, register)
}

func registerLabelPermutationsRecursive(depth int, keys []string, values [][]string, labels prometheus.Labels, register func(prometheus.Labels)) {
	label := keys[depth]
	isLeaf := depth == len(keys)-1

	if isLeaf {
		for _, v := range values[depth] {
			labels[label] = v
			register(cloneLabels(labels))
		}
	} else {
		for _, v := range values[depth] {
			labels[label] = v
			registerLabelPermutationsRecursive(depth+1, keys, values, labels, register)
		}
	}
}

func cloneLabels(labels prometheus.Labels) prometheus.Labels {
	clone := prometheus.Labels{}
	for k, v := range labels {
		clone[k] = v
	}
	return clone
}

