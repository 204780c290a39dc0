package errortypes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCode(t *testing.T) {
	testCases := []struct {
		description string
		err         error
		expected    int
	}{
		{"timeout", &Timeout{Message: "late"}, TimeoutErrorCode},
		{"contract", &ContractViolation{Message: "twice"}, ContractViolationErrorCode},
		{"config", &BadConfig{Message: "dup"}, BadConfigErrorCode},
		{"transform", &TransformFailure{Message: "boom"}, TransformFailureErrorCode},
		{"panic", &DelegatePanic{Message: "boom"}, DelegatePanicErrorCode},
		{"plain", errors.New("plain"), UnknownErrorCode},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, ReadCode(test.err), test.description)
	}
}

func TestCodeNameIsStable(t *testing.T) {
	assert.Equal(t, "timeout", CodeName(TimeoutErrorCode))
	assert.Equal(t, "contract_violation", CodeName(ContractViolationErrorCode))
	assert.Equal(t, "bad_config", CodeName(BadConfigErrorCode))
	assert.Equal(t, "unknown", CodeName(UnknownErrorCode))
}

func TestReadProvider(t *testing.T) {
	assert.Equal(t, "p2", ReadProvider(&Timeout{Provider: "p2"}))
	assert.Equal(t, "p1", ReadProvider(&ContractViolation{Provider: "p1"}))
	assert.Equal(t, "p3", ReadProvider(&DelegatePanic{Provider: "p3"}))
	assert.Empty(t, ReadProvider(&BadConfig{Message: "x"}))
}

func TestSeverityFilters(t *testing.T) {
	errs := []error{
		&Timeout{Message: "late"},
		&BadConfig{Message: "dup"},
		errors.New("unclassified"),
	}

	assert.True(t, ContainsFatalError(errs))
	assert.Len(t, FatalOnly(errs), 2, "unclassified errors count as fatal")
	assert.Len(t, WarningOnly(errs), 1)
	assert.False(t, ContainsFatalError(WarningOnly(errs)))
}

func TestAggregateErrors(t *testing.T) {
	assert.Empty(t, NewAggregateErrors("validation errors", nil).Error())

	one := NewAggregateErrors("validation errors", []error{errors.New("bad port")})
	assert.Equal(t, "validation errors (1 error):\n  1: bad port\n", one.Error())

	target := &BadConfig{Message: "dup"}
	two := NewAggregateErrors("validation errors", []error{errors.New("bad port"), target})
	assert.Equal(t, "validation errors (2 errors):\n  1: bad port\n  2: dup\n", two.Error())

	var bc *BadConfig
	assert.True(t, errors.As(two, &bc))
	assert.Same(t, target, bc)
}
