package errortypes

// Defines numeric codes for well-known errors.
const (
	UnknownErrorCode = 999
	TimeoutErrorCode = iota
	ContractViolationErrorCode
	BadConfigErrorCode
	TransformFailureErrorCode
	DelegatePanicErrorCode
)

// Coder provides an error or warning code with severity.
type Coder interface {
	Code() int
	Severity() Severity
}

// ReadCode returns the error or warning code, or UnknownErrorCode if unavailable.
func ReadCode(err error) int {
	if e, ok := err.(Coder); ok {
		return e.Code()
	}
	return UnknownErrorCode
}

// CodeName returns a short stable label for the error code, suitable for metrics.
func CodeName(code int) string {
	switch code {
	case TimeoutErrorCode:
		return "timeout"
	case ContractViolationErrorCode:
		return "contract_violation"
	case BadConfigErrorCode:
		return "bad_config"
	case TransformFailureErrorCode:
		return "transform_failure"
	case DelegatePanicErrorCode:
		return "delegate_panic"
	default:
		return "unknown"
	}
}
