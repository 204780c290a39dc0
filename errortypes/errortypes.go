package errortypes

// Timeout should be used to flag that a delegate failed to call done() before its callback
// timeout elapsed. Whatever the delegate produced before the deadline is kept.
type Timeout struct {
	Provider string
	Message  string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityWarning
}

// ContractViolation should be used when a delegate breaks the callback protocol: calling done()
// more than once, or pushing a bid for a slot it was not asked to bid on.
type ContractViolation struct {
	Provider string
	Message  string
}

func (err *ContractViolation) Error() string {
	return err.Message
}

func (err *ContractViolation) Code() int {
	return ContractViolationErrorCode
}

func (err *ContractViolation) Severity() Severity {
	return SeverityWarning
}

// DelegatePanic is used when delegate code panics at the call boundary. The recovered value and
// the goroutine stack are kept so reporters can surface them.
type DelegatePanic struct {
	Provider   string
	Message    string
	StackTrace string
}

func (err *DelegatePanic) Error() string {
	return err.Message
}

func (err *DelegatePanic) Code() int {
	return DelegatePanicErrorCode
}

func (err *DelegatePanic) Severity() Severity {
	return SeverityWarning
}

// BadConfig should be used for configuration problems: duplicate delegate names, slots which
// reference unknown providers, or settings which fail validation at startup.
type BadConfig struct {
	Message string
}

func (err *BadConfig) Error() string {
	return err.Message
}

func (err *BadConfig) Code() int {
	return BadConfigErrorCode
}

func (err *BadConfig) Severity() Severity {
	return SeverityFatal
}

// TransformFailure is used when a transform delegate panics. The pipeline skips the failed
// transform and carries on with the previous working bid set.
type TransformFailure struct {
	Transform string
	Message   string
}

func (err *TransformFailure) Error() string {
	return err.Message
}

func (err *TransformFailure) Code() int {
	return TransformFailureErrorCode
}

func (err *TransformFailure) Severity() Severity {
	return SeverityWarning
}

// ReadProvider returns the delegate name an error is attributed to, if any.
func ReadProvider(err error) string {
	switch e := err.(type) {
	case *Timeout:
		return e.Provider
	case *ContractViolation:
		return e.Provider
	case *DelegatePanic:
		return e.Provider
	}
	return ""
}
