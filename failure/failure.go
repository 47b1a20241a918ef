package failure

import (
	"errors"
	"maps"
	"strings"
)

// Kind discriminates the failure variants.
type Kind int

const (
	// KindPermanent failures are never retried. It is the zero value so an
	// unclassified failure fails closed.
	KindPermanent Kind = iota
	// KindTransient failures are worth retrying.
	KindTransient
	// KindCircuitOpen signals that a circuit breaker rejected the call.
	KindCircuitOpen
	// KindTimeout signals that a deadline elapsed before the task settled.
	KindTimeout
	// KindAggregate wraps the failures of a batch.
	KindAggregate
	// KindValidation signals bad caller input.
	KindValidation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPermanent:
		return "permanent"
	case KindTransient:
		return "transient"
	case KindCircuitOpen:
		return "circuit_open"
	case KindTimeout:
		return "timeout"
	case KindAggregate:
		return "aggregate"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Name returns the display name used in serialized failures.
func (k Kind) Name() string {
	switch k {
	case KindTransient:
		return "TransientError"
	case KindCircuitOpen:
		return "CircuitOpenError"
	case KindTimeout:
		return "TimeoutError"
	case KindAggregate:
		return "AggregateError"
	case KindValidation:
		return "ValidationError"
	default:
		return "PermanentError"
	}
}

// Well-known failure codes.
const (
	CodeTransient        = "TRANSIENT"
	CodePermanent        = "PERMANENT"
	CodeValidation       = "VALIDATION"
	CodeCircuitOpen      = "CIRCUIT_OPEN"
	CodeTimeout          = "TIMEOUT"
	CodeRetriesExhausted = "RETRIES_EXHAUSTED"
	CodeAggregate        = "AGGREGATE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeTaskPanic        = "TASK_PANIC"
)

// Failure is the classified error produced and consumed by the toolkit.
type Failure struct {
	Kind    Kind
	Code    string
	Message string

	// Cause is the failure this one wraps, if any.
	Cause error

	// Meta carries structured details such as attempt counts.
	Meta map[string]any

	// Errors holds the member failures of an aggregate, in task order.
	Errors []error

	retryable *bool
}

// Option configures a Failure at construction.
type Option func(*Failure)

// WithCode sets the machine-readable code.
func WithCode(code string) Option {
	return func(f *Failure) {
		f.Code = code
	}
}

// WithCause sets the wrapped cause.
func WithCause(cause error) Option {
	return func(f *Failure) {
		f.Cause = cause
	}
}

// WithMeta attaches one metadata entry.
func WithMeta(key string, value any) Option {
	return func(f *Failure) {
		if f.Meta == nil {
			f.Meta = make(map[string]any)
		}
		f.Meta[key] = value
	}
}

// WithRetryable overrides whether a timeout failure may be retried.
// It has no effect on circuit-open or aggregate failures.
func WithRetryable(retryable bool) Option {
	return func(f *Failure) {
		f.retryable = &retryable
	}
}

// New creates a failure of the given kind.
func New(kind Kind, message string, opts ...Option) *Failure {
	f := &Failure{Kind: kind, Message: message, Code: defaultCode(kind)}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Wrap creates a failure of the given kind around cause.
func Wrap(kind Kind, cause error, message string, opts ...Option) *Failure {
	f := New(kind, message, opts...)
	f.Cause = cause
	return f
}

// Transient creates a retry-eligible failure.
func Transient(message string, opts ...Option) *Failure {
	return New(KindTransient, message, opts...)
}

// Permanent creates a failure that is never retried.
func Permanent(message string, opts ...Option) *Failure {
	return New(KindPermanent, message, opts...)
}

// Validation creates a failure describing invalid input for field.
func Validation(message, field string, opts ...Option) *Failure {
	opts = append([]Option{WithMeta("field", field)}, opts...)
	return New(KindValidation, message, opts...)
}

// Aggregate creates a failure wrapping the ordered member errors.
func Aggregate(message string, errs []error, opts ...Option) *Failure {
	f := New(KindAggregate, message, opts...)
	f.Errors = append([]error(nil), errs...)
	return f
}

func defaultCode(kind Kind) string {
	switch kind {
	case KindTransient:
		return CodeTransient
	case KindCircuitOpen:
		return CodeCircuitOpen
	case KindTimeout:
		return CodeTimeout
	case KindAggregate:
		return CodeAggregate
	case KindValidation:
		return CodeValidation
	default:
		return CodePermanent
	}
}

// genericCode reports whether code only restates a kind. Failures carrying
// such a code are matched by identity, not by code.
func genericCode(code string) bool {
	switch code {
	case "", CodePermanent, CodeTransient, CodeValidation:
		return true
	}
	return false
}

// Error renders the failure and its cause chain. A failure already on the
// rendering path is written as <cycle> and the walk stops there.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	render(&b, f, make(map[*Failure]bool))
	return b.String()
}

func render(b *strings.Builder, err error, path map[*Failure]bool) {
	for err != nil {
		f, ok := err.(*Failure)
		if !ok {
			b.WriteString(err.Error())
			return
		}
		if path[f] {
			b.WriteString("<cycle>")
			return
		}
		path[f] = true
		defer delete(path, f)

		b.WriteString("[")
		b.WriteString(f.Code)
		b.WriteString("] ")
		b.WriteString(f.Message)
		if len(f.Errors) > 0 {
			b.WriteString(" (")
			for i, member := range f.Errors {
				if i > 0 {
					b.WriteString("; ")
				}
				render(b, member, path)
			}
			b.WriteString(")")
		}
		if f.Cause != nil {
			b.WriteString(": ")
		}
		err = f.Cause
	}
}

// Unwrap exposes the cause followed by any aggregate members so errors.Is
// and errors.As can search the whole tree.
func (f *Failure) Unwrap() []error {
	if f == nil {
		return nil
	}
	out := make([]error, 0, len(f.Errors)+1)
	if f.Cause != nil {
		out = append(out, f.Cause)
	}
	return append(out, f.Errors...)
}

// Is reports whether target is the same Failure, or a Failure with the same
// specific code. Targets whose code is only the default of a generic kind
// (PERMANENT, TRANSIENT, VALIDATION) match by identity alone, so sentinels
// built with Permanent or Transient stay distinct.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if f == nil || !ok || t == nil {
		return false
	}
	if f == t {
		return true
	}
	if genericCode(t.Code) {
		return false
	}
	return f.Code == t.Code
}

// Retryable reports whether this failure, on its own, is transient.
func (f *Failure) Retryable() bool {
	if f == nil {
		return false
	}
	switch f.Kind {
	case KindCircuitOpen, KindAggregate:
		return false
	case KindTransient:
		return true
	case KindTimeout:
		if f.retryable != nil {
			return *f.retryable
		}
		return true
	}
	return f.Code == CodeTransient
}

// MetaValue returns a metadata entry.
func (f *Failure) MetaValue(key string) (any, bool) {
	if f == nil || f.Meta == nil {
		return nil, false
	}
	v, ok := f.Meta[key]
	return v, ok
}

// CloneMeta returns a copy of the metadata map.
func (f *Failure) CloneMeta() map[string]any {
	if f == nil || len(f.Meta) == 0 {
		return nil
	}
	return maps.Clone(f.Meta)
}

// From extracts the outermost Failure from err.
func From(err error) (*Failure, bool) {
	if err == nil {
		return nil, false
	}
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost Failure in err, or KindPermanent
// for errors that carry no Failure.
func KindOf(err error) Kind {
	if f, ok := From(err); ok {
		return f.Kind
	}
	return KindPermanent
}

// CodeOf returns the code of the outermost Failure in err.
func CodeOf(err error) string {
	if f, ok := From(err); ok {
		return f.Code
	}
	return ""
}

// IsTransient reports whether err was explicitly tagged as retry-eligible.
// Anything else, including plain Go errors, is permanent.
func IsTransient(err error) bool {
	f, ok := From(err)
	if !ok {
		return false
	}
	return f.Retryable()
}

// IsCircuitOpen reports whether err is a circuit breaker rejection.
func IsCircuitOpen(err error) bool {
	return KindOf(err) == KindCircuitOpen
}
