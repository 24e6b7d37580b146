// Package perr implements the error taxonomy of §7: a small closed set of
// error kinds raised by the codec, the lowerer, the VM, and the native
// emitter, each carrying enough structured payload to be matched with
// errors.Is/errors.As instead of by substring.
//
// This is the sum-type redesign called for in §9 ("out-parameter error
// strings... use sum types carrying the taxonomy as variants with
// payloads; render to strings only at the CLI boundary"): Kind is the
// tag, Error is the payload-carrying variant, and Error.Error() is the
// only place the taxonomy's strings in §7 are actually rendered.
package perr

import "fmt"

// Kind tags one error family from §7.
type Kind uint8

const (
	KindUnsupportedType Kind = iota
	KindNoFloat
	KindNoStringPointer
	KindConflictingReturn
	KindMissingReturn
	KindArgShape
	KindImmutableAssign
	KindBadReferenceInit
	KindBadAssignTarget
	KindPointerArithmetic
	KindRecursiveCall
	KindRedefinition
	KindUnsupportedOpcode
	KindEntryMissing
	KindEntryParamShape
	KindArgCountMismatch
	KindUnknownName

	KindCodec
	KindVmTrap
	KindNative
)

var kindSentinel = [...]string{
	KindUnsupportedType:   "unsupported binding type",
	KindNoFloat:           "native backend does not support float types",
	KindNoStringPointer:   "native backend does not support string pointers or references",
	KindConflictingReturn: "conflicting return types",
	KindMissingReturn:     "native backend requires an explicit return statement",
	KindArgShape:          "invalid argument shape",
	KindImmutableAssign:   "assign target must be mutable",
	KindBadReferenceInit:  "reference binding requires location(...) initializer",
	KindBadAssignTarget:   "native backend only supports assign to local names or dereference",
	KindPointerArithmetic: "pointer arithmetic requires pointer on the left",
	KindRecursiveCall:     "native backend does not support recursive calls",
	KindRedefinition:      "binding redefines existing name",
	KindUnsupportedOpcode: "unsupported IR opcode for native backend",
	KindEntryMissing:      "native backend requires entry definition",
	KindEntryParamShape:   "native backend only supports a single array<string> entry parameter",
	KindArgCountMismatch:  "argument count mismatch",
	KindUnknownName:       "unknown name",
	// KindCodec and KindVmTrap render bare (see Error.Error): their Detail
	// already carries the exact §7 wording.
	KindCodec:  "",
	KindVmTrap: "",
	KindNative: "",
}

func (k Kind) String() string {
	if int(k) < len(kindSentinel) {
		return kindSentinel[k]
	}
	return "unknown error"
}

// Error is the single error type raised by ir, lower, vm, and native. Path
// and Detail are optional context appended to the rendered message; Kind
// is what errors.Is compares against.
type Error struct {
	Kind   Kind
	Path   string // definition path, local name, or similar subject
	Detail string // free-form extra context, e.g. a concrete type name
	Err    error  // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if msg == "" {
		// KindVmTrap and KindCodec render bare: their Detail already spells
		// out the exact §7 message ("IR stack underflow on <op>",
		// "invalid IR header", ...), so no extra prefix belongs in front.
		switch {
		case e.Path != "" && e.Detail != "":
			return fmt.Sprintf("%s: %s", e.Path, e.Detail)
		case e.Path != "":
			return e.Path
		default:
			return e.Detail
		}
	}
	switch {
	case e.Path != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", msg, e.Path, e.Detail)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", msg, e.Path)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", msg, e.Detail)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, perr.New(kind)) style comparisons without
// exposing Kind as its own error type: wrap a Kind in a sentinel Error
// with no path/detail and compare Kind fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Path == "" && t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// New builds a bare *Error for the given kind, no path or detail.
func New(k Kind) *Error { return &Error{Kind: k} }

// Withf builds an *Error with Detail set from a fmt.Sprintf-style format.
func Withf(k Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: k, Path: path, Detail: fmt.Sprintf(format, args...)}
}

// WithPath builds an *Error naming only a subject path.
func WithPath(k Kind, path string) *Error {
	return &Error{Kind: k, Path: path}
}

// WithDetail builds an *Error naming only free-form detail, no subject path.
func WithDetail(k Kind, detail string) *Error {
	return &Error{Kind: k, Detail: detail}
}

// Wrap builds an *Error that chains a lower-level cause.
func Wrap(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}
