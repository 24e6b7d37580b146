package lower

// Kind is a node in the value-kind lattice of §4.2.2, tracked for every
// binding and intermediate expression so the lowerer can pick the right
// width/signedness-tagged opcode. The lattice:
//
//	Unknown
//	 +-- Bool
//	 +-- Int32 --- Int64
//	 +-- UInt64
//	 +-- String (value-only, never through pointers/references)
type Kind uint8

const (
	Unknown Kind = iota
	Bool
	Int32
	Int64
	UInt64
	String
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case UInt64:
		return "u64"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Unify combines two numeric/bool kinds per §4.2.3's unification rules.
// Bool or String participating in a numeric unification poisons the
// result to Unknown; identical kinds combine to themselves; Int32 widens
// to Int64; UInt64 only unifies with UInt64.
func Unify(a, b Kind) Kind {
	if a == b {
		return a
	}
	if a == Bool || b == Bool || a == String || b == String {
		return Unknown
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	if (a == UInt64) != (b == UInt64) {
		// one side is UInt64, the other is a signed width: no clean unification
		return Unknown
	}
	if a == Int32 && b == Int64 || a == Int64 && b == Int32 {
		return Int64
	}
	return Unknown
}

// IsNumeric reports whether k participates in arithmetic.
func IsNumeric(k Kind) bool { return k == Int32 || k == Int64 || k == UInt64 }

// Category is the binding shape attached alongside Kind: whether a local
// holds a plain value, an explicit pointer, an auto-dereferencing
// reference, or a stack-allocated array.
type Category uint8

const (
	Value Category = iota
	Pointer
	Reference
	Array
)

// StringSource records where string values come from. TableIndex marks a
// String-kind binding, whose value is an index into the module string
// table (string bindings are bound only from literals). ArgvIndex marks
// the entry parameter's array local, whose elements are argv entries;
// no String-kind binding carries it. A zero StringSource means nothing.
type StringSource uint8

const (
	NoStringSource StringSource = iota
	TableIndex
	ArgvIndex
)
