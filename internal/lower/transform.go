package lower

import (
	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/perr"
)

func primitiveKind(name string) (Kind, bool) {
	switch name {
	case "int", "i32":
		return Int32, true
	case "i64":
		return Int64, true
	case "u64":
		return UInt64, true
	case "bool":
		return Bool, true
	case "string":
		return String, true
	default:
		return Unknown, false
	}
}

// bindingShape is the result of parsing a binding's type transforms: its
// Category/Kind/element-kind and mutability. string is computed
// separately by the caller once the initializer expression is known
// (§4.2.2's "string source").
type bindingShape struct {
	category Category
	kind     Kind
	elemKind Kind
	mutable  bool
}

// parseBindingShape interprets the transform vocabulary of §3 attached to
// a binding: Pointer<T>/Reference<T>/array<T> select a Category, a bare
// primitive name selects a Value of that Kind, `mut` selects mutability.
// Float types, string pointers/references, and unrecognized (struct/map)
// binding types are rejected here per §4.2.2 and §7.
func parseBindingShape(name string, transforms []ast.Transform) (bindingShape, error) {
	shape := bindingShape{}
	for _, t := range transforms {
		if t.Name == "mut" {
			shape.mutable = true
		}
	}

	if t, ok := ast.FindTransform(transforms, "Pointer"); ok {
		elem, err := elementKind(name, t)
		if err != nil {
			return shape, err
		}
		shape.category = Pointer
		shape.kind = elem
		return shape, nil
	}
	if t, ok := ast.FindTransform(transforms, "Reference"); ok {
		elem, err := elementKind(name, t)
		if err != nil {
			return shape, err
		}
		shape.category = Reference
		shape.kind = elem
		return shape, nil
	}
	if t, ok := ast.FindTransform(transforms, "array"); ok {
		elem, err := elementKind(name, t)
		if err != nil {
			return shape, err
		}
		shape.category = Array
		shape.elemKind = elem
		shape.kind = Int32 // the array's own "value" is its base address
		return shape, nil
	}
	if _, ok := ast.FindTransform(transforms, "map"); ok {
		return shape, perr.WithPath(perr.KindUnsupportedType, name+": map")
	}
	if _, ok := ast.FindTransform(transforms, "struct"); ok {
		return shape, perr.WithPath(perr.KindUnsupportedType, name+": struct")
	}

	for _, t := range transforms {
		if t.Name == "float" || t.Name == "f32" || t.Name == "f64" {
			return shape, perr.WithDetail(perr.KindNoFloat, t.Name)
		}
		if k, ok := primitiveKind(t.Name); ok {
			shape.category = Value
			shape.kind = k
			return shape, nil
		}
	}

	return shape, perr.WithPath(perr.KindUnsupportedType, name)
}

func elementKind(bindingName string, t ast.Transform) (Kind, error) {
	if len(t.Args) == 0 {
		return Unknown, perr.WithPath(perr.KindUnsupportedType, bindingName)
	}
	arg := t.Args[0]
	if arg == "float" || arg == "f32" || arg == "f64" {
		return Unknown, perr.WithDetail(perr.KindNoFloat, arg)
	}
	if arg == "string" {
		return Unknown, perr.WithPath(perr.KindNoStringPointer, bindingName)
	}
	k, ok := primitiveKind(arg)
	if !ok {
		return Unknown, perr.WithPath(perr.KindUnsupportedType, bindingName+"<"+arg+">")
	}
	return k, nil
}

// returnKindFromTransform extracts T from a `return<T>` transform, where
// "void" is reported back as (Unknown, true, true) to distinguish
// "explicitly void" from "no annotation at all".
func returnKindFromTransform(transforms []ast.Transform) (k Kind, isVoid bool, present bool, err error) {
	if n := ast.CountTransform(transforms, "return"); n > 1 {
		return Unknown, false, true, perr.WithDetail(perr.KindConflictingReturn, "duplicate return<T> annotation")
	}
	t, ok := ast.FindTransform(transforms, "return")
	if !ok {
		return Unknown, false, false, nil
	}
	if len(t.Args) == 0 {
		return Unknown, false, true, perr.WithDetail(perr.KindConflictingReturn, "return<T> missing T")
	}
	arg := t.Args[0]
	if arg == "void" {
		return Unknown, true, true, nil
	}
	if arg == "float" || arg == "f32" || arg == "f64" {
		return Unknown, false, true, perr.WithDetail(perr.KindNoFloat, arg)
	}
	k, ok = primitiveKind(arg)
	if !ok {
		return Unknown, false, true, perr.WithPath(perr.KindUnsupportedType, "return<"+arg+">")
	}
	return k, false, true, nil
}
