package lower_test

import (
	"testing"

	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/lower"
	"github.com/primec/primec/internal/perr"
	"github.com/primec/primec/internal/vm"
	"github.com/stretchr/testify/require"
)

func lit(v int64) ast.Expr { return ast.Expr{Kind: ast.Literal, IntValue: v} }
func name(n string) ast.Expr { return ast.Expr{Kind: ast.Name, Name: n} }

func call(n string, args ...ast.Expr) ast.Expr {
	return ast.Expr{Kind: ast.Call, Name: n, Args: args}
}

// [return<int>] main() { return(plus(1,2)) }
func TestLowerAndExecutePlus(t *testing.T) {
	prog := &ast.Program{
		Definitions: []ast.Definition{
			{
				FullPath:           "/main",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				ReturnExpr:         exprPtr(call("plus", lit(1), lit(2))),
				HasReturnStatement: true,
			},
		},
	}
	mod, err := lower.Lower(prog, "/main")
	require.NoError(t, err)
	got, err := vm.Execute(mod)
	require.NoError(t, err)
	require.EqualValues(t, 3, got)
}

// [return<int>] main() { v(2); assign(v, plus(v,3)); return(v) }
func TestLowerAndExecuteBindingAssign(t *testing.T) {
	binding := ast.Expr{Kind: ast.Call, Name: "v", IsBinding: true, Args: []ast.Expr{lit(2)}, Transforms: []ast.Transform{{Name: "i32"}, {Name: "mut"}}}
	assign := call("assign", name("v"), call("plus", name("v"), lit(3)))
	prog := &ast.Program{
		Definitions: []ast.Definition{
			{
				FullPath:           "/main",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				Statements:         []ast.Stmt{{Expr: binding}, {Expr: assign}},
				ReturnExpr:         exprPtr(name("v")),
				HasReturnStatement: true,
			},
		},
	}
	mod, err := lower.Lower(prog, "/main")
	require.NoError(t, err)
	got, err := vm.Execute(mod)
	require.NoError(t, err)
	require.EqualValues(t, 5, got)
}

// [return<int>] increment(n<i32>) { return(plus(n,1)) }
// [return<int>] main() { return(increment(41)) }
func TestLowerInlinesUserCall(t *testing.T) {
	prog := &ast.Program{
		Definitions: []ast.Definition{
			{
				FullPath:           "/increment",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				Parameters:         []ast.Parameter{{Name: "n", Transforms: []ast.Transform{{Name: "i32"}}}},
				ReturnExpr:         exprPtr(call("plus", name("n"), lit(1))),
				HasReturnStatement: true,
			},
			{
				FullPath:           "/main",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				ReturnExpr:         exprPtr(call("/increment", lit(41))),
				HasReturnStatement: true,
			},
		},
	}
	mod, err := lower.Lower(prog, "/main")
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1, "every user call inlines into the single entry function")
	got, err := vm.Execute(mod)
	require.NoError(t, err)
	require.EqualValues(t, 42, got)
}

// [return<int>] self() { return(self()) }
func TestLowerRejectsRecursiveCall(t *testing.T) {
	prog := &ast.Program{
		Definitions: []ast.Definition{
			{
				FullPath:           "/self",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				ReturnExpr:         exprPtr(call("/self")),
				HasReturnStatement: true,
			},
		},
	}
	_, err := lower.Lower(prog, "/self")
	require.Error(t, err)
	require.ErrorIs(t, err, perr.New(perr.KindRecursiveCall))
}

func TestLowerRejectsUnknownName(t *testing.T) {
	prog := &ast.Program{
		Definitions: []ast.Definition{
			{
				FullPath:           "/main",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				ReturnExpr:         exprPtr(name("missing")),
				HasReturnStatement: true,
			},
		},
	}
	_, err := lower.Lower(prog, "/main")
	require.Error(t, err)
	require.ErrorIs(t, err, perr.New(perr.KindUnknownName))
}

func TestLowerRejectsFloatLiteral(t *testing.T) {
	prog := &ast.Program{
		Definitions: []ast.Definition{
			{
				FullPath:           "/main",
				Transforms:         []ast.Transform{{Name: "return", Args: []string{"int"}}},
				ReturnExpr:         exprPtr(ast.Expr{Kind: ast.FloatLiteral}),
				HasReturnStatement: true,
			},
		},
	}
	_, err := lower.Lower(prog, "/main")
	require.Error(t, err)
	require.ErrorIs(t, err, perr.New(perr.KindNoFloat))
}

func exprPtr(e ast.Expr) *ast.Expr { return &e }
