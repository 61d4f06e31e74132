package expr

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// compiled is a validated expression ready to run.
type compiled struct {
	proto  *lua.FunctionProto
	idents []string // free names the expression reads
}

// compile parses src as a single Lua expression and checks it against the
// allowed node set. Function literals, table constructors, varargs and
// method calls are rejected, which leaves no way to loop.
func compile(src string) (*compiled, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("empty expression")
	}
	chunk, err := parse.Parse(strings.NewReader("return "+src), "expr")
	if err != nil {
		return nil, err
	}
	if len(chunk) != 1 {
		return nil, errors.New("want a single expression")
	}
	ret, ok := chunk[0].(*ast.ReturnStmt)
	if !ok || len(ret.Exprs) != 1 {
		return nil, errors.New("want a single expression")
	}

	seen := make(map[string]bool)
	var idents []string
	if err := walk(ret.Exprs[0], func(name string) {
		if !seen[name] {
			seen[name] = true
			idents = append(idents, name)
		}
	}); err != nil {
		return nil, err
	}

	proto, err := lua.Compile(chunk, "expr")
	if err != nil {
		return nil, err
	}
	return &compiled{proto: proto, idents: idents}, nil
}

func walk(e ast.Expr, ident func(string)) error {
	switch ex := e.(type) {
	case *ast.NumberExpr, *ast.StringExpr, *ast.TrueExpr, *ast.FalseExpr, *ast.NilExpr:
		return nil
	case *ast.IdentExpr:
		ident(ex.Value)
		return nil
	case *ast.AttrGetExpr:
		if _, ok := ex.Key.(*ast.StringExpr); !ok {
			return errors.New("computed field keys are not allowed")
		}
		return walk(ex.Object, ident)
	case *ast.FuncCallExpr:
		if ex.Receiver != nil || ex.Method != "" {
			return errors.New("method calls are not allowed")
		}
		if _, ok := ex.Func.(*ast.IdentExpr); !ok {
			return errors.New("only named functions can be called")
		}
		if err := walk(ex.Func, ident); err != nil {
			return err
		}
		for _, arg := range ex.Args {
			if err := walk(arg, ident); err != nil {
				return err
			}
		}
		return nil
	case *ast.ArithmeticOpExpr:
		return walk2(ex.Lhs, ex.Rhs, ident)
	case *ast.StringConcatOpExpr:
		return walk2(ex.Lhs, ex.Rhs, ident)
	case *ast.RelationalOpExpr:
		return walk2(ex.Lhs, ex.Rhs, ident)
	case *ast.LogicalOpExpr:
		return walk2(ex.Lhs, ex.Rhs, ident)
	case *ast.UnaryMinusOpExpr:
		return walk(ex.Expr, ident)
	case *ast.UnaryNotOpExpr:
		return walk(ex.Expr, ident)
	case *ast.UnaryLenOpExpr:
		return walk(ex.Expr, ident)
	case *ast.FunctionExpr:
		return errors.New("function definitions are not allowed")
	case *ast.TableExpr:
		return errors.New("table constructors are not allowed")
	case *ast.Comma3Expr:
		return errors.New("varargs are not allowed")
	default:
		return fmt.Errorf("unsupported expression %T", e)
	}
}

func walk2(lhs, rhs ast.Expr, ident func(string)) error {
	if err := walk(lhs, ident); err != nil {
		return err
	}
	return walk(rhs, ident)
}
