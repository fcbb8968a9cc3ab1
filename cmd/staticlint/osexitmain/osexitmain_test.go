package osexitmain

import (
	"go/ast"
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
)

func mockPass(pkgName string, nodes []ast.Node) *analysis.Pass {
	return &analysis.Pass{
		Pkg: types.NewPackage(pkgName, ""),
		ResultOf: map[*analysis.Analyzer]any{
			inspect.Analyzer: &mockInspector{nodes: nodes},
		},
	}
}

type mockInspector struct {
	nodes []ast.Node
}

func (m *mockInspector) Preorder(_ []ast.Node, fn func(ast.Node)) {
	for _, n := range m.nodes {
		fn(n)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		pkgName string
		nodes   []ast.Node
	}{
		{
			name:    "non-main package skipped",
			pkgName: "graphite",
			nodes:   nil,
		},
		{
			name:    "no os.Exit call",
			pkgName: "main",
			nodes: []ast.Node{
				&ast.FuncDecl{
					Name: &ast.Ident{Name: "main"},
					Body: &ast.BlockStmt{
						List: []ast.Stmt{
							&ast.ExprStmt{
								X: &ast.BasicLit{Kind: token.STRING, Value: "\"hello\""},
							},
						},
					},
				},
			},
		},
		{
			name:    "method named main ignored",
			pkgName: "main",
			nodes: []ast.Node{
				&ast.FuncDecl{
					Recv: &ast.FieldList{},
					Name: &ast.Ident{Name: "main"},
					Body: &ast.BlockStmt{},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass := mockPass(tt.pkgName, tt.nodes)
			if _, err := run(pass); err != nil {
				t.Errorf("run() returned unexpected error: %v", err)
			}
		})
	}
}

func TestIsOsExitCall(t *testing.T) {
	tests := []struct {
		name      string
		pkgPath   string
		funcName  string
		expectRes bool
	}{
		{"os.Exit call", "os", "Exit", true},
		{"other selector call", "fmt", "Println", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := &ast.Ident{Name: tt.funcName}
			call := &ast.CallExpr{
				Fun: &ast.SelectorExpr{
					X:   &ast.Ident{Name: tt.pkgPath},
					Sel: sel,
				},
			}
			pass := &analysis.Pass{
				TypesInfo: &types.Info{
					Uses: map[*ast.Ident]types.Object{
						sel: types.NewFunc(0, types.NewPackage(tt.pkgPath, tt.pkgPath), tt.funcName,
							types.NewSignatureType(nil, nil, nil, nil, nil, false)),
					},
				},
			}
			if got := isOsExitCall(pass, call); got != tt.expectRes {
				t.Errorf("isOsExitCall() = %v, want %v", got, tt.expectRes)
			}
		})
	}
}
