package interpreter

import (
	"context"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/runtime"
)

// ModuleUnit is what an import resolves to: either a program evaluated in its own
// global scope or a set of precompiled native functions.
type ModuleUnit struct {
	Name    string
	Path    string
	Program *ast.Program
	Natives map[string]*runtime.NativeFunctionValue
}

// ModuleResolver locates the unit named by an import statement.
type ModuleResolver interface {
	ResolveModule(ctx context.Context, name string) (*ModuleUnit, error)
}

// ModuleResolverFunc adapts a function to ModuleResolver.
type ModuleResolverFunc func(ctx context.Context, name string) (*ModuleUnit, error)

func (f ModuleResolverFunc) ResolveModule(ctx context.Context, name string) (*ModuleUnit, error) {
	return f(ctx, name)
}

// GeneratedFile is an artifact produced for a decorated function.
type GeneratedFile struct {
	Name      string `json:"name"`
	Decorator string `json:"decorator"`
	Content   string `json:"content"`
}

// CodeGenerator handles decorated declarations such as `@gen_cpp`.
type CodeGenerator interface {
	Generate(ctx context.Context, decl *ast.FunctionDeclaration, decorator string) ([]GeneratedFile, error)
}

// Differentiator returns the symbolic derivative of expr with respect to variable.
// The result is evaluated in the scope of the derivative expression.
type Differentiator interface {
	Differentiate(expr ast.Expression, variable string) (ast.Expression, error)
}

// PlotDescriptor is recorded by the plot builtin for hosts to render.
type PlotDescriptor struct {
	Title string    `json:"title,omitempty"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
}
