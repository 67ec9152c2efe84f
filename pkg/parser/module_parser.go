package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"madola/interpreter-go/pkg/ast"
)

// ModuleParser wraps a tree-sitter parser configured with the MADOLA grammar.
// The grammar is compiled C linked by the host, so it is passed in rather than
// bundled here.
type ModuleParser struct {
	parser *sitter.Parser
}

// NewModuleParser constructs a parser with the given MADOLA language loaded.
func NewModuleParser(lang *sitter.Language) (*ModuleParser, error) {
	if lang == nil {
		return nil, fmt.Errorf("parser: MADOLA language not available")
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("parser: %w", err)
	}
	return &ModuleParser{parser: p}, nil
}

// Close releases parser resources.
func (p *ModuleParser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.parser.Close()
	p.parser = nil
}

// ParseProgram parses MADOLA source into a program tree.
func (p *ModuleParser) ParseProgram(source []byte) (*ast.Program, error) {
	if p == nil || p.parser == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}
	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: parse cancelled")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	return convertProgram(wrapNode(root, source))
}

// ParseExpression parses a single expression, as typed at the debugger prompt.
func (p *ModuleParser) ParseExpression(src string) (ast.Expression, error) {
	program, err := p.ParseProgram([]byte(src))
	if err != nil {
		return nil, err
	}
	return singleExpression(program)
}

func singleExpression(program *ast.Program) (ast.Expression, error) {
	if len(program.Body) != 1 {
		return nil, fmt.Errorf("parser: expected a single expression, got %d statements", len(program.Body))
	}
	stmt, ok := program.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, fmt.Errorf("parser: expected an expression, got %s", program.Body[0].NodeType())
	}
	return stmt.Expression, nil
}
