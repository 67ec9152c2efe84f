package parser

import (
	"fmt"
	"strings"

	"madola/interpreter-go/pkg/ast"
)

// convertProgram turns a source_file CST into a program. Statement node kinds
// follow the MADOLA grammar: assignment, index_assignment,
// function_declaration, expression_function, print_statement,
// return_statement, break_statement, if_statement, for_statement,
// while_statement, import_statement and expression_statement.
func convertProgram(root cstNode) (*ast.Program, error) {
	if root == nil {
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	if root.HasError() {
		return nil, syntaxError(root)
	}
	if root.Kind() != "source_file" {
		return nil, fmt.Errorf("parser: unexpected root node %q", root.Kind())
	}
	body, err := parseStatements(root)
	if err != nil {
		return nil, err
	}
	program := ast.NewProgram(body)
	ast.SetLocation(program, root.Location())
	return program, nil
}

func parseStatements(parent cstNode) ([]ast.Statement, error) {
	var out []ast.Statement
	for _, child := range parent.NamedChildren() {
		if child.Kind() == "comment" {
			continue
		}
		stmt, err := parseStatement(child)
		if err != nil {
			return nil, wrapParseError(child, err)
		}
		ast.SetLocation(stmt, child.Location())
		out = append(out, stmt)
	}
	return out, nil
}

// parseBlock accepts a block node or, for one-line bodies, a bare statement.
func parseBlock(node cstNode) ([]ast.Statement, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind() == "block" {
		return parseStatements(node)
	}
	stmt, err := parseStatement(node)
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	ast.SetLocation(stmt, node.Location())
	return []ast.Statement{stmt}, nil
}

func parseStatement(node cstNode) (ast.Statement, error) {
	switch node.Kind() {
	case "assignment":
		name, err := parseIdentifierField(node, "name")
		if err != nil {
			return nil, err
		}
		value, err := parseExpressionField(node, "value")
		if err != nil {
			return nil, err
		}
		return ast.NewAssignment(name, value), nil

	case "index_assignment":
		name, err := parseIdentifierField(node, "name")
		if err != nil {
			return nil, err
		}
		indices, err := parseExpressionList(node.Fields("index"))
		if err != nil {
			return nil, err
		}
		if len(indices) == 0 || len(indices) > 2 {
			return nil, fmt.Errorf("parser: index assignment takes one or two indices, got %d", len(indices))
		}
		value, err := parseExpressionField(node, "value")
		if err != nil {
			return nil, err
		}
		column := node.Field("column") != nil
		return ast.NewIndexAssignment(name, indices, column, value), nil

	case "function_declaration":
		name, params, err := parseSignature(node)
		if err != nil {
			return nil, err
		}
		body, err := parseBlock(node.Field("body"))
		if err != nil {
			return nil, err
		}
		var decorators []string
		for _, dec := range node.Fields("decorator") {
			decorators = append(decorators, strings.TrimPrefix(strings.TrimSpace(dec.Text()), "@"))
		}
		return ast.NewFunctionDeclaration(name, params, body, decorators), nil

	case "expression_function":
		name, params, err := parseSignature(node)
		if err != nil {
			return nil, err
		}
		value, err := parseExpressionField(node, "value")
		if err != nil {
			return nil, err
		}
		ret := ast.NewReturnStatement(value)
		ast.SetLocation(ret, node.Field("value").Location())
		return ast.NewFunctionDeclaration(name, params, []ast.Statement{ret}, nil), nil

	case "print_statement":
		args, err := parseExpressionList(node.Fields("argument"))
		if err != nil {
			return nil, err
		}
		return ast.NewPrintStatement(args), nil

	case "return_statement":
		var value ast.Expression
		if valueNode := node.Field("value"); valueNode != nil {
			expr, err := parseExpression(valueNode)
			if err != nil {
				return nil, err
			}
			value = expr
		}
		return ast.NewReturnStatement(value), nil

	case "break_statement":
		return ast.NewBreakStatement(), nil

	case "if_statement":
		cond, err := parseExpressionField(node, "condition")
		if err != nil {
			return nil, err
		}
		then, err := parseBlock(node.Field("consequence"))
		if err != nil {
			return nil, err
		}
		otherwise, err := parseBlock(node.Field("alternative"))
		if err != nil {
			return nil, err
		}
		return ast.NewIfStatement(cond, then, otherwise), nil

	case "for_statement":
		variable, err := parseIdentifierField(node, "variable")
		if err != nil {
			return nil, err
		}
		iterable, err := parseExpressionField(node, "iterable")
		if err != nil {
			return nil, err
		}
		body, err := parseBlock(node.Field("body"))
		if err != nil {
			return nil, err
		}
		return ast.NewForLoop(variable, iterable, body), nil

	case "while_statement":
		cond, err := parseExpressionField(node, "condition")
		if err != nil {
			return nil, err
		}
		body, err := parseBlock(node.Field("body"))
		if err != nil {
			return nil, err
		}
		return ast.NewWhileLoop(cond, body), nil

	case "import_statement":
		return parseImport(node)

	case "expression_statement":
		children := node.NamedChildren()
		if len(children) != 1 {
			return nil, fmt.Errorf("parser: expression statement with %d expressions", len(children))
		}
		expr, err := parseExpression(children[0])
		if err != nil {
			return nil, err
		}
		return ast.NewExpressionStatement(expr), nil
	}
	return nil, fmt.Errorf("parser: unsupported statement %q", node.Kind())
}

func parseSignature(node cstNode) (*ast.Identifier, []*ast.Identifier, error) {
	name, err := parseIdentifierField(node, "name")
	if err != nil {
		return nil, nil, err
	}
	var params []*ast.Identifier
	if list := node.Field("parameters"); list != nil {
		seen := make(map[string]struct{})
		for _, p := range list.NamedChildren() {
			param, err := parseIdentifier(p)
			if err != nil {
				return nil, nil, err
			}
			if _, dup := seen[param.Name]; dup {
				return nil, nil, wrapParseError(p, fmt.Errorf("parser: duplicate parameter %s", param.Name))
			}
			seen[param.Name] = struct{}{}
			params = append(params, param)
		}
	}
	return name, params, nil
}

func parseImport(node cstNode) (ast.Statement, error) {
	moduleNode := node.Field("module")
	if moduleNode == nil {
		return nil, fmt.Errorf("parser: import missing module")
	}
	module := strings.Join(strings.Fields(moduleNode.Text()), "")
	var names []*ast.ImportName
	for _, n := range node.Fields("name") {
		nameNode := n
		alias := ""
		if n.Kind() == "import_name" {
			nameNode = n.Field("name")
			if a := n.Field("alias"); a != nil {
				alias = a.Text()
			}
		}
		if nameNode == nil {
			return nil, wrapParseError(n, fmt.Errorf("parser: import name missing"))
		}
		names = append(names, &ast.ImportName{Name: nameNode.Text(), Alias: alias})
	}
	return ast.NewImportStatement(module, names), nil
}
