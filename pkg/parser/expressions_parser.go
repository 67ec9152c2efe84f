package parser

import (
	"fmt"
	"strconv"
	"strings"

	"madola/interpreter-go/pkg/ast"
)

func parseIdentifierField(node cstNode, field string) (*ast.Identifier, error) {
	child := node.Field(field)
	if child == nil {
		return nil, fmt.Errorf("parser: %s missing %s", node.Kind(), field)
	}
	return parseIdentifier(child)
}

func parseIdentifier(node cstNode) (*ast.Identifier, error) {
	if node.Kind() != "identifier" {
		return nil, wrapParseError(node, fmt.Errorf("parser: expected identifier, got %s", node.Kind()))
	}
	id := ast.NewIdentifier(node.Text())
	ast.SetLocation(id, node.Location())
	return id, nil
}

func parseExpressionField(node cstNode, field string) (ast.Expression, error) {
	child := node.Field(field)
	if child == nil {
		return nil, fmt.Errorf("parser: %s missing %s", node.Kind(), field)
	}
	return parseExpression(child)
}

func parseExpressionList(nodes []cstNode) ([]ast.Expression, error) {
	out := make([]ast.Expression, 0, len(nodes))
	for _, n := range nodes {
		expr, err := parseExpression(n)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

// parseExpression converts an expression node and stamps its location.
func parseExpression(node cstNode) (ast.Expression, error) {
	expr, err := convertExpression(node)
	if err != nil {
		return nil, wrapParseError(node, err)
	}
	ast.SetLocation(expr, node.Location())
	return expr, nil
}

func convertExpression(node cstNode) (ast.Expression, error) {
	switch node.Kind() {
	case "number":
		value, err := strconv.ParseFloat(node.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("parser: invalid number %q", node.Text())
		}
		return ast.NewNumberLiteral(value), nil

	case "imaginary":
		text := strings.TrimSuffix(node.Text(), "i")
		if text == "" {
			return ast.NewImaginaryLiteral(1), nil
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("parser: invalid imaginary literal %q", node.Text())
		}
		return ast.NewImaginaryLiteral(value), nil

	case "string":
		value, err := unquote(node.Text())
		if err != nil {
			return nil, err
		}
		return ast.NewStringLiteral(value), nil

	case "identifier":
		return parseIdentifier(node)

	case "parenthesized_expression":
		children := node.NamedChildren()
		if len(children) != 1 {
			return nil, fmt.Errorf("parser: parenthesized expression with %d children", len(children))
		}
		return parseExpression(children[0])

	case "unary_expression":
		operand, err := parseExpressionField(node, "operand")
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(operatorText(node), operand), nil

	case "binary_expression":
		left, err := parseExpressionField(node, "left")
		if err != nil {
			return nil, err
		}
		right, err := parseExpressionField(node, "right")
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryExpression(operatorText(node), left, right), nil

	case "row_vector", "column_vector":
		elements, err := parseExpressionList(node.Fields("element"))
		if err != nil {
			return nil, err
		}
		return ast.NewArrayLiteral(elements, node.Kind() == "column_vector"), nil

	case "matrix":
		var rows [][]ast.Expression
		for _, row := range node.Fields("row") {
			elements, err := parseExpressionList(row.Fields("element"))
			if err != nil {
				return nil, err
			}
			rows = append(rows, elements)
		}
		return ast.NewMatrixLiteral(rows), nil

	case "range_expression":
		start, err := parseExpressionField(node, "start")
		if err != nil {
			return nil, err
		}
		end, err := parseExpressionField(node, "end")
		if err != nil {
			return nil, err
		}
		var step ast.Expression
		if stepNode := node.Field("step"); stepNode != nil {
			if step, err = parseExpression(stepNode); err != nil {
				return nil, err
			}
		}
		return ast.NewRangeExpression(start, end, step, true), nil

	case "index_expression":
		target, err := parseExpressionField(node, "target")
		if err != nil {
			return nil, err
		}
		indices, err := parseExpressionList(node.Fields("index"))
		if err != nil {
			return nil, err
		}
		return ast.NewIndexExpression(target, indices), nil

	case "member_expression":
		object, err := parseExpressionField(node, "object")
		if err != nil {
			return nil, err
		}
		member, err := parseIdentifierField(node, "member")
		if err != nil {
			return nil, err
		}
		return ast.NewMemberExpression(object, member), nil

	case "call_expression":
		callee, err := parseExpressionField(node, "function")
		if err != nil {
			return nil, err
		}
		args, err := parseExpressionList(node.Fields("argument"))
		if err != nil {
			return nil, err
		}
		return ast.NewCallExpression(callee, args), nil

	case "unit_expression":
		value, err := parseExpressionField(node, "value")
		if err != nil {
			return nil, err
		}
		unit := node.Field("unit")
		if unit == nil {
			return nil, fmt.Errorf("parser: unit expression missing unit")
		}
		return ast.NewUnitExpression(value, strings.TrimSpace(unit.Text())), nil

	case "substitution_expression":
		base, err := parseExpressionField(node, "base")
		if err != nil {
			return nil, err
		}
		var bindings []*ast.Binding
		for _, b := range node.Fields("binding") {
			name, err := parseIdentifierField(b, "name")
			if err != nil {
				return nil, wrapParseError(b, err)
			}
			value, err := parseExpressionField(b, "value")
			if err != nil {
				return nil, wrapParseError(b, err)
			}
			bindings = append(bindings, &ast.Binding{Name: name, Value: value})
		}
		return ast.NewSubstitutionExpression(base, bindings), nil

	case "summation_expression":
		variable, err := parseIdentifierField(node, "variable")
		if err != nil {
			return nil, err
		}
		lower, err := parseExpressionField(node, "lower")
		if err != nil {
			return nil, err
		}
		upper, err := parseExpressionField(node, "upper")
		if err != nil {
			return nil, err
		}
		body, err := parseExpressionField(node, "body")
		if err != nil {
			return nil, err
		}
		return ast.NewSummationExpression(variable, lower, upper, body), nil

	case "piecewise_expression":
		var cases []*ast.PiecewiseCase
		for _, c := range node.Fields("case") {
			value, err := parseExpressionField(c, "value")
			if err != nil {
				return nil, wrapParseError(c, err)
			}
			if c.Kind() == "otherwise_case" {
				cases = append(cases, &ast.PiecewiseCase{Value: value, Otherwise: true})
				continue
			}
			cond, err := parseExpressionField(c, "condition")
			if err != nil {
				return nil, wrapParseError(c, err)
			}
			cases = append(cases, &ast.PiecewiseCase{Value: value, Condition: cond})
		}
		return ast.NewPiecewiseExpression(cases), nil

	case "derivative_expression":
		expr, err := parseExpressionField(node, "expression")
		if err != nil {
			return nil, err
		}
		variable, err := parseIdentifierField(node, "variable")
		if err != nil {
			return nil, err
		}
		return ast.NewDerivativeExpression(expr, variable), nil
	}
	return nil, fmt.Errorf("parser: unsupported expression %q", node.Kind())
}

// operatorText normalizes word operators to their symbolic form.
func operatorText(node cstNode) string {
	op := node.Field("operator")
	if op == nil {
		return ""
	}
	switch text := strings.TrimSpace(op.Text()); text {
	case "and":
		return "&&"
	case "or":
		return "||"
	case "not":
		return "!"
	default:
		return text
	}
}

func unquote(text string) (string, error) {
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		return text[1 : len(text)-1], nil
	}
	value, err := strconv.Unquote(text)
	if err != nil {
		return "", fmt.Errorf("parser: invalid string literal %s", text)
	}
	return value, nil
}
