package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON decodes a serialized program tree. Every node is an object with a
// "type" field naming its NodeType and an optional "loc" object.
func DecodeJSON(data []byte) (*Program, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return DecodeProgram(raw)
}

// DecodeYAML decodes the YAML rendition of the same tree format.
func DecodeYAML(data []byte) (*Program, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return DecodeProgram(raw)
}

// DecodeFile picks the decoder from the file extension.
func DecodeFile(name string, data []byte) (*Program, error) {
	switch {
	case strings.HasSuffix(name, ".json"):
		return DecodeJSON(data)
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("decode: unsupported tree format %q", name)
	}
}

// DecodeProgram decodes an already-unmarshalled tree. A bare statement list under
// "body" is accepted with or without the Program type tag.
func DecodeProgram(raw map[string]any) (*Program, error) {
	if typ, _ := raw["type"].(string); typ != "" && typ != string(NodeProgram) {
		return nil, fmt.Errorf("decode: root must be %s, got %s", NodeProgram, typ)
	}
	body, err := decodeStatementList(raw["body"])
	if err != nil {
		return nil, err
	}
	program := NewProgram(body)
	applyLocation(program, raw)
	return program, nil
}

type nodeCategoryDecoder func(map[string]any, string) (Node, bool, error)

var nodeDecoders []nodeCategoryDecoder

func init() {
	nodeDecoders = []nodeCategoryDecoder{
		decodeLiteralNodes,
		decodeExpressionNodes,
		decodeDomainNodes,
		decodeStatementNodes,
	}
}

func decodeNode(node map[string]any) (Node, error) {
	typ, _ := node["type"].(string)
	for _, decoder := range nodeDecoders {
		decoded, handled, err := decoder(node, typ)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		if handled {
			applyLocation(decoded, node)
			return decoded, nil
		}
	}
	if typ == "" {
		return nil, fmt.Errorf("decode: node without type: %w", fs.ErrInvalid)
	}
	return nil, fmt.Errorf("decode: unknown node type %q: %w", typ, fs.ErrInvalid)
}

func decodeLiteralNodes(node map[string]any, typ string) (Node, bool, error) {
	switch NodeType(typ) {
	case NodeIdentifier:
		name, err := requireString(node, "name")
		if err != nil {
			return nil, true, err
		}
		return NewIdentifier(name), true, nil
	case NodeNumberLiteral:
		value, err := requireNumber(node, "value")
		if err != nil {
			return nil, true, err
		}
		return NewNumberLiteral(value), true, nil
	case NodeImaginaryLiteral:
		value, err := requireNumber(node, "value")
		if err != nil {
			return nil, true, err
		}
		return NewImaginaryLiteral(value), true, nil
	case NodeStringLiteral:
		value, _ := node["value"].(string)
		return NewStringLiteral(value), true, nil
	default:
		return nil, false, nil
	}
}

func decodeExpressionNodes(node map[string]any, typ string) (Node, bool, error) {
	switch NodeType(typ) {
	case NodeUnaryExpression:
		operator, err := requireString(node, "operator")
		if err != nil {
			return nil, true, err
		}
		operand, err := decodeExpressionField(node, "operand")
		if err != nil {
			return nil, true, err
		}
		return NewUnaryExpression(operator, operand), true, nil
	case NodeBinaryExpression:
		operator, err := requireString(node, "operator")
		if err != nil {
			return nil, true, err
		}
		left, err := decodeExpressionField(node, "left")
		if err != nil {
			return nil, true, err
		}
		right, err := decodeExpressionField(node, "right")
		if err != nil {
			return nil, true, err
		}
		return NewBinaryExpression(operator, left, right), true, nil
	case NodeArrayLiteral:
		elements, err := decodeExpressionList(node["elements"])
		if err != nil {
			return nil, true, err
		}
		column, _ := node["column"].(bool)
		return NewArrayLiteral(elements, column), true, nil
	case NodeMatrixLiteral:
		rowsRaw, _ := node["rows"].([]any)
		rows := make([][]Expression, 0, len(rowsRaw))
		for _, rawRow := range rowsRaw {
			row, err := decodeExpressionList(rawRow)
			if err != nil {
				return nil, true, err
			}
			rows = append(rows, row)
		}
		return NewMatrixLiteral(rows), true, nil
	case NodeRangeExpression:
		start, err := decodeExpressionField(node, "start")
		if err != nil {
			return nil, true, err
		}
		end, err := decodeExpressionField(node, "end")
		if err != nil {
			return nil, true, err
		}
		step, err := decodeOptionalExpression(node, "step")
		if err != nil {
			return nil, true, err
		}
		inclusive := true
		if v, ok := node["inclusive"].(bool); ok {
			inclusive = v
		}
		return NewRangeExpression(start, end, step, inclusive), true, nil
	case NodeIndexExpression:
		target, err := decodeExpressionField(node, "target")
		if err != nil {
			return nil, true, err
		}
		indices, err := decodeExpressionList(node["indices"])
		if err != nil {
			return nil, true, err
		}
		return NewIndexExpression(target, indices), true, nil
	case NodeMemberExpression:
		object, err := decodeExpressionField(node, "object")
		if err != nil {
			return nil, true, err
		}
		member, err := decodeIdentifierField(node, "member")
		if err != nil {
			return nil, true, err
		}
		return NewMemberExpression(object, member), true, nil
	case NodeCallExpression:
		callee, err := decodeCallee(node["callee"])
		if err != nil {
			return nil, true, err
		}
		args, err := decodeExpressionList(node["arguments"])
		if err != nil {
			return nil, true, err
		}
		return NewCallExpression(callee, args), true, nil
	default:
		return nil, false, nil
	}
}

func decodeDomainNodes(node map[string]any, typ string) (Node, bool, error) {
	switch NodeType(typ) {
	case NodeUnitExpression:
		value, err := decodeExpressionField(node, "value")
		if err != nil {
			return nil, true, err
		}
		unit, err := requireString(node, "unit")
		if err != nil {
			return nil, true, err
		}
		return NewUnitExpression(value, unit), true, nil
	case NodeSubstitutionExpression:
		base, err := decodeExpressionField(node, "base")
		if err != nil {
			return nil, true, err
		}
		rawBindings, _ := node["bindings"].([]any)
		bindings := make([]*Binding, 0, len(rawBindings))
		for _, raw := range rawBindings {
			entry, ok := raw.(map[string]any)
			if !ok {
				return nil, true, fmt.Errorf("invalid binding %T", raw)
			}
			name, err := decodeIdentifierField(entry, "name")
			if err != nil {
				return nil, true, err
			}
			value, err := decodeExpressionField(entry, "value")
			if err != nil {
				return nil, true, err
			}
			bindings = append(bindings, &Binding{Name: name, Value: value})
		}
		return NewSubstitutionExpression(base, bindings), true, nil
	case NodeSummationExpression:
		variable, err := decodeIdentifierField(node, "variable")
		if err != nil {
			return nil, true, err
		}
		lower, err := decodeExpressionField(node, "lower")
		if err != nil {
			return nil, true, err
		}
		upper, err := decodeExpressionField(node, "upper")
		if err != nil {
			return nil, true, err
		}
		body, err := decodeExpressionField(node, "body")
		if err != nil {
			return nil, true, err
		}
		return NewSummationExpression(variable, lower, upper, body), true, nil
	case NodePiecewiseExpression:
		rawCases, _ := node["cases"].([]any)
		cases := make([]*PiecewiseCase, 0, len(rawCases))
		for _, raw := range rawCases {
			entry, ok := raw.(map[string]any)
			if !ok {
				return nil, true, fmt.Errorf("invalid piecewise case %T", raw)
			}
			value, err := decodeExpressionField(entry, "value")
			if err != nil {
				return nil, true, err
			}
			otherwise, _ := entry["otherwise"].(bool)
			var condition Expression
			if !otherwise {
				condition, err = decodeExpressionField(entry, "condition")
				if err != nil {
					return nil, true, err
				}
			}
			cases = append(cases, &PiecewiseCase{Value: value, Condition: condition, Otherwise: otherwise})
		}
		return NewPiecewiseExpression(cases), true, nil
	case NodeDerivativeExpression:
		expr, err := decodeExpressionField(node, "expression")
		if err != nil {
			return nil, true, err
		}
		variable, err := decodeIdentifierField(node, "variable")
		if err != nil {
			return nil, true, err
		}
		return NewDerivativeExpression(expr, variable), true, nil
	default:
		return nil, false, nil
	}
}

func decodeStatementNodes(node map[string]any, typ string) (Node, bool, error) {
	switch NodeType(typ) {
	case NodeAssignment:
		name, err := decodeIdentifierField(node, "name")
		if err != nil {
			return nil, true, err
		}
		value, err := decodeExpressionField(node, "value")
		if err != nil {
			return nil, true, err
		}
		return NewAssignment(name, value), true, nil
	case NodeIndexAssignment:
		name, err := decodeIdentifierField(node, "name")
		if err != nil {
			return nil, true, err
		}
		indices, err := decodeExpressionList(node["indices"])
		if err != nil {
			return nil, true, err
		}
		if len(indices) == 0 || len(indices) > 2 {
			return nil, true, fmt.Errorf("index assignment takes one or two indices, got %d", len(indices))
		}
		value, err := decodeExpressionField(node, "value")
		if err != nil {
			return nil, true, err
		}
		marker, _ := node["columnMarker"].(bool)
		return NewIndexAssignment(name, indices, marker, value), true, nil
	case NodeFunctionDeclaration:
		name, err := decodeIdentifierField(node, "name")
		if err != nil {
			return nil, true, err
		}
		rawParams, _ := node["params"].([]any)
		params := make([]*Identifier, 0, len(rawParams))
		for _, raw := range rawParams {
			param, err := decodeIdentifier(raw)
			if err != nil {
				return nil, true, err
			}
			params = append(params, param)
		}
		body, err := decodeStatementList(node["body"])
		if err != nil {
			return nil, true, err
		}
		var decorators []string
		if rawDecorators, ok := node["decorators"].([]any); ok {
			for _, raw := range rawDecorators {
				name, ok := raw.(string)
				if !ok {
					return nil, true, fmt.Errorf("invalid decorator %T", raw)
				}
				decorators = append(decorators, strings.TrimPrefix(name, "@"))
			}
		}
		return NewFunctionDeclaration(name, params, body, decorators), true, nil
	case NodeExpressionStatement:
		expr, err := decodeExpressionField(node, "expression")
		if err != nil {
			return nil, true, err
		}
		return NewExpressionStatement(expr), true, nil
	case NodePrintStatement:
		args, err := decodeExpressionList(node["arguments"])
		if err != nil {
			return nil, true, err
		}
		return NewPrintStatement(args), true, nil
	case NodeIfStatement:
		condition, err := decodeExpressionField(node, "condition")
		if err != nil {
			return nil, true, err
		}
		then, err := decodeStatementList(node["then"])
		if err != nil {
			return nil, true, err
		}
		otherwise, err := decodeStatementList(node["else"])
		if err != nil {
			return nil, true, err
		}
		return NewIfStatement(condition, then, otherwise), true, nil
	case NodeForLoop:
		variable, err := decodeIdentifierField(node, "variable")
		if err != nil {
			return nil, true, err
		}
		iterable, err := decodeExpressionField(node, "iterable")
		if err != nil {
			return nil, true, err
		}
		body, err := decodeStatementList(node["body"])
		if err != nil {
			return nil, true, err
		}
		return NewForLoop(variable, iterable, body), true, nil
	case NodeWhileLoop:
		condition, err := decodeExpressionField(node, "condition")
		if err != nil {
			return nil, true, err
		}
		body, err := decodeStatementList(node["body"])
		if err != nil {
			return nil, true, err
		}
		return NewWhileLoop(condition, body), true, nil
	case NodeReturnStatement:
		value, err := decodeOptionalExpression(node, "value")
		if err != nil {
			return nil, true, err
		}
		return NewReturnStatement(value), true, nil
	case NodeBreakStatement:
		return NewBreakStatement(), true, nil
	case NodeImportStatement:
		module, err := requireString(node, "module")
		if err != nil {
			return nil, true, err
		}
		rawNames, _ := node["names"].([]any)
		names := make([]*ImportName, 0, len(rawNames))
		for _, raw := range rawNames {
			switch v := raw.(type) {
			case string:
				names = append(names, &ImportName{Name: v})
			case map[string]any:
				name, err := requireString(v, "name")
				if err != nil {
					return nil, true, err
				}
				alias, _ := v["alias"].(string)
				names = append(names, &ImportName{Name: name, Alias: alias})
			default:
				return nil, true, fmt.Errorf("invalid import name %T", raw)
			}
		}
		return NewImportStatement(module, names), true, nil
	default:
		return nil, false, nil
	}
}

func decodeStatementList(raw any) ([]Statement, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("decode: expected statement list, got %T", raw)
	}
	stmts := make([]Statement, 0, len(items))
	for _, item := range items {
		child, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode: invalid statement entry %T", item)
		}
		node, err := decodeNode(child)
		if err != nil {
			return nil, err
		}
		stmt, ok := node.(Statement)
		if !ok {
			return nil, fmt.Errorf("decode: %s is not a statement", node.NodeType())
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func decodeExpressionList(raw any) ([]Expression, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("decode: expected expression list, got %T", raw)
	}
	exprs := make([]Expression, 0, len(items))
	for _, item := range items {
		expr, err := decodeExpression(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func decodeExpressionField(node map[string]any, field string) (Expression, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("missing %s", field)
	}
	return decodeExpression(raw)
}

func decodeOptionalExpression(node map[string]any, field string) (Expression, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, nil
	}
	return decodeExpression(raw)
}

func decodeExpression(raw any) (Expression, error) {
	child, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode: invalid expression entry %T", raw)
	}
	node, err := decodeNode(child)
	if err != nil {
		return nil, err
	}
	expr, ok := node.(Expression)
	if !ok {
		return nil, fmt.Errorf("decode: %s is not an expression", node.NodeType())
	}
	return expr, nil
}

// decodeCallee accepts a callee node or the dotted shorthand "math.sqrt".
func decodeCallee(raw any) (Expression, error) {
	if name, ok := raw.(string); ok {
		if name == "" {
			return nil, fmt.Errorf("empty callee")
		}
		return Call(name).Callee, nil
	}
	if raw == nil {
		return nil, fmt.Errorf("missing callee")
	}
	return decodeExpression(raw)
}

func decodeIdentifierField(node map[string]any, field string) (*Identifier, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("missing %s", field)
	}
	return decodeIdentifier(raw)
}

// decodeIdentifier accepts either an Identifier node or a bare name string.
func decodeIdentifier(raw any) (*Identifier, error) {
	switch v := raw.(type) {
	case string:
		return NewIdentifier(v), nil
	case map[string]any:
		node, err := decodeNode(v)
		if err != nil {
			return nil, err
		}
		id, ok := node.(*Identifier)
		if !ok {
			return nil, fmt.Errorf("decode: expected Identifier, got %s", node.NodeType())
		}
		return id, nil
	default:
		return nil, fmt.Errorf("decode: invalid identifier %T", raw)
	}
}

func applyLocation(node Node, raw map[string]any) {
	loc, ok := raw["loc"].(map[string]any)
	if !ok {
		return
	}
	line, _ := toNumber(loc["line"])
	column, _ := toNumber(loc["column"])
	offset, _ := toNumber(loc["offset"])
	SetLocation(node, Location{Line: int(line), Column: int(column), Offset: int(offset)})
}

func requireString(node map[string]any, field string) (string, error) {
	value, ok := node[field].(string)
	if !ok {
		return "", fmt.Errorf("missing %s", field)
	}
	return value, nil
}

func requireNumber(node map[string]any, field string) (float64, error) {
	value, ok := toNumber(node[field])
	if !ok {
		return 0, fmt.Errorf("invalid %s %v", field, node[field])
	}
	return value, nil
}

func toNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
