package debugger

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"madola/interpreter-go/pkg/ast"
)

// ExpressionParser turns the text of a `print` argument or breakpoint condition
// into an expression tree. The tree-sitter adapter in pkg/parser satisfies it
// when the host links the MADOLA grammar.
type ExpressionParser interface {
	ParseExpression(src string) (ast.Expression, error)
}

// SnippetParser is the built-in ExpressionParser. It understands the
// expression subset a debugger user types: literals, names (including
// `\alpha` style), calls, member access, indexing, vectors and the usual
// operators.
type SnippetParser struct{}

func (SnippetParser) ParseExpression(src string) (ast.Expression, error) {
	tokens, err := lexSnippet(src)
	if err != nil {
		return nil, err
	}
	p := &snippetParser{tokens: tokens}
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("expression: unexpected %q at offset %d", tok.text, tok.offset)
	}
	return expr, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokImaginary
	tokString
	tokIdent
	tokOperator
	tokPunct
)

type snippetToken struct {
	kind   tokenKind
	text   string
	offset int
}

var snippetOperators = []string{"**", "==", "!=", "<=", ">=", "&&", "||", "+", "-", "*", "/", "%", "^", "<", ">", "!"}

func lexSnippet(src string) ([]snippetToken, error) {
	var tokens []snippetToken
	runes := []rune(src)
	for pos := 0; pos < len(runes); {
		r := runes[pos]
		switch {
		case unicode.IsSpace(r):
			pos++
		case unicode.IsDigit(r) || (r == '.' && pos+1 < len(runes) && unicode.IsDigit(runes[pos+1])):
			start := pos
			for pos < len(runes) && (unicode.IsDigit(runes[pos]) || runes[pos] == '.') {
				pos++
			}
			if pos < len(runes) && (runes[pos] == 'e' || runes[pos] == 'E') {
				next := pos + 1
				if next < len(runes) && (runes[next] == '+' || runes[next] == '-') {
					next++
				}
				if next < len(runes) && unicode.IsDigit(runes[next]) {
					pos = next
					for pos < len(runes) && unicode.IsDigit(runes[pos]) {
						pos++
					}
				}
			}
			kind := tokNumber
			text := string(runes[start:pos])
			if pos < len(runes) && runes[pos] == 'i' && (pos+1 == len(runes) || !isIdentRune(runes[pos+1])) {
				kind = tokImaginary
				pos++
			}
			tokens = append(tokens, snippetToken{kind: kind, text: text, offset: start})
		case r == '"' || r == '\'':
			start := pos
			pos++
			var b strings.Builder
			for pos < len(runes) && runes[pos] != r {
				if runes[pos] == '\\' && pos+1 < len(runes) {
					pos++
				}
				b.WriteRune(runes[pos])
				pos++
			}
			if pos >= len(runes) {
				return nil, fmt.Errorf("expression: unterminated string at offset %d", start)
			}
			pos++
			tokens = append(tokens, snippetToken{kind: tokString, text: b.String(), offset: start})
		case isIdentStart(r) || (r == '\\' && pos+1 < len(runes) && unicode.IsLetter(runes[pos+1])):
			start := pos
			pos++
			for pos < len(runes) && isIdentRune(runes[pos]) {
				pos++
			}
			tokens = append(tokens, snippetToken{kind: tokIdent, text: string(runes[start:pos]), offset: start})
		case strings.ContainsRune("()[],;.", r):
			tokens = append(tokens, snippetToken{kind: tokPunct, text: string(r), offset: pos})
			pos++
		default:
			matched := ""
			for _, op := range snippetOperators {
				if strings.HasPrefix(string(runes[pos:]), op) {
					matched = op
					break
				}
			}
			if matched == "" {
				return nil, fmt.Errorf("expression: unexpected character %q at offset %d", r, pos)
			}
			tokens = append(tokens, snippetToken{kind: tokOperator, text: matched, offset: pos})
			pos += len([]rune(matched))
		}
	}
	return append(tokens, snippetToken{kind: tokEOF, offset: len(runes)}), nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// operator precedence, lowest first
const (
	precLowest = iota
	precOr
	precAnd
	precEquals
	precCompare
	precSum
	precProduct
	precPrefix
	precPower
	precPostfix
)

func infixPrecedence(tok snippetToken) int {
	switch tok.kind {
	case tokOperator:
		switch tok.text {
		case "||":
			return precOr
		case "&&":
			return precAnd
		case "==", "!=":
			return precEquals
		case "<", "<=", ">", ">=":
			return precCompare
		case "+", "-":
			return precSum
		case "*", "/", "%":
			return precProduct
		case "^", "**":
			return precPower
		}
	case tokIdent:
		switch tok.text {
		case "or":
			return precOr
		case "and":
			return precAnd
		}
	case tokPunct:
		switch tok.text {
		case "(", "[", ".":
			return precPostfix
		}
	}
	return precLowest
}

type snippetParser struct {
	tokens []snippetToken
	pos    int
}

func (p *snippetParser) peek() snippetToken {
	return p.tokens[p.pos]
}

func (p *snippetParser) next() snippetToken {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *snippetParser) expect(text string) error {
	tok := p.next()
	if tok.kind != tokPunct || tok.text != text {
		if tok.kind == tokEOF {
			return fmt.Errorf("expression: expected %q, got end of input", text)
		}
		return fmt.Errorf("expression: expected %q, got %q at offset %d", text, tok.text, tok.offset)
	}
	return nil
}

func (p *snippetParser) parseExpression(prec int) (ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		next := infixPrecedence(tok)
		if next <= prec {
			return left, nil
		}
		p.next()
		if next == precPostfix {
			left, err = p.parsePostfix(tok, left)
		} else {
			left, err = p.parseInfix(tok, next, left)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *snippetParser) parsePrefix() (ast.Expression, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber, tokImaginary:
		val, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("expression: invalid number %q", tok.text)
		}
		if tok.kind == tokImaginary {
			return ast.Imag(val), nil
		}
		return ast.Num(val), nil
	case tokString:
		return ast.Str(tok.text), nil
	case tokIdent:
		if tok.text == "not" {
			operand, err := p.parseExpression(precPrefix)
			if err != nil {
				return nil, err
			}
			return ast.Not(operand), nil
		}
		return ast.ID(tok.text), nil
	case tokOperator:
		if tok.text != "-" && tok.text != "+" && tok.text != "!" {
			break
		}
		operand, err := p.parseExpression(precPrefix)
		if err != nil {
			return nil, err
		}
		return ast.Un(tok.text, operand), nil
	case tokPunct:
		switch tok.text {
		case "(":
			expr, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			return expr, p.expect(")")
		case "[":
			return p.parseArray()
		}
	case tokEOF:
		return nil, fmt.Errorf("expression: unexpected end of input")
	}
	return nil, fmt.Errorf("expression: unexpected %q at offset %d", tok.text, tok.offset)
}

func (p *snippetParser) parseInfix(tok snippetToken, prec int, left ast.Expression) (ast.Expression, error) {
	op := tok.text
	switch op {
	case "and":
		op = "&&"
	case "or":
		op = "||"
	}
	// power is right associative
	rightPrec := prec
	if prec == precPower {
		rightPrec = prec - 1
	}
	right, err := p.parseExpression(rightPrec)
	if err != nil {
		return nil, err
	}
	return ast.Bin(op, left, right), nil
}

func (p *snippetParser) parsePostfix(tok snippetToken, left ast.Expression) (ast.Expression, error) {
	switch tok.text {
	case "(":
		args, err := p.parseList(")")
		if err != nil {
			return nil, err
		}
		return ast.NewCallExpression(left, args), nil
	case "[":
		index, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		if idx, ok := left.(*ast.IndexExpression); ok {
			idx.Indices = append(idx.Indices, index)
			return idx, nil
		}
		return ast.Idx(left, index), nil
	default:
		name := p.next()
		if name.kind != tokIdent {
			return nil, fmt.Errorf("expression: expected member name after '.' at offset %d", tok.offset)
		}
		return ast.Member(left, name.text), nil
	}
}

func (p *snippetParser) parseList(closer string) ([]ast.Expression, error) {
	var items []ast.Expression
	if tok := p.peek(); tok.kind == tokPunct && tok.text == closer {
		p.next()
		return items, nil
	}
	for {
		item, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		tok := p.next()
		if tok.kind == tokPunct && tok.text == closer {
			return items, nil
		}
		if tok.kind != tokPunct || tok.text != "," {
			return nil, fmt.Errorf("expression: expected ',' or %q at offset %d", closer, tok.offset)
		}
	}
}

// parseArray reads `[a, b]` rows and `[a; b]` columns after the opening bracket.
func (p *snippetParser) parseArray() (ast.Expression, error) {
	var items []ast.Expression
	sep := ""
	if tok := p.peek(); tok.kind == tokPunct && tok.text == "]" {
		p.next()
		return ast.Arr(), nil
	}
	for {
		item, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		tok := p.next()
		if tok.kind == tokPunct && tok.text == "]" {
			break
		}
		if tok.kind != tokPunct || (tok.text != "," && tok.text != ";") {
			return nil, fmt.Errorf("expression: expected ',' ';' or ']' at offset %d", tok.offset)
		}
		if sep != "" && sep != tok.text {
			return nil, fmt.Errorf("expression: mixed ',' and ';' in vector at offset %d", tok.offset)
		}
		sep = tok.text
	}
	if sep == ";" {
		return ast.Col(items...), nil
	}
	return ast.Arr(items...), nil
}
