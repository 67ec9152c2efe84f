package parser

import (
	"errors"
	"fmt"

	"madola/interpreter-go/pkg/ast"
)

// ParseError includes a message plus a best-effort source location.
type ParseError struct {
	Message  string
	Location ast.Location
}

func (e *ParseError) Error() string {
	if e.Location.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Location.Line, e.Location.Column)
}

func wrapParseError(node cstNode, err error) error {
	if err == nil {
		return nil
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr
	}
	if node == nil {
		return err
	}
	return &ParseError{Message: err.Error(), Location: node.Location()}
}

// syntaxError points at the earliest missing or error node under root.
func syntaxError(root cstNode) *ParseError {
	errorNode := firstNode(root, cstNode.IsMissing)
	expected := ""
	if errorNode != nil {
		expected = errorNode.Kind()
	} else {
		errorNode = firstNode(root, cstNode.IsError)
	}
	if errorNode == nil {
		errorNode = root
	}
	message := "parser: syntax errors present"
	if expected != "" {
		message = fmt.Sprintf("parser: syntax errors present: expected %s", expected)
	}
	return &ParseError{Message: message, Location: errorNode.Location()}
}

// firstNode returns the first node in source order matching pred. A
// depth-first pre-order walk visits nodes in start order.
func firstNode(root cstNode, pred func(cstNode) bool) cstNode {
	if root == nil {
		return nil
	}
	if pred(root) {
		return root
	}
	for _, child := range root.Children() {
		if found := firstNode(child, pred); found != nil {
			return found
		}
	}
	return nil
}
