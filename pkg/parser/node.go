package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"madola/interpreter-go/pkg/ast"
)

// cstNode is the slice of the tree-sitter node API the converter relies on.
// Field lookups return nil when the field is absent.
type cstNode interface {
	Kind() string
	IsNamed() bool
	IsError() bool
	IsMissing() bool
	HasError() bool
	Children() []cstNode
	NamedChildren() []cstNode
	Field(name string) cstNode
	Fields(name string) []cstNode
	Text() string
	Location() ast.Location
}

type sitterNode struct {
	node   *sitter.Node
	source []byte
}

func wrapNode(node *sitter.Node, source []byte) cstNode {
	if node == nil {
		return nil
	}
	return &sitterNode{node: node, source: source}
}

func (n *sitterNode) Kind() string    { return n.node.Kind() }
func (n *sitterNode) IsNamed() bool   { return n.node.IsNamed() }
func (n *sitterNode) IsError() bool   { return n.node.IsError() }
func (n *sitterNode) IsMissing() bool { return n.node.IsMissing() }
func (n *sitterNode) HasError() bool  { return n.node.HasError() }

func (n *sitterNode) Children() []cstNode {
	count := n.node.ChildCount()
	out := make([]cstNode, 0, count)
	for i := uint(0); i < count; i++ {
		if child := n.node.Child(i); child != nil {
			out = append(out, wrapNode(child, n.source))
		}
	}
	return out
}

func (n *sitterNode) NamedChildren() []cstNode {
	count := n.node.NamedChildCount()
	out := make([]cstNode, 0, count)
	for i := uint(0); i < count; i++ {
		if child := n.node.NamedChild(i); child != nil {
			out = append(out, wrapNode(child, n.source))
		}
	}
	return out
}

func (n *sitterNode) Field(name string) cstNode {
	child := n.node.ChildByFieldName(name)
	if child == nil {
		return nil
	}
	return wrapNode(child, n.source)
}

func (n *sitterNode) Fields(name string) []cstNode {
	var out []cstNode
	for i := uint(0); i < n.node.ChildCount(); i++ {
		if n.node.FieldNameForChild(uint32(i)) != name {
			continue
		}
		if child := n.node.Child(i); child != nil {
			out = append(out, wrapNode(child, n.source))
		}
	}
	return out
}

func (n *sitterNode) Text() string {
	start, end := n.node.StartByte(), n.node.EndByte()
	if int(end) > len(n.source) || start > end {
		return ""
	}
	return string(n.source[start:end])
}

func (n *sitterNode) Location() ast.Location {
	pos := n.node.StartPosition()
	return ast.Location{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Offset: int(n.node.StartByte())}
}
