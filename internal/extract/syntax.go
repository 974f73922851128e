package extract

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// tree-sitter JavaScript node types.
const (
	jsNodeCallExpression   = "call_expression"
	jsNodeMemberExpression = "member_expression"
	jsNodeIdentifier       = "identifier"
	jsNodePropertyIdent    = "property_identifier"
	jsNodeOptionalChain    = "optional_chain"
	jsNodeArguments        = "arguments"
	jsNodeString           = "string"
	jsNodeNumber           = "number"
	jsNodeTrue             = "true"
	jsNodeFalse            = "false"
	jsNodeArray            = "array"
	jsNodeObject           = "object"
	jsNodePair             = "pair"
	jsNodeComment          = "comment"
	jsNodeError            = "ERROR"
)

// Syntax is the full-syntax-tree extraction strategy backed by tree-sitter's
// JavaScript grammar.
//
// Syntax is safe for concurrent use: every Extract call creates its own
// parser.
type Syntax struct {
	m matcher
}

// NewSyntax creates a tree-sitter backed extractor.
func NewSyntax(opts ...Option) *Syntax {
	return &Syntax{m: newMatcher(opts)}
}

// Name returns "syntax".
func (s *Syntax) Name() string { return StrategySyntax }

// Extract parses content and returns the declarations in source order. A
// tree with error nodes yields a *ParseError for the first one, together
// with the declarations found anyway.
func (s *Syntax) Extract(ctx context.Context, content []byte) ([]Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("syntax extract canceled before start: %w", err)
	}
	if err := s.m.checkSize(content); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var calls []call
	s.collect(root, content, &calls)
	decls := declare(calls, s.m.apps, s.m.classes)

	if root.HasError() {
		return decls, firstError(root)
	}
	return decls, nil
}

// collect walks the tree in pre-order, so outer calls precede the calls
// nested in their arguments, matching source order.
func (s *Syntax) collect(node *sitter.Node, content []byte, calls *[]call) {
	if node == nil {
		return
	}
	if node.Type() == jsNodeCallExpression {
		if fn := node.ChildByFieldName("function"); fn != nil {
			if path := calleePath(fn, content); path != "" && s.m.isTarget(path) {
				*calls = append(*calls, call{target: path, args: arguments(node, content)})
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		s.collect(node.Child(i), content, calls)
	}
}

// calleePath renders a callee built only from identifiers and plain member
// access as a dotted path. Any other callee yields "".
func calleePath(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case jsNodeIdentifier:
		return node.Content(content)
	case jsNodeMemberExpression:
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == jsNodeOptionalChain {
				return ""
			}
		}
		obj := node.ChildByFieldName("object")
		prop := node.ChildByFieldName("property")
		if obj == nil || prop == nil || prop.Type() != jsNodePropertyIdent {
			return ""
		}
		base := calleePath(obj, content)
		if base == "" {
			return ""
		}
		return base + "." + prop.Content(content)
	}
	return ""
}

func arguments(callNode *sitter.Node, content []byte) []Value {
	argsNode := callNode.ChildByFieldName("arguments")
	if argsNode == nil || argsNode.Type() != jsNodeArguments {
		return nil
	}
	var out []Value
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		child := argsNode.NamedChild(i)
		if child.Type() == jsNodeComment {
			continue
		}
		out = append(out, literal(child, content))
	}
	return out
}

// literal converts an expression node into the literal model.
func literal(node *sitter.Node, content []byte) Value {
	switch node.Type() {
	case jsNodeString:
		return Value{Kind: KindString, Str: unquote(node.Content(content))}
	case jsNodeTrue:
		return Value{Kind: KindBool, Bool: true}
	case jsNodeFalse:
		return Value{Kind: KindBool, Bool: false}
	case jsNodeArray:
		v := Value{Kind: KindArray}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == jsNodeComment {
				continue
			}
			v.Items = append(v.Items, literal(child, content))
		}
		return v
	case jsNodeObject:
		v := Value{Kind: KindObject}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != jsNodePair {
				continue
			}
			key, ok := pairKey(child, content)
			if !ok {
				continue
			}
			val := child.ChildByFieldName("value")
			if val == nil {
				continue
			}
			v.Fields = append(v.Fields, Field{Key: key, Value: literal(val, content)})
		}
		return v
	}
	return Value{Kind: KindOther}
}

func pairKey(pair *sitter.Node, content []byte) (string, bool) {
	key := pair.ChildByFieldName("key")
	if key == nil {
		return "", false
	}
	switch key.Type() {
	case jsNodePropertyIdent, jsNodeNumber:
		return key.Content(content), true
	case jsNodeString:
		return unquote(key.Content(content)), true
	}
	return "", false
}

// firstError locates the first ERROR or missing node in pre-order.
func firstError(node *sitter.Node) error {
	var found *sitter.Node
	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.Type() == jsNodeError || n.IsMissing() {
			found = n
			return true
		}
		if !n.HasError() {
			return false
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if walk(n.Child(i)) {
				return true
			}
		}
		return false
	}
	if !walk(node) {
		found = node
	}
	pt := found.StartPoint()
	msg := "syntax error"
	if found.IsMissing() {
		msg = fmt.Sprintf("missing %s", found.Type())
	}
	return &ParseError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, Message: msg}
}
