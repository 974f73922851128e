package extract

import (
	"context"
	"fmt"
	"strings"
)

// Pattern is the lightweight extraction strategy. It tokenizes the raw text
// and matches call targets as dotted identifier chains followed by "(",
// then reads the argument list with a small literal reader. It never builds
// a syntax tree.
type Pattern struct {
	m matcher
}

// NewPattern creates a pattern-matching extractor.
func NewPattern(opts ...Option) *Pattern {
	return &Pattern{m: newMatcher(opts)}
}

// Name returns "pattern".
func (p *Pattern) Name() string { return StrategyPattern }

// Extract returns the declarations in content in source order.
func (p *Pattern) Extract(ctx context.Context, content []byte) ([]Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pattern extract canceled: %w", err)
	}
	if err := p.m.checkSize(content); err != nil {
		return nil, err
	}

	toks, err := tokenize(string(content))
	if err != nil {
		return nil, err
	}

	r := &reader{toks: toks}
	var calls []call
	for i := 0; i < len(toks); i++ {
		if toks[i].kind != tokIdent || (i > 0 && toks[i-1].is(".")) {
			continue
		}
		path, open := r.chain(i)
		if open >= len(toks) || !toks[open].is("(") || !p.m.isTarget(path) {
			continue
		}
		args, err := r.args(open + 1)
		if err != nil {
			return declare(calls, p.m.apps, p.m.classes), err
		}
		calls = append(calls, call{target: path, args: args})
	}
	return declare(calls, p.m.apps, p.m.classes), nil
}

// reader reads literal values from a token stream.
type reader struct {
	toks []token
}

// chain reads a dotted identifier chain starting at i and returns the path
// and the index of the first token after it.
func (r *reader) chain(i int) (string, int) {
	parts := []string{r.toks[i].text}
	j := i + 1
	for j+1 < len(r.toks) && r.toks[j].is(".") && r.toks[j+1].kind == tokIdent {
		parts = append(parts, r.toks[j+1].text)
		j += 2
	}
	return strings.Join(parts, "."), j
}

func (r *reader) eof(i int) error {
	if len(r.toks) == 0 {
		return &ParseError{Line: 1, Column: 1, Message: "unexpected end of input"}
	}
	last := r.toks[len(r.toks)-1]
	if i < len(r.toks) {
		last = r.toks[i]
	}
	return &ParseError{Line: last.line, Column: last.col, Message: "unexpected end of input"}
}

func (r *reader) unexpected(i int, in string) error {
	t := r.toks[i]
	return &ParseError{Line: t.line, Column: t.col, Message: fmt.Sprintf("unexpected %q in %s", t.text, in)}
}

func isCloser(t token) bool {
	return t.is(")") || t.is("]") || t.is("}")
}

func (r *reader) delimiter(i int) bool {
	return i < len(r.toks) && (r.toks[i].is(",") || isCloser(r.toks[i]))
}

// args reads a call's argument list; i is the index after "(".
func (r *reader) args(i int) ([]Value, error) {
	var out []Value
	for {
		if i >= len(r.toks) {
			return nil, r.eof(i - 1)
		}
		if r.toks[i].is(")") {
			return out, nil
		}
		v, next, err := r.value(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		i = next
		if i >= len(r.toks) {
			return nil, r.eof(i - 1)
		}
		switch {
		case r.toks[i].is(","):
			i++
		case r.toks[i].is(")"):
		default:
			return nil, r.unexpected(i, "argument list")
		}
	}
}

// value reads one expression. Anything that is not a bare literal of a
// modeled shape becomes KindOther.
func (r *reader) value(i int) (Value, int, error) {
	v, next, err := r.primary(i)
	if err != nil {
		return Value{}, 0, err
	}
	if next >= len(r.toks) {
		return Value{}, 0, r.eof(next - 1)
	}
	if r.delimiter(next) {
		return v, next, nil
	}
	end, err := r.skip(next)
	if err != nil {
		return Value{}, 0, err
	}
	return Value{Kind: KindOther}, end, nil
}

func (r *reader) primary(i int) (Value, int, error) {
	if i >= len(r.toks) {
		return Value{}, 0, r.eof(i - 1)
	}
	t := r.toks[i]
	switch {
	case t.kind == tokString:
		return Value{Kind: KindString, Str: unquote(t.text)}, i + 1, nil
	case t.kind == tokIdent && (t.text == "true" || t.text == "false"):
		return Value{Kind: KindBool, Bool: t.text == "true"}, i + 1, nil
	case t.is("["):
		return r.array(i + 1)
	case t.is("{"):
		return r.object(i + 1)
	case r.delimiter(i):
		return Value{Kind: KindOther}, i, nil
	}
	end, err := r.skip(i)
	if err != nil {
		return Value{}, 0, err
	}
	return Value{Kind: KindOther}, end, nil
}

func (r *reader) array(i int) (Value, int, error) {
	v := Value{Kind: KindArray}
	for {
		if i >= len(r.toks) {
			return Value{}, 0, r.eof(i - 1)
		}
		switch {
		case r.toks[i].is("]"):
			return v, i + 1, nil
		case r.toks[i].is(","):
			i++
			continue
		}
		item, next, err := r.value(i)
		if err != nil {
			return Value{}, 0, err
		}
		v.Items = append(v.Items, item)
		i = next
		switch {
		case r.toks[i].is(","):
			i++
		case r.toks[i].is("]"):
		default:
			return Value{}, 0, r.unexpected(i, "array literal")
		}
	}
}

func (r *reader) object(i int) (Value, int, error) {
	v := Value{Kind: KindObject}
	for {
		if i >= len(r.toks) {
			return Value{}, 0, r.eof(i - 1)
		}
		if r.toks[i].is("}") {
			return v, i + 1, nil
		}

		key, ok := r.key(i)
		if ok {
			val, next, err := r.value(i + 2)
			if err != nil {
				return Value{}, 0, err
			}
			v.Fields = append(v.Fields, Field{Key: key, Value: val})
			i = next
		} else {
			// Shorthand properties, methods, accessors, computed keys and
			// spreads carry no dependency information.
			next, err := r.skip(i)
			if err != nil {
				return Value{}, 0, err
			}
			i = next
		}

		switch {
		case r.toks[i].is(","):
			i++
		case r.toks[i].is("}"):
		default:
			return Value{}, 0, r.unexpected(i, "object literal")
		}
	}
}

// key reports whether tokens at i form `key :` and returns the key.
func (r *reader) key(i int) (string, bool) {
	if i+1 >= len(r.toks) || !r.toks[i+1].is(":") {
		return "", false
	}
	t := r.toks[i]
	switch t.kind {
	case tokIdent, tokNumber:
		return t.text, true
	case tokString:
		return unquote(t.text), true
	}
	return "", false
}

// skip advances past one expression to the next top-level "," or closing
// bracket, which it does not consume.
func (r *reader) skip(i int) (int, error) {
	depth := 0
	for ; i < len(r.toks); i++ {
		t := r.toks[i]
		switch {
		case t.is("(") || t.is("[") || t.is("{"):
			depth++
		case isCloser(t):
			if depth == 0 {
				return i, nil
			}
			depth--
		case t.is(",") && depth == 0:
			return i, nil
		}
	}
	return 0, r.eof(len(r.toks) - 1)
}
