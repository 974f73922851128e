package extract

// Kind classifies a literal argument value.
type Kind int

const (
	KindOther  Kind = iota // any expression the extractor does not model
	KindString             // string literal
	KindBool               // true / false
	KindArray              // array literal
	KindObject             // object literal
)

// Value is the literal model both extraction strategies reduce call
// arguments to. Only the shapes the dependency keys can hold are modeled;
// everything else collapses to KindOther.
type Value struct {
	Kind   Kind
	Str    string  // KindString
	Bool   bool    // KindBool
	Items  []Value // KindArray, non-hole elements in source order
	Fields []Field // KindObject, in source order
}

// Field is one key/value pair of an object literal.
type Field struct {
	Key   string
	Value Value
}

// Lookup returns the first field with the given key. Later duplicates are
// ignored.
func (v Value) Lookup(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Strings returns the string leaves of v: the value itself for a string,
// the string elements for an array. Other shapes yield nothing.
func (v Value) Strings() []string {
	switch v.Kind {
	case KindString:
		return []string{v.Str}
	case KindArray:
		var out []string
		for _, item := range v.Items {
			if item.Kind == KindString {
				out = append(out, item.Str)
			}
		}
		return out
	}
	return nil
}

// fieldStrings returns the string-valued fields of an object in order.
func (v Value) fieldStrings() []string {
	var out []string
	for _, f := range v.Fields {
		if f.Value.Kind == KindString {
			out = append(out, f.Value.Str)
		}
	}
	return out
}

// call is one framework call found in a unit, reduced to its target path and
// literal arguments.
type call struct {
	target string
	args   []Value
}
