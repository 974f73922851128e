package extract

import "strings"

// Direct-dependency keys hold class names that are already fully qualified.
var directKeys = []string{"extend", "override", "mixins", "requires", "model"}

// moduleKeys maps each pluralized module key to its module kind, in the
// order the keys are read.
var moduleKeys = []struct {
	key    string
	module string
}{
	{"controllers", "controller"},
	{"models", "model"},
	{"views", "view"},
	{"stores", "store"},
}

// Token is one raw dependency token read from a configuration record.
type Token struct {
	Key    string // configuration key the token was read from
	Module string // module kind for module keys; empty for direct keys
	Value  string // raw string value
}

// Declaration is one class or application definition found in a unit.
type Declaration struct {
	// Target is the call target that produced the declaration, e.g.
	// "Ext.define".
	Target string
	// ClassName is the declared class name. Empty for applications.
	ClassName string
	// AppName is the application's `name` config. Empty for classes.
	AppName       string
	IsApplication bool
	// Tokens are the raw dependency tokens in key order.
	Tokens []Token
	// AutoCreateViewport is "true", "false", an explicit viewport class
	// name, or empty when the key is absent or not a string/bool.
	AutoCreateViewport string

	deps []string
}

// Label returns the class name, or the application name for applications.
func (d Declaration) Label() string {
	if d.ClassName != "" {
		return d.ClassName
	}
	return d.AppName
}

// Namespace returns the namespace short module tokens are qualified under.
// ok is false for an application without a name.
func (d Declaration) Namespace() (ns string, ok bool) {
	if d.IsApplication {
		return d.AppName, d.AppName != ""
	}
	if d.ClassName == "" {
		return "", false
	}
	ns, _, _ = strings.Cut(d.ClassName, ".")
	return ns, true
}

// Qualify expands a short module token into a fully qualified class name.
// The token is returned unchanged when it already starts with ns+"." or
// carries ".<module>." anywhere.
func Qualify(ns, module, token string) string {
	if strings.HasPrefix(token, ns+".") || strings.Contains(token, "."+module+".") {
		return token
	}
	return ns + "." + module + "." + token
}

// qualify applies Qualify under the declaration's namespace, returning the
// token unchanged when no namespace is known.
func (d Declaration) qualify(module, token string) string {
	ns, ok := d.Namespace()
	if !ok {
		return token
	}
	return Qualify(ns, module, token)
}

// DependencyNames returns the fully qualified dependency class names in key
// order: direct keys, module keys, then the implicit viewport. Duplicates
// are kept.
func (d Declaration) DependencyNames() []string {
	return d.deps
}

func (d Declaration) resolveDependencies() []string {
	deps := make([]string, 0, len(d.Tokens)+1)
	for _, tok := range d.Tokens {
		if tok.Module == "" {
			deps = append(deps, tok.Value)
			continue
		}
		deps = append(deps, d.qualify(tok.Module, tok.Value))
	}
	if d.IsApplication {
		switch d.AutoCreateViewport {
		case "", "false":
		case "true":
			deps = append(deps, d.qualify("view", "Viewport"))
		default:
			deps = append(deps, d.AutoCreateViewport)
		}
	}
	return deps
}

// newApplication builds an application declaration from its config record.
func newApplication(target string, cfg Value) Declaration {
	d := Declaration{Target: target, IsApplication: true}
	if name, ok := cfg.Lookup("name"); ok && name.Kind == KindString {
		d.AppName = name.Str
	}
	if v, ok := cfg.Lookup("autoCreateViewport"); ok {
		switch v.Kind {
		case KindBool:
			if v.Bool {
				d.AutoCreateViewport = "true"
			} else {
				d.AutoCreateViewport = "false"
			}
		case KindString:
			d.AutoCreateViewport = v.Str
		}
	}
	d.Tokens = readTokens(cfg)
	d.deps = d.resolveDependencies()
	return d
}

// newClass builds a class declaration. cfg may be the zero Value when the
// call carries no config record.
func newClass(target, className string, cfg Value) Declaration {
	d := Declaration{Target: target, ClassName: className}
	d.Tokens = readTokens(cfg)
	d.deps = d.resolveDependencies()
	return d
}

func readTokens(cfg Value) []Token {
	if cfg.Kind != KindObject {
		return nil
	}
	var toks []Token
	for _, key := range directKeys {
		v, ok := cfg.Lookup(key)
		if !ok {
			continue
		}
		values := v.Strings()
		if key == "mixins" && v.Kind == KindObject {
			values = v.fieldStrings()
		}
		for _, s := range values {
			toks = append(toks, Token{Key: key, Value: s})
		}
	}
	for _, mk := range moduleKeys {
		v, ok := cfg.Lookup(mk.key)
		if !ok {
			continue
		}
		for _, s := range v.Strings() {
			toks = append(toks, Token{Key: mk.key, Module: mk.module, Value: s})
		}
	}
	return toks
}

// declare turns matched calls into declarations, skipping calls whose
// arguments do not have a recognized shape.
func declare(calls []call, apps, classes map[string]bool) []Declaration {
	var decls []Declaration
	for _, c := range calls {
		switch {
		case apps[c.target]:
			if len(c.args) == 0 || c.args[0].Kind != KindObject {
				continue
			}
			decls = append(decls, newApplication(c.target, c.args[0]))
		case classes[c.target]:
			if len(c.args) == 0 || c.args[0].Kind != KindString {
				continue
			}
			var cfg Value
			for _, a := range c.args[1:] {
				if a.Kind == KindObject {
					cfg = a
					break
				}
			}
			decls = append(decls, newClass(c.target, c.args[0].Str, cfg))
		}
	}
	return decls
}
