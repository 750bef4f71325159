// Package facts holds the introspected structure of a program under test.
//
// Values in this package are produced by an Introspection Provider and are
// treated as read-only by the conformance engine.
package facts

import (
	"context"
	"strings"
)

// ClassID identifies a class by package and simple name.
type ClassID struct {
	Package string `json:"package"`
	Name    string `json:"name"`
}

// String returns the fully qualified name.
func (id ClassID) String() string {
	if id.Package == "" {
		return id.Name
	}
	return id.Package + "." + id.Name
}

// TypeRef is a reference to a type as declared in the program.
// Name is the raw simple name including array brackets (for example
// "Comparable" or "int[]"); Generic is the parameterized form when one was
// declared (for example "Comparable<Baz>"), empty otherwise.
type TypeRef struct {
	Name    string `json:"name"`
	Generic string `json:"generic,omitempty"`
}

// String returns the most specific textual form of the type.
func (t TypeRef) String() string {
	if t.Generic != "" {
		return t.Generic
	}
	return t.Name
}

// ValueKind classifies a literal annotation argument.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindChar   ValueKind = "char"
	KindSymbol ValueKind = "symbol"
	KindArray  ValueKind = "array"
	KindNull   ValueKind = "null"
)

// Value is a typed literal. Symbol covers enum constants and class literals
// and keeps their source text in Str.
type Value struct {
	Kind  ValueKind `json:"kind"`
	Str   string    `json:"str,omitempty"`
	Num   float64   `json:"num,omitempty"`
	Bool  bool      `json:"bool,omitempty"`
	Items []Value   `json:"items,omitempty"`
}

// String renders the value for messages.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return `"` + v.Str + `"`
	case KindChar:
		return "'" + v.Str + "'"
	case KindNumber, KindSymbol:
		return v.Str
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindArray:
		parts := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			parts = append(parts, item.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "null"
	}
}

// Annotation is a declared annotation with its explicit arguments.
// A single unnamed argument is stored under "value".
type Annotation struct {
	Name string           `json:"name"`
	Args map[string]Value `json:"args,omitempty"`
}

// Member is a declared constructor or method.
type Member struct {
	Name        string       `json:"name"`
	Params      []TypeRef    `json:"params"`
	Modifiers   []string     `json:"modifiers"`
	Annotations []Annotation `json:"annotations,omitempty"`
	// Return is the declared return type of a method; zero for constructors.
	Return TypeRef `json:"return,omitempty"`
	// Implicit marks members the compiler would generate, such as the
	// default constructor.
	Implicit bool `json:"implicit,omitempty"`
}

// Field is a declared attribute.
type Field struct {
	Name        string       `json:"name"`
	Type        TypeRef      `json:"type"`
	Modifiers   []string     `json:"modifiers"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Class is the structural view of one declared type.
type Class struct {
	ID          ClassID      `json:"id"`
	Modifiers   []string     `json:"modifiers"`
	Abstract    bool         `json:"abstract"`
	Enum        bool         `json:"enum"`
	Interface   bool         `json:"interface"`
	Superclass  *TypeRef     `json:"superclass,omitempty"`
	Interfaces  []TypeRef    `json:"interfaces,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`

	Constructors []Member `json:"constructors,omitempty"`
	Methods      []Member `json:"methods,omitempty"`
	Fields       []Field  `json:"fields,omitempty"`
	EnumValues   []string `json:"enum_values,omitempty"`
}

// HasModifier reports whether the class declares the modifier token.
func (c Class) HasModifier(token string) bool {
	for _, m := range c.Modifiers {
		if m == token {
			return true
		}
	}
	return false
}

// MethodsNamed returns the declared methods with the given name.
func (c Class) MethodsNamed(name string) []Member {
	var out []Member
	for _, m := range c.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Field returns the declared field with the given name.
func (c Class) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Provider exposes structural facts about the artifact under test.
//
// Lookup returns found=false with a nil error when the class does not exist.
// Any non-nil error means the provider itself failed.
type Provider interface {
	Lookup(ctx context.Context, id ClassID) (cls Class, found bool, err error)
}
