// Package oracle loads the structure oracle: the declarative description of
// the classes, constructors, methods and attributes a submission must declare.
package oracle

import (
	"fmt"
	"strings"

	"structest/internal/facts"
	"structest/internal/match"
)

// Kind selects which family of checks is generated from an oracle.
type Kind string

const (
	KindClass       Kind = "class"
	KindConstructor Kind = "constructor"
	KindMethod      Kind = "method"
	KindAttribute   Kind = "attribute"
	KindEnum        Kind = "enum"
)

// Kinds lists every check kind in execution order.
var Kinds = []Kind{KindClass, KindConstructor, KindMethod, KindAttribute, KindEnum}

// ParseKind parses a kind name, accepting plural forms.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		switch s {
		case string(k), string(k) + "s", string(k) + "es":
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown check kind %q", s)
}

// Strings is an optional list. When Set is false the oracle did not mention
// the property and it is unconstrained; a set but empty list is a real value.
type Strings struct {
	Set    bool
	Values []string
}

// Annotations is an optional list of expected annotations.
type Annotations struct {
	Set    bool
	Values []match.AnnotationDescriptor
}

// ExpectedMember is an expected constructor or method.
type ExpectedMember struct {
	// Name is empty for constructors.
	Name        string
	Parameters  []string
	Modifiers   Strings
	Annotations Annotations
	// ReturnType is only meaningful for methods; empty means unconstrained.
	ReturnType string
}

// Signature renders the member as Name(p1, p2).
func (m ExpectedMember) Signature() string {
	return m.Name + "(" + strings.Join(m.Parameters, ", ") + ")"
}

// ExpectedAttribute is an expected field.
type ExpectedAttribute struct {
	Name        string
	Type        string
	Modifiers   Strings
	Annotations Annotations
}

// ExpectedClass is one oracle entry.
type ExpectedClass struct {
	Name    string
	Package string
	// Index is the position of the entry in the oracle.
	Index int

	Abstract  bool
	Enum      bool
	Interface bool

	Modifiers     Strings
	Superclass    string
	HasSuperclass bool
	Interfaces    Strings
	Annotations   Annotations

	// ClassProperties lists the keys of the class object besides name and package.
	ClassProperties []string

	Constructors    []ExpectedMember
	HasConstructors bool
	Methods         []ExpectedMember
	HasMethods      bool
	Attributes      []ExpectedAttribute
	HasAttributes   bool
	EnumValues      Strings
}

// ID returns the class identity.
func (c ExpectedClass) ID() facts.ClassID {
	return facts.ClassID{Package: c.Package, Name: c.Name}
}

// HasClassProperties reports whether the class object carries anything
// beyond its identity.
func (c ExpectedClass) HasClassProperties() bool {
	return len(c.ClassProperties) > 0
}

// Testable reports whether the entry yields at least one check of kind k.
func (c ExpectedClass) Testable(k Kind) bool {
	switch k {
	case KindClass:
		return c.HasClassProperties()
	case KindConstructor:
		return len(c.Constructors) > 0
	case KindMethod:
		return len(c.Methods) > 0
	case KindAttribute:
		return len(c.Attributes) > 0
	case KindEnum:
		return c.EnumValues.Set
	}
	return false
}

// Oracle is a loaded structure oracle.
type Oracle struct {
	// Source names where the oracle came from, for messages.
	Source  string
	Classes []ExpectedClass
}

// Testable returns the entries that yield checks of kind k, in oracle order.
func (o *Oracle) Testable(k Kind) []ExpectedClass {
	if o == nil {
		return nil
	}
	var out []ExpectedClass
	for _, c := range o.Classes {
		if c.Testable(k) {
			out = append(out, c)
		}
	}
	return out
}
