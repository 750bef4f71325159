package match

import (
	"strings"

	"structest/internal/facts"
)

// AnnotationDescriptor is an expected annotation. A nil Args map leaves the
// arguments unconstrained; listed arguments must be present with equal values.
type AnnotationDescriptor struct {
	Name string                 `json:"name"`
	Args map[string]facts.Value `json:"values,omitempty"`
}

// Annotations reports whether every expected annotation is present on the
// actual element. Additional actual annotations are ignored.
func Annotations(actual []facts.Annotation, expected []AnnotationDescriptor) bool {
	return len(MissingAnnotations(actual, expected)) == 0
}

// MissingAnnotations returns the expected annotations that no actual
// annotation satisfies, in expectation order.
func MissingAnnotations(actual []facts.Annotation, expected []AnnotationDescriptor) []AnnotationDescriptor {
	var missing []AnnotationDescriptor
	for _, want := range expected {
		if !anyAnnotation(actual, want) {
			missing = append(missing, want)
		}
	}
	return missing
}

func anyAnnotation(actual []facts.Annotation, want AnnotationDescriptor) bool {
	name := simpleAnnotationName(want.Name)
	for _, got := range actual {
		if simpleAnnotationName(got.Name) != name {
			continue
		}
		if argsMatch(got.Args, want.Args) {
			return true
		}
	}
	return false
}

func argsMatch(actual, expected map[string]facts.Value) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if !ValueEqual(got, want) {
			return false
		}
	}
	return true
}

func simpleAnnotationName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ValueEqual compares an actual literal with an expected one. Kinds must
// agree with three exceptions: an expected string also matches a symbol
// whose text or last segment equals it, a one-character string matches a
// char literal, and a single value matches a one-element array (the Java
// single-element array shorthand).
func ValueEqual(actual, expected facts.Value) bool {
	if actual.Kind == facts.KindArray && expected.Kind != facts.KindArray {
		return len(actual.Items) == 1 && ValueEqual(actual.Items[0], expected)
	}
	if expected.Kind == facts.KindArray && actual.Kind != facts.KindArray {
		return len(expected.Items) == 1 && ValueEqual(actual, expected.Items[0])
	}
	switch expected.Kind {
	case facts.KindString:
		switch actual.Kind {
		case facts.KindString:
			return actual.Str == expected.Str
		case facts.KindChar:
			return actual.Str == expected.Str && len([]rune(expected.Str)) == 1
		case facts.KindSymbol:
			return actual.Str == expected.Str || lastSegment(actual.Str) == expected.Str
		}
		return false
	case facts.KindNumber:
		return actual.Kind == facts.KindNumber && actual.Num == expected.Num
	case facts.KindBool:
		return actual.Kind == facts.KindBool && actual.Bool == expected.Bool
	case facts.KindChar, facts.KindSymbol:
		return actual.Kind == expected.Kind && actual.Str == expected.Str
	case facts.KindNull:
		return actual.Kind == facts.KindNull
	case facts.KindArray:
		if len(actual.Items) != len(expected.Items) {
			return false
		}
		for i := range expected.Items {
			if !ValueEqual(actual.Items[i], expected.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func lastSegment(s string) string {
	s = strings.TrimSuffix(s, ".class")
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
