package match

import "structest/internal/facts"

// Type reports whether the actual type satisfies the expected descriptor.
//
// Base names compare case-sensitively on the simple name and array depth must
// agree. When the expected descriptor carries type arguments, the actual
// parameterized form must declare the same arguments; a raw declaration never
// satisfies a parameterized expectation.
func Type(actual facts.TypeRef, expected string) bool {
	want, ok := ParseDescriptor(expected)
	if !ok {
		return false
	}
	raw, ok := ParseDescriptor(actual.Name)
	if !ok {
		// Providers may hand over a parameterized name only.
		raw, ok = ParseDescriptor(actual.Generic)
		if !ok {
			return false
		}
	}
	if raw.Base != want.Base || raw.Dims != want.Dims {
		return false
	}
	if !want.Generic() {
		return true
	}
	generic := actual.Generic
	if generic == "" {
		generic = actual.Name
	}
	got, ok := ParseDescriptor(generic)
	if !ok {
		return false
	}
	return got.Equal(want)
}

// Superclass reports whether the actual superclass satisfies the expected
// descriptor. The Enum sentinel always matches; otherwise a missing
// superclass never does.
func Superclass(actual *facts.TypeRef, expected string) bool {
	if IsSentinel(expected) {
		return true
	}
	if actual == nil {
		return false
	}
	return Type(*actual, expected)
}

// IsSentinel reports whether the descriptor is the implicit-base sentinel.
func IsSentinel(expected string) bool {
	return expected == EnumSentinel
}

// AnyType reports whether any of the actual types satisfies the expected
// descriptor.
func AnyType(actual []facts.TypeRef, expected string) bool {
	for _, t := range actual {
		if Type(t, expected) {
			return true
		}
	}
	return false
}

// Parameters reports whether the actual parameter list satisfies the
// expected descriptors position by position. Arity must be equal.
func Parameters(actual []facts.TypeRef, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range expected {
		if !Type(actual[i], expected[i]) {
			return false
		}
	}
	return true
}
