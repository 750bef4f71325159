package conformance

import (
	"structest/internal/facts"
	"structest/internal/match"
	"structest/internal/oracle"
)

// CheckClass compares the class-level properties of actual with want.
// Every constrained dimension is evaluated and every failure is reported.
// An entry carrying only its identity passes without checking anything.
func CheckClass(actual facts.Class, want oracle.ExpectedClass) Outcome {
	out := Outcome{
		Name:  ClassCheckName(want),
		Kind:  oracle.KindClass,
		Class: want.ID(),
	}
	if !want.HasClassProperties() {
		return out.finish()
	}
	name := want.Name

	if want.Abstract {
		ok := actual.Abstract
		out.record(DimAbstract, ok)
		if !ok {
			out.fail(newFailure(MsgClassAbstract, name))
		}
	}
	if want.Enum {
		ok := actual.Enum
		out.record(DimEnum, ok)
		if !ok {
			out.fail(newFailure(MsgClassEnum, name))
		}
	}
	if want.Interface {
		ok := actual.Interface
		out.record(DimInterface, ok)
		if !ok {
			out.fail(newFailure(MsgClassInterface, name))
		}
	}
	if want.Modifiers.Set {
		ok := match.Modifiers(actual.Modifiers, want.Modifiers.Values)
		out.record(DimModifiers, ok)
		if !ok {
			out.fail(modifierFailure(MsgClassModifiers, actual.Modifiers, want.Modifiers.Values, name))
		}
	}
	if want.HasSuperclass && !match.IsSentinel(want.Superclass) {
		ok := match.Superclass(actual.Superclass, want.Superclass)
		out.record(DimSuperclass, ok)
		if !ok {
			out.fail(newFailure(MsgClassExtends, name, want.Superclass))
		}
	}
	if want.Interfaces.Set {
		for _, iface := range want.Interfaces.Values {
			ok := match.AnyType(actual.Interfaces, iface)
			out.record(DimInterfaces, ok)
			if !ok {
				out.fail(newFailure(MsgClassImplement, name, iface))
			}
		}
	}
	if want.Annotations.Set {
		ok := match.Annotations(actual.Annotations, want.Annotations.Values)
		out.record(DimAnnotations, ok)
		if !ok {
			out.fail(newFailure(MsgClassAnnot, name))
		}
	}
	return out.finish()
}
