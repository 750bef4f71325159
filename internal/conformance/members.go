package conformance

import (
	"structest/internal/facts"
	"structest/internal/match"
	"structest/internal/oracle"
)

// CheckConstructor resolves one expected constructor against the declared ones.
func CheckConstructor(actual facts.Class, owner oracle.ExpectedClass, want oracle.ExpectedMember) Outcome {
	out := Outcome{
		Name:   ConstructorCheckName(owner, want),
		Kind:   oracle.KindConstructor,
		Class:  owner.ID(),
		Member: owner.Name + "(" + joinParams(want.Parameters) + ")",
	}
	res := Resolve(actual.Constructors, want)
	recordResolution(&out, actual.Constructors, res, want, describeConstructor(owner.Name, want.Parameters))
	return out.finish()
}

// CheckMethod resolves one expected method among the declared methods of the same name.
func CheckMethod(actual facts.Class, owner oracle.ExpectedClass, want oracle.ExpectedMember) Outcome {
	out := Outcome{
		Name:   MethodCheckName(owner, want),
		Kind:   oracle.KindMethod,
		Class:  owner.ID(),
		Member: want.Signature(),
	}
	candidates := actual.MethodsNamed(want.Name)
	if len(candidates) == 0 {
		out.record(DimFound, false)
		out.fail(newFailure(MsgMethodNotFound, want.Name, owner.Name))
		return out.finish()
	}
	res := Resolve(candidates, want)
	recordResolution(&out, candidates, res, want, describeMethod(owner.Name, want.Name, want.Parameters))
	return out.finish()
}

func recordResolution(out *Outcome, candidates []facts.Member, res Resolution, want oracle.ExpectedMember, subject string) {
	out.record(DimParameters, res.ParametersOK)
	if !res.ParametersOK {
		out.fail(newFailure(MsgMemberParameters, subject))
	}
	if want.Modifiers.Set {
		out.record(DimModifiers, res.ModifiersOK)
		if !res.ModifiersOK {
			// diff against the declaration with the right parameters, if any
			var declared []string
			if res.ParamIndex >= 0 {
				declared = candidates[res.ParamIndex].Modifiers
			} else if len(candidates) == 1 {
				declared = candidates[0].Modifiers
			}
			out.fail(modifierFailure(MsgMemberModifiers, declared, want.Modifiers.Values, subject))
		}
	}
	if want.Annotations.Set {
		out.record(DimAnnotations, res.AnnotationsOK)
		if !res.AnnotationsOK {
			out.fail(newFailure(MsgMemberAnnotations, subject))
		}
	}
	if want.ReturnType != "" {
		out.record(DimReturnType, res.ReturnOK)
		if !res.ReturnOK {
			out.fail(newFailure(MsgMemberReturnType, subject))
		}
	}
	if !res.Found && len(out.Failures) == 0 {
		// each dimension held on some candidate, but never all on one
		out.record(DimFound, false)
		out.fail(newFailure(MsgMemberCombination, subject))
	}
}

// CheckAttribute looks up an expected field and compares its type,
// modifiers and annotations.
func CheckAttribute(actual facts.Class, owner oracle.ExpectedClass, want oracle.ExpectedAttribute) Outcome {
	out := Outcome{
		Name:   AttributeCheckName(owner, want),
		Kind:   oracle.KindAttribute,
		Class:  owner.ID(),
		Member: want.Name,
	}
	field, ok := actual.Field(want.Name)
	out.record(DimFound, ok)
	if !ok {
		out.fail(newFailure(MsgAttributeNotFound, want.Name, owner.Name))
		return out.finish()
	}
	if want.Type != "" {
		ok := match.Type(field.Type, want.Type)
		out.record(DimType, ok)
		if !ok {
			out.fail(newFailure(MsgAttributeType, want.Name, owner.Name))
		}
	}
	if want.Modifiers.Set {
		ok := match.Modifiers(field.Modifiers, want.Modifiers.Values)
		out.record(DimModifiers, ok)
		if !ok {
			out.fail(modifierFailure(MsgAttributeModifiers, field.Modifiers, want.Modifiers.Values, want.Name, owner.Name))
		}
	}
	if want.Annotations.Set {
		ok := match.Annotations(field.Annotations, want.Annotations.Values)
		out.record(DimAnnotations, ok)
		if !ok {
			out.fail(newFailure(MsgAttributeAnnotations, want.Name, owner.Name))
		}
	}
	return out.finish()
}

// CheckEnum verifies that the type is an enum declaring every expected constant.
func CheckEnum(actual facts.Class, want oracle.ExpectedClass) Outcome {
	out := Outcome{
		Name:  EnumCheckName(want),
		Kind:  oracle.KindEnum,
		Class: want.ID(),
	}
	out.record(DimEnum, actual.Enum)
	if !actual.Enum {
		out.fail(newFailure(MsgEnumNotEnum, want.Name))
		return out.finish()
	}
	declared := make(map[string]struct{}, len(actual.EnumValues))
	for _, v := range actual.EnumValues {
		declared[v] = struct{}{}
	}
	for _, v := range want.EnumValues.Values {
		_, ok := declared[v]
		out.record(DimEnumValues, ok)
		if !ok {
			out.fail(newFailure(MsgEnumConstant, want.Name, v))
		}
	}
	return out.finish()
}
