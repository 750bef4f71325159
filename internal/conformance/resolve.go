package conformance

import (
	"structest/internal/facts"
	"structest/internal/match"
	"structest/internal/oracle"
)

// Resolution is the result of matching one expected member against the
// declared candidates. Each dimension flag is true when any candidate
// satisfied that dimension on its own, so a failed resolution still tells
// which dimensions were within reach.
type Resolution struct {
	Found      bool
	Candidates int
	// Index points into the candidates when Found.
	Index int
	// ParamIndex is the first candidate whose parameters match, -1 if none.
	ParamIndex int

	ParametersOK  bool
	ModifiersOK   bool
	AnnotationsOK bool
	ReturnOK      bool
}

// Resolve searches candidates for a member matching want in parameters,
// modifiers, annotations and, when want constrains it, the return type.
func Resolve(candidates []facts.Member, want oracle.ExpectedMember) Resolution {
	r := Resolution{Candidates: len(candidates), Index: -1, ParamIndex: -1}
	for i, c := range candidates {
		params := match.Parameters(c.Params, want.Parameters)
		mods := !want.Modifiers.Set || match.Modifiers(c.Modifiers, want.Modifiers.Values)
		anns := !want.Annotations.Set || match.Annotations(c.Annotations, want.Annotations.Values)
		ret := want.ReturnType == "" || match.Type(c.Return, want.ReturnType)

		if params && r.ParamIndex < 0 {
			r.ParamIndex = i
		}
		r.ParametersOK = r.ParametersOK || params
		r.ModifiersOK = r.ModifiersOK || mods
		r.AnnotationsOK = r.AnnotationsOK || anns
		r.ReturnOK = r.ReturnOK || ret

		if params && mods && anns && ret {
			r.Found = true
			r.Index = i
			r.ParametersOK, r.ModifiersOK, r.AnnotationsOK, r.ReturnOK = true, true, true, true
			return r
		}
	}
	return r
}
