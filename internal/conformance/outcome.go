// Package conformance runs structural expectations from an oracle against the
// facts of a submission and reports one outcome per expectation.
package conformance

import (
	"strings"

	"structest/internal/facts"
	"structest/internal/oracle"
)

// Dimension is one independently checked aspect of an expectation.
type Dimension string

const (
	DimFound       Dimension = "found"
	DimAbstract    Dimension = "abstract"
	DimEnum        Dimension = "enum"
	DimInterface   Dimension = "interface"
	DimModifiers   Dimension = "modifiers"
	DimSuperclass  Dimension = "superclass"
	DimInterfaces  Dimension = "interfaces"
	DimAnnotations Dimension = "annotations"
	DimParameters  Dimension = "parameters"
	DimReturnType  Dimension = "return_type"
	DimType        Dimension = "type"
	DimEnumValues  Dimension = "enum_values"
)

// DimensionResult records whether one dimension held.
type DimensionResult struct {
	Dimension Dimension `json:"dimension"`
	OK        bool      `json:"ok"`
}

// Outcome is the report entry of a single expectation.
type Outcome struct {
	Name   string        `json:"name"`
	Kind   oracle.Kind   `json:"kind"`
	Class  facts.ClassID `json:"class"`
	Member string        `json:"member,omitempty"`
	Passed bool          `json:"passed"`

	Dimensions []DimensionResult `json:"dimensions"`
	Failures   []Failure         `json:"failures,omitempty"`
}

// Message joins the failure messages, empty when the expectation passed.
func (o Outcome) Message() string {
	msgs := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "\n")
}

// Dimension reports the result of d and whether it was checked at all.
func (o Outcome) Dimension(d Dimension) (ok bool, checked bool) {
	for _, r := range o.Dimensions {
		if r.Dimension == d {
			return r.OK, true
		}
	}
	return false, false
}

func (o *Outcome) record(d Dimension, ok bool) {
	for i := range o.Dimensions {
		if o.Dimensions[i].Dimension == d {
			o.Dimensions[i].OK = o.Dimensions[i].OK && ok
			return
		}
	}
	o.Dimensions = append(o.Dimensions, DimensionResult{Dimension: d, OK: ok})
}

func (o *Outcome) fail(f Failure) {
	o.Failures = append(o.Failures, f)
}

func (o *Outcome) finish() Outcome {
	o.Passed = len(o.Failures) == 0
	for _, d := range o.Dimensions {
		if !d.OK {
			o.Passed = false
		}
	}
	return *o
}

// Summary counts outcomes.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summarize counts passed and failed outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}
