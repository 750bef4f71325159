package conformance

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"structest/internal/facts"
	"structest/internal/fatal"
	"structest/internal/oracle"
)

// Check is one runnable expectation. Checks are independent of each other
// and safe to run concurrently.
type Check struct {
	Name   string
	Kind   oracle.Kind
	Class  facts.ClassID
	Member string

	provider facts.Provider
	eval     func(facts.Class) Outcome
}

// Run looks up the class and evaluates the expectation. A class that does
// not exist yields a failed outcome; provider failures and cancellation are
// returned as errors.
func (c Check) Run(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	cls, found, err := c.provider.Lookup(ctx, c.Class)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		return Outcome{}, fatal.Wrap(fatal.Provider, err, "introspection of %s failed", c.Class)
	}
	if !found {
		out := Outcome{Name: c.Name, Kind: c.Kind, Class: c.Class, Member: c.Member}
		out.record(DimFound, false)
		out.fail(newFailure(MsgClassNotFound, c.Class.Name, string(c.Kind)))
		return out.finish(), nil
	}
	if cls.ID != c.Class {
		return Outcome{}, fatal.New(fatal.Provider,
			"introspection of %s returned class %s", c.Class, cls.ID)
	}
	out := c.eval(cls)
	out.Name = c.Name
	return out, nil
}

// Orchestrator turns oracle entries into checks against one provider.
type Orchestrator struct {
	oracle   *oracle.Oracle
	provider facts.Provider
}

// NewOrchestrator binds an oracle to a provider.
func NewOrchestrator(o *oracle.Oracle, p facts.Provider) *Orchestrator {
	return &Orchestrator{oracle: o, provider: p}
}

// Checks enumerates the checks of kind k in oracle order. When no entry
// yields a check of that kind a NO_TESTS fatal error is returned instead of
// an empty sequence.
func (o *Orchestrator) Checks(k oracle.Kind) (iter.Seq[Check], error) {
	if o.oracle == nil {
		return nil, fatal.New(fatal.OracleMissing, "no structure oracle loaded for the %s checks", k)
	}
	if o.provider == nil {
		return nil, fatal.New(fatal.Internal, "no introspection provider configured")
	}
	entries := o.oracle.Testable(k)
	if len(entries) == 0 {
		return nil, fatal.New(fatal.NoTests,
			"no %s tests available in the structure oracle %s; either provide %s information or disable the %s checks",
			k, o.oracle.Source, k, k)
	}
	return func(yield func(Check) bool) {
		for _, entry := range entries {
			for _, c := range o.checksFor(k, entry) {
				if !yield(c) {
					return
				}
			}
		}
	}, nil
}

// AllChecks enumerates the checks of every kind that has at least one.
func (o *Orchestrator) AllChecks(kinds []oracle.Kind) (iter.Seq[Check], error) {
	var seqs []iter.Seq[Check]
	for _, k := range kinds {
		seq, err := o.Checks(k)
		if err != nil {
			if fatal.Is(err, fatal.NoTests) && len(kinds) > 1 {
				continue
			}
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	if len(seqs) == 0 {
		return nil, fatal.New(fatal.NoTests, "no structural tests available in the structure oracle %s", o.oracle.Source)
	}
	return func(yield func(Check) bool) {
		for _, seq := range seqs {
			for c := range seq {
				if !yield(c) {
					return
				}
			}
		}
	}, nil
}

func (o *Orchestrator) checksFor(k oracle.Kind, entry oracle.ExpectedClass) []Check {
	base := Check{Kind: k, Class: entry.ID(), provider: o.provider}
	switch k {
	case oracle.KindClass:
		c := base
		c.Name = ClassCheckName(entry)
		c.eval = func(cls facts.Class) Outcome { return CheckClass(cls, entry) }
		return []Check{c}
	case oracle.KindConstructor:
		out := make([]Check, 0, len(entry.Constructors))
		names := make(map[string]int)
		for _, want := range entry.Constructors {
			c := base
			c.Name = uniqueName(names, ConstructorCheckName(entry, want))
			c.Member = entry.Name + "(" + joinParams(want.Parameters) + ")"
			c.eval = func(cls facts.Class) Outcome { return CheckConstructor(cls, entry, want) }
			out = append(out, c)
		}
		return out
	case oracle.KindMethod:
		out := make([]Check, 0, len(entry.Methods))
		names := make(map[string]int)
		for _, want := range entry.Methods {
			c := base
			c.Name = uniqueName(names, MethodCheckName(entry, want))
			c.Member = want.Signature()
			c.eval = func(cls facts.Class) Outcome { return CheckMethod(cls, entry, want) }
			out = append(out, c)
		}
		return out
	case oracle.KindAttribute:
		out := make([]Check, 0, len(entry.Attributes))
		names := make(map[string]int)
		for _, want := range entry.Attributes {
			c := base
			c.Name = uniqueName(names, AttributeCheckName(entry, want))
			c.Member = want.Name
			c.eval = func(cls facts.Class) Outcome { return CheckAttribute(cls, entry, want) }
			out = append(out, c)
		}
		return out
	case oracle.KindEnum:
		c := base
		c.Name = EnumCheckName(entry)
		c.eval = func(cls facts.Class) Outcome { return CheckEnum(cls, entry) }
		return []Check{c}
	}
	return nil
}

// uniqueName numbers repeated display names within one class entry, so
// identical expectations stay apart in reports: the second
// "testConstructor[Bar()]" becomes "testConstructor[Bar()]#2".
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		return name + "#" + strconv.Itoa(n)
	}
	return name
}

// ClassCheckName is the display name of a class check.
func ClassCheckName(c oracle.ExpectedClass) string {
	return "testClass[" + c.Name + "]"
}

// ConstructorCheckName is the display name of a constructor check.
func ConstructorCheckName(c oracle.ExpectedClass, m oracle.ExpectedMember) string {
	return "testConstructor[" + c.Name + "(" + joinParams(m.Parameters) + ")]"
}

// MethodCheckName is the display name of a method check.
func MethodCheckName(c oracle.ExpectedClass, m oracle.ExpectedMember) string {
	return "testMethod[" + c.Name + "." + m.Signature() + "]"
}

// AttributeCheckName is the display name of an attribute check.
func AttributeCheckName(c oracle.ExpectedClass, a oracle.ExpectedAttribute) string {
	return "testAttribute[" + c.Name + "." + a.Name + "]"
}

// EnumCheckName is the display name of an enum check.
func EnumCheckName(c oracle.ExpectedClass) string {
	return "testEnum[" + c.Name + "]"
}

func joinParams(params []string) string {
	return strings.Join(params, ", ")
}
