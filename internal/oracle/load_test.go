package oracle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"structest/internal/facts"
	"structest/internal/fatal"
)

const sampleOracle = `[
  {
    "class": {"name": "Foo", "package": "p", "isAbstract": true, "modifiers": ["public", "abstract"],
              "superclass": "Base<String>", "interfaces": ["Comparable<Foo>"],
              "annotations": ["Deprecated", {"name": "Tag", "values": {"value": "slow", "weight": 2, "on": true, "ids": [1, 2]}}]},
    "constructors": [{"parameters": ["int", "String"], "modifiers": ["public"]}, {}],
    "methods": [{"name": "run", "parameters": ["int"], "returnType": "void", "annotations": []}],
    "attributes": [{"name": "count", "type": "int", "modifiers": ["private"]}]
  },
  {
    "class": {"name": "Bar", "package": "p"},
    "constructors": [{"modifiers": ["public"]}]
  },
  {
    "class": {"name": "Color", "package": "p", "isEnum": true, "superclass": "Enum"},
    "enumValues": ["RED", "GREEN"]
  }
]`

func TestParseSample(t *testing.T) {
	o, err := Parse([]byte(sampleOracle))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(o.Classes) != 3 {
		t.Fatalf("classes=%d", len(o.Classes))
	}
	foo := o.Classes[0]
	if foo.ID() != (facts.ClassID{Package: "p", Name: "Foo"}) {
		t.Fatalf("id=%v", foo.ID())
	}
	if !foo.Abstract || foo.Enum || foo.Interface {
		t.Fatalf("flags abstract=%v enum=%v interface=%v", foo.Abstract, foo.Enum, foo.Interface)
	}
	if !foo.Modifiers.Set || strings.Join(foo.Modifiers.Values, " ") != "public abstract" {
		t.Fatalf("modifiers=%+v", foo.Modifiers)
	}
	if !foo.HasSuperclass || foo.Superclass != "Base<String>" {
		t.Fatalf("superclass=%q", foo.Superclass)
	}
	if len(foo.Annotations.Values) != 2 || foo.Annotations.Values[0].Args != nil {
		t.Fatalf("annotations=%+v", foo.Annotations)
	}
	tag := foo.Annotations.Values[1]
	if tag.Args["value"].Kind != facts.KindString || tag.Args["weight"].Num != 2 || !tag.Args["on"].Bool {
		t.Fatalf("tag args=%+v", tag.Args)
	}
	if ids := tag.Args["ids"]; ids.Kind != facts.KindArray || len(ids.Items) != 2 {
		t.Fatalf("ids=%+v", ids)
	}
	if len(foo.Constructors) != 2 || len(foo.Constructors[1].Parameters) != 0 || foo.Constructors[1].Modifiers.Set {
		t.Fatalf("constructors=%+v", foo.Constructors)
	}
	run := foo.Methods[0]
	if run.Name != "run" || run.ReturnType != "void" || !run.Annotations.Set || len(run.Annotations.Values) != 0 {
		t.Fatalf("method=%+v", run)
	}
	if run.Signature() != "run(int)" {
		t.Fatalf("signature=%q", run.Signature())
	}
	if foo.Attributes[0].Name != "count" || foo.Attributes[0].Type != "int" {
		t.Fatalf("attribute=%+v", foo.Attributes[0])
	}

	bar := o.Classes[1]
	if bar.HasClassProperties() {
		t.Fatalf("Bar has identity only, got properties %v", bar.ClassProperties)
	}
	color := o.Classes[2]
	if !color.EnumValues.Set || len(color.EnumValues.Values) != 2 {
		t.Fatalf("enum values=%+v", color.EnumValues)
	}
}

func TestTestableFiltering(t *testing.T) {
	o, err := Parse([]byte(sampleOracle))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	names := func(k Kind) string {
		var out []string
		for _, c := range o.Testable(k) {
			out = append(out, c.Name)
		}
		return strings.Join(out, ",")
	}
	if got := names(KindClass); got != "Foo,Color" {
		t.Fatalf("class testable=%s", got)
	}
	if got := names(KindConstructor); got != "Foo,Bar" {
		t.Fatalf("constructor testable=%s", got)
	}
	if got := names(KindMethod); got != "Foo" {
		t.Fatalf("method testable=%s", got)
	}
	if got := names(KindAttribute); got != "Foo" {
		t.Fatalf("attribute testable=%s", got)
	}
	if got := names(KindEnum); got != "Color" {
		t.Fatalf("enum testable=%s", got)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":      `[{"class": `,
		"not array":         `{"class": {}}`,
		"no class":          `[{"constructors": []}]`,
		"no package":        `[{"class": {"name": "Foo"}}]`,
		"numeric name":      `[{"class": {"name": 1, "package": "p"}}]`,
		"bad flag":          `[{"class": {"name": "Foo", "package": "p", "isAbstract": "yes"}}]`,
		"bad modifiers":     `[{"class": {"name": "Foo", "package": "p", "modifiers": "public"}}]`,
		"bad annotation":    `[{"class": {"name": "Foo", "package": "p", "annotations": [1]}}]`,
		"method name":       `[{"class": {"name": "Foo", "package": "p"}, "methods": [{"parameters": []}]}]`,
		"duplicate":         `[{"class": {"name": "Foo", "package": "p"}}, {"class": {"name": "Foo", "package": "p"}}]`,
		"nested annotation": `[{"class": {"name": "Foo", "package": "p", "annotations": [{"name": "A", "values": {"x": {"y": 1}}}]}}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !fatal.Is(err, fatal.OracleMalformed) {
				t.Fatalf("expected ORACLE_MALFORMED, got %v", err)
			}
		})
	}
}

func TestParseSamePackageDifferentClass(t *testing.T) {
	doc := `[{"class": {"name": "Foo", "package": "p"}}, {"class": {"name": "Foo", "package": "q"}}]`
	if _, err := Parse([]byte(doc)); err != nil {
		t.Fatalf("distinct packages must not collide: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "test.json"))
	if !fatal.Is(err, fatal.OracleMissing) {
		t.Fatalf("expected ORACLE_MISSING, got %v", err)
	}
	_, err = Load("")
	if !fatal.Is(err, fatal.OracleMissing) {
		t.Fatalf("expected ORACLE_MISSING for empty path, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")
	if err := os.WriteFile(path, []byte(sampleOracle), 0o644); err != nil {
		t.Fatalf("write oracle: %v", err)
	}
	o, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if o.Source != path {
		t.Fatalf("source=%q", o.Source)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"class":        KindClass,
		"Classes":      KindClass,
		"Constructors": KindConstructor,
		" methods ":    KindMethod,
		"attribute":    KindAttribute,
		"enums":        KindEnum,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=%q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"fields", "clas", "classs", ""} {
		if _, err := ParseKind(bad); err == nil {
			t.Fatalf("expected error for unknown kind %q", bad)
		}
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	for _, want := range []string{`"enumValues"`, `"returnType"`, `"isInterface"`, `"oneOf"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("schema lacks %s", want)
		}
	}
}

func TestGenerateRoundTrip(t *testing.T) {
	classes := []facts.Class{
		{
			ID:         facts.ClassID{Package: "p", Name: "Baz"},
			Modifiers:  []string{"public"},
			Superclass: &facts.TypeRef{Name: "Object"},
			Interfaces: []facts.TypeRef{{Name: "Comparable", Generic: "Comparable<Baz>"}},
			Constructors: []facts.Member{
				{Name: "Baz", Modifiers: []string{"public"}, Implicit: true},
				{Name: "Baz", Params: []facts.TypeRef{{Name: "int"}}, Modifiers: []string{"public"}},
			},
			Methods: []facts.Member{{
				Name: "compareTo", Params: []facts.TypeRef{{Name: "Baz"}}, Modifiers: []string{"public"},
				Return:      facts.TypeRef{Name: "int"},
				Annotations: []facts.Annotation{{Name: "Override"}},
			}},
			Fields: []facts.Field{{Name: "x", Type: facts.TypeRef{Name: "int"}, Modifiers: []string{"private"}}},
		},
	}
	data, err := Generate(classes).Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	o, err := Parse(data)
	if err != nil {
		t.Fatalf("generated oracle must parse: %v\n%s", err, data)
	}
	baz := o.Classes[0]
	if baz.HasSuperclass {
		t.Fatalf("Object superclass should be omitted")
	}
	if len(baz.Constructors) != 1 || baz.Constructors[0].Parameters[0] != "int" {
		t.Fatalf("constructors=%+v", baz.Constructors)
	}
	if baz.Interfaces.Values[0] != "Comparable<Baz>" {
		t.Fatalf("interfaces=%v", baz.Interfaces.Values)
	}
	if baz.Methods[0].Annotations.Values[0].Name != "Override" {
		t.Fatalf("method annotations=%+v", baz.Methods[0].Annotations)
	}
}
