package oracle

import (
	"encoding/json"
	"sort"
	"strings"

	"structest/internal/facts"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Document is the serialized oracle format. It backs the published JSON
// schema and oracle generation from a reference solution; loading goes
// through Parse so that absent and empty properties stay distinguishable.
type Document []Entry

// Entry is one class entry of the oracle.
type Entry struct {
	Class        ClassDoc       `json:"class"`
	Constructors []MemberDoc    `json:"constructors,omitempty"`
	Methods      []MemberDoc    `json:"methods,omitempty"`
	Attributes   []AttributeDoc `json:"attributes,omitempty"`
	EnumValues   []string       `json:"enumValues,omitempty"`
}

// ClassDoc holds the class-level expectations.
type ClassDoc struct {
	Name        string          `json:"name" jsonschema:"required"`
	Package     string          `json:"package" jsonschema:"required"`
	IsAbstract  bool            `json:"isAbstract,omitempty"`
	IsEnum      bool            `json:"isEnum,omitempty"`
	IsInterface bool            `json:"isInterface,omitempty"`
	Modifiers   []string        `json:"modifiers,omitempty"`
	Superclass  string          `json:"superclass,omitempty"`
	Interfaces  []string        `json:"interfaces,omitempty"`
	Annotations []AnnotationDoc `json:"annotations,omitempty"`
}

// MemberDoc describes an expected constructor or method.
type MemberDoc struct {
	Name        string          `json:"name,omitempty" jsonschema:"description=method name; omitted for constructors"`
	Parameters  []string        `json:"parameters,omitempty"`
	Modifiers   []string        `json:"modifiers,omitempty"`
	Annotations []AnnotationDoc `json:"annotations,omitempty"`
	ReturnType  string          `json:"returnType,omitempty"`
}

// AttributeDoc describes an expected field.
type AttributeDoc struct {
	Name        string          `json:"name" jsonschema:"required"`
	Type        string          `json:"type,omitempty"`
	Modifiers   []string        `json:"modifiers,omitempty"`
	Annotations []AnnotationDoc `json:"annotations,omitempty"`
}

// AnnotationDoc is either a bare annotation name or a name with argument values.
type AnnotationDoc struct {
	Name   string         `json:"name"`
	Values map[string]any `json:"values,omitempty"`
}

// MarshalJSON writes argument-less annotations as plain strings.
func (a AnnotationDoc) MarshalJSON() ([]byte, error) {
	if len(a.Values) == 0 {
		return json.Marshal(a.Name)
	}
	type plain AnnotationDoc
	return json.Marshal(plain(a))
}

// JSONSchema describes the string-or-object form.
func (AnnotationDoc) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("name", &jsonschema.Schema{Type: "string"})
	props.Set("values", &jsonschema.Schema{Type: "object"})
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", Description: "annotation name, arguments unconstrained"},
			{
				Type:                 "object",
				Properties:           props,
				Required:             []string{"name"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
		},
	}
}

// Schema returns the JSON schema of the oracle format.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Document{})
	schema.Title = "structure oracle"
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal oracle schema")
	}
	return append(data, '\n'), nil
}

// Generate builds an oracle document from introspected classes, typically
// a reference solution. Implicit members are left out since a submission
// gets them for free.
func Generate(classes []facts.Class) Document {
	sorted := append([]facts.Class(nil), classes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	doc := make(Document, 0, len(sorted))
	for _, c := range sorted {
		doc = append(doc, entryFromClass(c))
	}
	return doc
}

// Marshal encodes the document the way oracle files are written.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal oracle")
	}
	return append(data, '\n'), nil
}

func entryFromClass(c facts.Class) Entry {
	e := Entry{Class: ClassDoc{
		Name:        c.ID.Name,
		Package:     c.ID.Package,
		IsInterface: c.Interface,
		IsEnum:      c.Enum,
		IsAbstract:  c.Abstract && !c.Interface,
		Modifiers:   c.Modifiers,
		Annotations: annotationDocs(c.Annotations),
	}}
	switch {
	case c.Enum:
		e.Class.Superclass = "Enum"
	case c.Superclass != nil && c.Superclass.Name != "Object":
		e.Class.Superclass = c.Superclass.String()
	}
	for _, iface := range c.Interfaces {
		e.Class.Interfaces = append(e.Class.Interfaces, iface.String())
	}
	for _, ctor := range c.Constructors {
		if ctor.Implicit {
			continue
		}
		e.Constructors = append(e.Constructors, memberDoc(ctor, false))
	}
	for _, m := range c.Methods {
		if m.Implicit {
			continue
		}
		e.Methods = append(e.Methods, memberDoc(m, true))
	}
	for _, f := range c.Fields {
		e.Attributes = append(e.Attributes, AttributeDoc{
			Name:        f.Name,
			Type:        f.Type.String(),
			Modifiers:   f.Modifiers,
			Annotations: annotationDocs(f.Annotations),
		})
	}
	e.EnumValues = append(e.EnumValues, c.EnumValues...)
	return e
}

func memberDoc(m facts.Member, method bool) MemberDoc {
	doc := MemberDoc{
		Modifiers:   m.Modifiers,
		Annotations: annotationDocs(m.Annotations),
	}
	for _, p := range m.Params {
		doc.Parameters = append(doc.Parameters, p.String())
	}
	if method {
		doc.Name = m.Name
		doc.ReturnType = m.Return.String()
	}
	return doc
}

func annotationDocs(in []facts.Annotation) []AnnotationDoc {
	var out []AnnotationDoc
	for _, a := range in {
		doc := AnnotationDoc{Name: simpleName(a.Name)}
		if len(a.Args) > 0 {
			doc.Values = make(map[string]any, len(a.Args))
			for k, v := range a.Args {
				doc.Values[k] = plainValue(v)
			}
		}
		out = append(out, doc)
	}
	return out
}

func plainValue(v facts.Value) any {
	switch v.Kind {
	case facts.KindNumber:
		return v.Num
	case facts.KindBool:
		return v.Bool
	case facts.KindArray:
		items := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, plainValue(item))
		}
		return items
	case facts.KindNull:
		return nil
	default:
		return v.Str
	}
}

func simpleName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
