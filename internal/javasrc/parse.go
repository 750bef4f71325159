// Package javasrc introspects Java source files with tree-sitter and exposes
// the declared structure as facts, filling in the members and modifiers the
// compiler adds implicitly.
package javasrc

import (
	"context"
	"strings"

	"structest/internal/facts"
	"structest/internal/match"
	"structest/internal/util"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Parser turns Java source into class facts. A Parser is not safe for
// concurrent use.
type Parser struct {
	p *sitter.Parser
}

// NewParser creates a Java parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{p: p}
}

// Close releases the underlying parser.
func (p *Parser) Close() {
	p.p.Close()
}

// Parse returns every type declared in content, nested types included.
// Nested types are named by their binary name, e.g. "Outer$Inner".
func (p *Parser) Parse(ctx context.Context, path string, content []byte) ([]facts.Class, error) {
	tree, err := p.p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		util.Warnf("%s has syntax errors; structure may be incomplete", path)
	}
	w := &walker{src: content, path: path}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			w.pkg = w.packageName(n)
		default:
			if isTypeDecl(n.Type()) {
				w.typeDecl(n, nil)
			}
		}
	}
	return w.out, nil
}

type walker struct {
	src  []byte
	path string
	pkg  string
	out  []facts.Class
}

type scope struct {
	binaryName string
	simpleName string
	kind       string
	// access is the declared access modifier of the type, "" for package-private.
	access string
	// compact indexes the compact canonical constructor of a record, -1 if none.
	compact int
}

func (s *scope) inInterface() bool {
	return s != nil && (s.kind == "interface_declaration" || s.kind == "annotation_type_declaration")
}

func isTypeDecl(kind string) bool {
	switch kind {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		return true
	}
	return false
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "identifier" || c.Type() == "scoped_identifier" {
			return strings.Join(strings.Fields(w.text(c)), "")
		}
	}
	return ""
}

func (w *walker) typeDecl(n *sitter.Node, parent *scope) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	simple := w.text(nameNode)
	name := simple
	if parent != nil {
		name = parent.binaryName + "$" + simple
	}
	mods, anns := w.modifiers(n)
	cls := facts.Class{
		ID:          facts.ClassID{Package: w.pkg, Name: name},
		Annotations: anns,
	}

	kind := n.Type()
	switch kind {
	case "class_declaration":
		cls.Superclass = &facts.TypeRef{Name: "Object"}
		if sc := n.ChildByFieldName("superclass"); sc != nil {
			t := w.typeRef(firstNamed(sc), 0)
			cls.Superclass = &t
		}
		cls.Interfaces = w.typeList(n.ChildByFieldName("interfaces"))
	case "interface_declaration":
		cls.Interface = true
		mods = append(mods, "abstract", "interface")
		cls.Interfaces = w.typeList(childOfType(n, "extends_interfaces"))
	case "annotation_type_declaration":
		cls.Interface = true
		mods = append(mods, "abstract", "interface")
		cls.Interfaces = []facts.TypeRef{{Name: "Annotation"}}
	case "enum_declaration":
		cls.Enum = true
		cls.Superclass = &facts.TypeRef{Name: "Enum", Generic: "Enum<" + simple + ">"}
		cls.Interfaces = w.typeList(n.ChildByFieldName("interfaces"))
	case "record_declaration":
		cls.Superclass = &facts.TypeRef{Name: "Record"}
		cls.Interfaces = w.typeList(n.ChildByFieldName("interfaces"))
		mods = append(mods, "final")
	}
	if parent != nil {
		if kind != "class_declaration" {
			mods = append(mods, "static")
		}
		if parent.inInterface() {
			mods = append(mods, "public", "static")
		}
	}

	sc := &scope{binaryName: name, simpleName: simple, kind: kind, access: accessOf(mods), compact: -1}
	w.body(&cls, n.ChildByFieldName("body"), sc)

	switch kind {
	case "enum_declaration":
		if !w.enumHasConstantBodies(n.ChildByFieldName("body")) {
			mods = append(mods, "final")
		}
		cls.Methods = append(cls.Methods,
			facts.Member{Name: "values", Modifiers: []string{"public", "static"}, Return: facts.TypeRef{Name: simple + "[]"}, Implicit: true},
			facts.Member{Name: "valueOf", Params: []facts.TypeRef{{Name: "String"}}, Modifiers: []string{"public", "static"}, Return: facts.TypeRef{Name: simple}, Implicit: true},
		)
	case "record_declaration":
		w.recordComponents(&cls, n.ChildByFieldName("parameters"), sc)
	}
	if len(cls.Constructors) == 0 && (kind == "class_declaration" || kind == "enum_declaration") {
		access := sc.access
		if kind == "enum_declaration" {
			access = "private"
		}
		ctor := facts.Member{Name: simple, Implicit: true}
		if access != "" {
			ctor.Modifiers = []string{access}
		}
		cls.Constructors = append(cls.Constructors, ctor)
	}

	cls.Modifiers = canonicalModifiers(mods)
	cls.Abstract = cls.HasModifier("abstract")
	w.out = append(w.out, cls)
}

func (w *walker) body(cls *facts.Class, body *sitter.Node, sc *scope) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "field_declaration", "constant_declaration":
			cls.Fields = append(cls.Fields, w.fields(c, sc)...)
		case "method_declaration":
			cls.Methods = append(cls.Methods, w.method(c, sc))
		case "annotation_type_element_declaration":
			_, anns := w.modifiers(c)
			cls.Methods = append(cls.Methods, facts.Member{
				Name:        w.text(c.ChildByFieldName("name")),
				Modifiers:   []string{"public", "abstract"},
				Annotations: anns,
				Return:      w.typeRef(c.ChildByFieldName("type"), w.dims(c.ChildByFieldName("dimensions"))),
			})
		case "constructor_declaration":
			cls.Constructors = append(cls.Constructors, w.constructor(c, sc))
		case "compact_constructor_declaration":
			mods, anns := w.modifiers(c)
			// parameters are filled in from the record header
			sc.compact = len(cls.Constructors)
			cls.Constructors = append(cls.Constructors, facts.Member{
				Name:        sc.simpleName,
				Modifiers:   canonicalModifiers(mods),
				Annotations: anns,
			})
		case "enum_constant":
			cls.EnumValues = append(cls.EnumValues, w.text(c.ChildByFieldName("name")))
		case "enum_body_declarations":
			w.body(cls, c, sc)
		default:
			if isTypeDecl(c.Type()) {
				w.typeDecl(c, sc)
			}
		}
	}
}

func (w *walker) enumHasConstantBodies(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_constant" && c.ChildByFieldName("body") != nil {
			return true
		}
	}
	return false
}

func (w *walker) fields(n *sitter.Node, sc *scope) []facts.Field {
	mods, anns := w.modifiers(n)
	if sc.inInterface() {
		mods = append(mods, "public", "static", "final")
	}
	mods = canonicalModifiers(mods)
	typeNode := n.ChildByFieldName("type")
	var out []facts.Field
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		out = append(out, facts.Field{
			Name:        w.text(d.ChildByFieldName("name")),
			Type:        w.typeRef(typeNode, w.dims(d.ChildByFieldName("dimensions"))),
			Modifiers:   mods,
			Annotations: anns,
		})
	}
	return out
}

func (w *walker) method(n *sitter.Node, sc *scope) facts.Member {
	mods, anns := w.modifiers(n)
	if sc.inInterface() {
		private := contains(mods, "private")
		static := contains(mods, "static")
		isDefault := contains(mods, "default")
		if !private {
			mods = append(mods, "public")
		}
		if n.ChildByFieldName("body") == nil && !private && !static && !isDefault {
			mods = append(mods, "abstract")
		}
	}
	return facts.Member{
		Name:        w.text(n.ChildByFieldName("name")),
		Params:      w.params(n.ChildByFieldName("parameters")),
		Modifiers:   canonicalModifiers(mods),
		Annotations: anns,
		Return:      w.typeRef(n.ChildByFieldName("type"), w.dims(n.ChildByFieldName("dimensions"))),
	}
}

func (w *walker) constructor(n *sitter.Node, sc *scope) facts.Member {
	mods, anns := w.modifiers(n)
	if sc.kind == "enum_declaration" && accessOf(mods) == "" {
		mods = append(mods, "private")
	}
	return facts.Member{
		Name:        sc.simpleName,
		Params:      w.params(n.ChildByFieldName("parameters")),
		Modifiers:   canonicalModifiers(mods),
		Annotations: anns,
	}
}

// recordComponents adds the private final fields, accessors and canonical
// constructor derived from the record header.
func (w *walker) recordComponents(cls *facts.Class, header *sitter.Node, sc *scope) {
	if header == nil {
		return
	}
	var params []facts.TypeRef
	for i := 0; i < int(header.NamedChildCount()); i++ {
		p := header.NamedChild(i)
		if p.Type() != "formal_parameter" {
			continue
		}
		_, anns := w.modifiers(p)
		name := w.text(p.ChildByFieldName("name"))
		t := w.typeRef(p.ChildByFieldName("type"), w.dims(p.ChildByFieldName("dimensions")))
		params = append(params, t)
		cls.Fields = append(cls.Fields, facts.Field{
			Name: name, Type: t, Modifiers: []string{"private", "final"}, Annotations: anns,
		})
		declared := false
		for _, m := range cls.Methods {
			if m.Name == name && len(m.Params) == 0 {
				declared = true
				break
			}
		}
		if !declared {
			cls.Methods = append(cls.Methods, facts.Member{
				Name: name, Modifiers: []string{"public"}, Return: t, Implicit: true,
			})
		}
	}

	canonical := sc.compact >= 0
	if canonical {
		cls.Constructors[sc.compact].Params = params
	}
	for _, c := range cls.Constructors {
		if match.Parameters(c.Params, typeStrings(params)) {
			canonical = true
		}
	}
	if !canonical {
		ctor := facts.Member{Name: sc.simpleName, Params: params, Implicit: true}
		if sc.access != "" {
			ctor.Modifiers = []string{sc.access}
		}
		cls.Constructors = append(cls.Constructors, ctor)
	}
}

func (w *walker) params(n *sitter.Node) []facts.TypeRef {
	if n == nil {
		return nil
	}
	var out []facts.TypeRef
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			out = append(out, w.typeRef(p.ChildByFieldName("type"), w.dims(p.ChildByFieldName("dimensions"))))
		case "spread_parameter":
			out = append(out, w.typeRef(spreadType(p), 1))
		}
	}
	return out
}

func (w *walker) typeList(n *sitter.Node) []facts.TypeRef {
	if n == nil {
		return nil
	}
	list := childOfType(n, "type_list")
	if list == nil {
		list = n
	}
	var out []facts.TypeRef
	for i := 0; i < int(list.NamedChildCount()); i++ {
		out = append(out, w.typeRef(list.NamedChild(i), 0))
	}
	return out
}

// typeRef converts a type node into its raw and parameterized forms.
func (w *walker) typeRef(n *sitter.Node, extraDims int) facts.TypeRef {
	if n == nil {
		return facts.TypeRef{}
	}
	if n.Type() == "annotated_type" && n.NamedChildCount() > 0 {
		n = n.NamedChild(int(n.NamedChildCount()) - 1)
	}
	text := strings.Join(strings.Fields(w.text(n)), " ")
	text += strings.Repeat("[]", extraDims)
	return TypeRefOf(text)
}

// TypeRefOf builds a TypeRef from a declared type text such as
// "java.util.List<String>[]".
func TypeRefOf(text string) facts.TypeRef {
	d, ok := match.ParseDescriptor(text)
	if !ok {
		return facts.TypeRef{Name: text}
	}
	ref := facts.TypeRef{Name: match.Descriptor{Base: d.Base, Dims: d.Dims}.String()}
	if d.Generic() {
		ref.Generic = d.String()
	}
	return ref
}

func (w *walker) modifiers(n *sitter.Node) ([]string, []facts.Annotation) {
	m := childOfType(n, "modifiers")
	if m == nil {
		return nil, nil
	}
	var mods []string
	var anns []facts.Annotation
	for i := 0; i < int(m.ChildCount()); i++ {
		c := m.Child(i)
		switch c.Type() {
		case "marker_annotation", "annotation":
			anns = append(anns, w.annotation(c))
		default:
			if !c.IsNamed() {
				mods = append(mods, c.Type())
			}
		}
	}
	return mods, anns
}

// spreadType returns the element type node of a varargs parameter.
func spreadType(p *sitter.Node) *sitter.Node {
	for i := 0; i < int(p.NamedChildCount()); i++ {
		switch c := p.NamedChild(i); c.Type() {
		case "modifiers", "variable_declarator", "marker_annotation", "annotation":
		default:
			return c
		}
	}
	return nil
}

func (w *walker) dims(n *sitter.Node) int {
	return strings.Count(w.text(n), "[")
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func childOfType(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == kind {
			return c
		}
	}
	return nil
}

func typeStrings(refs []facts.TypeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}
