package oracle

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"structest/internal/facts"
	"structest/internal/fatal"
	"structest/internal/match"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Oracle JSON property names.
const (
	PropClass        = "class"
	PropName         = "name"
	PropPackage      = "package"
	PropModifiers    = "modifiers"
	PropSuperclass   = "superclass"
	PropInterfaces   = "interfaces"
	PropAnnotations  = "annotations"
	PropConstructors = "constructors"
	PropMethods      = "methods"
	PropAttributes   = "attributes"
	PropEnumValues   = "enumValues"
	PropParameters   = "parameters"
	PropReturnType   = "returnType"
	PropType         = "type"
	PropValues       = "values"
	PropIsAbstract   = "isAbstract"
	PropIsEnum       = "isEnum"
	PropIsInterface  = "isInterface"
)

// Load reads and parses the oracle at path. A missing file is an
// ORACLE_MISSING fatal error.
func Load(path string) (*Oracle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fatal.New(fatal.OracleMissing,
			"the structural checks can only run if the structure oracle (test.json) is configured; provide it or disable the structural checks")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fatal.Wrap(fatal.OracleMissing, err,
				"the structural checks can only run if the structure oracle %s is present; provide it or disable the structural checks", path)
		}
		return nil, fatal.Wrap(fatal.OracleMalformed, errors.Wrap(err, "read oracle"), "cannot read structure oracle %s", path)
	}
	o, err := Parse(data)
	if err != nil {
		return nil, err
	}
	o.Source = path
	return o, nil
}

// Parse parses oracle JSON. Structural problems in the document (invalid
// JSON, missing identity, wrongly typed properties, duplicate classes) are
// ORACLE_MALFORMED fatal errors.
func Parse(data []byte) (*Oracle, error) {
	if !gjson.ValidBytes(data) {
		return nil, fatal.New(fatal.OracleMalformed, "structure oracle is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fatal.New(fatal.OracleMalformed, "structure oracle must be a JSON array of class entries")
	}
	o := &Oracle{Source: "<inline>"}
	seen := make(map[facts.ClassID]int)
	for i, entry := range root.Array() {
		c, err := parseEntry(i, entry)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[c.ID()]; ok {
			return nil, fatal.New(fatal.OracleMalformed,
				"entry %d duplicates class %s already declared by entry %d", i, c.ID(), prev)
		}
		seen[c.ID()] = i
		o.Classes = append(o.Classes, c)
	}
	return o, nil
}

func parseEntry(i int, entry gjson.Result) (ExpectedClass, error) {
	p := entryParser{index: i}
	if !entry.IsObject() {
		return ExpectedClass{}, p.errorf("entry is not an object")
	}
	cls := entry.Get(PropClass)
	if !cls.IsObject() {
		return ExpectedClass{}, p.errorf("entry has no %q object", PropClass)
	}
	c := ExpectedClass{Index: i}
	var err error
	if c.Name, err = p.requiredString(cls, PropName); err != nil {
		return c, err
	}
	if c.Package, err = p.requiredString(cls, PropPackage); err != nil {
		return c, err
	}
	p.class = c.Name

	cls.ForEach(func(key, _ gjson.Result) bool {
		if key.Str != PropName && key.Str != PropPackage {
			c.ClassProperties = append(c.ClassProperties, key.Str)
		}
		return true
	})
	if c.Abstract, err = p.flag(cls, PropIsAbstract); err != nil {
		return c, err
	}
	if c.Enum, err = p.flag(cls, PropIsEnum); err != nil {
		return c, err
	}
	if c.Interface, err = p.flag(cls, PropIsInterface); err != nil {
		return c, err
	}
	if c.Modifiers, err = p.strings(cls, PropModifiers); err != nil {
		return c, err
	}
	if sc := cls.Get(PropSuperclass); sc.Exists() {
		if sc.Type != gjson.String {
			return c, p.errorf("%q must be a string", PropSuperclass)
		}
		c.Superclass, c.HasSuperclass = sc.Str, true
	}
	if c.Interfaces, err = p.strings(cls, PropInterfaces); err != nil {
		return c, err
	}
	if c.Annotations, err = p.annotations(cls); err != nil {
		return c, err
	}

	if ctors := entry.Get(PropConstructors); ctors.Exists() {
		c.HasConstructors = true
		if c.Constructors, err = p.members(ctors, PropConstructors, false); err != nil {
			return c, err
		}
	}
	if methods := entry.Get(PropMethods); methods.Exists() {
		c.HasMethods = true
		if c.Methods, err = p.members(methods, PropMethods, true); err != nil {
			return c, err
		}
	}
	if attrs := entry.Get(PropAttributes); attrs.Exists() {
		c.HasAttributes = true
		if c.Attributes, err = p.attributes(attrs); err != nil {
			return c, err
		}
	}
	if c.EnumValues, err = p.strings(entry, PropEnumValues); err != nil {
		return c, err
	}
	return c, nil
}

type entryParser struct {
	index int
	class string
	path  string
}

func (p entryParser) errorf(format string, args ...any) error {
	var b strings.Builder
	fmt.Fprintf(&b, "entry %d", p.index)
	if p.class != "" {
		b.WriteString(" (class " + p.class + ")")
	}
	if p.path != "" {
		b.WriteString(" at " + p.path)
	}
	b.WriteString(": ")
	fmt.Fprintf(&b, format, args...)
	return fatal.New(fatal.OracleMalformed, "%s", b.String())
}

func (p entryParser) at(path string) entryParser {
	if p.path != "" {
		path = p.path + "." + path
	}
	p.path = path
	return p
}

func (p entryParser) requiredString(obj gjson.Result, key string) (string, error) {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return "", p.errorf("%q must be a string", key)
	}
	return v.Str, nil
}

func (p entryParser) flag(obj gjson.Result, key string) (bool, error) {
	v := obj.Get(key)
	if !v.Exists() {
		return false, nil
	}
	if !v.IsBool() {
		return false, p.errorf("%q must be a boolean", key)
	}
	return v.Bool(), nil
}

func (p entryParser) strings(obj gjson.Result, key string) (Strings, error) {
	v := obj.Get(key)
	if !v.Exists() {
		return Strings{}, nil
	}
	if !v.IsArray() {
		return Strings{}, p.errorf("%q must be an array of strings", key)
	}
	out := Strings{Set: true, Values: []string{}}
	for _, item := range v.Array() {
		if item.Type != gjson.String {
			return Strings{}, p.errorf("%q must be an array of strings", key)
		}
		out.Values = append(out.Values, item.Str)
	}
	return out, nil
}

func (p entryParser) annotations(obj gjson.Result) (Annotations, error) {
	v := obj.Get(PropAnnotations)
	if !v.Exists() {
		return Annotations{}, nil
	}
	if !v.IsArray() {
		return Annotations{}, p.errorf("%q must be an array", PropAnnotations)
	}
	out := Annotations{Set: true, Values: []match.AnnotationDescriptor{}}
	for _, item := range v.Array() {
		switch {
		case item.Type == gjson.String:
			out.Values = append(out.Values, match.AnnotationDescriptor{Name: item.Str})
		case item.IsObject():
			name := item.Get(PropName)
			if name.Type != gjson.String {
				return Annotations{}, p.errorf("annotation objects need a string %q", PropName)
			}
			desc := match.AnnotationDescriptor{Name: name.Str}
			if values := item.Get(PropValues); values.Exists() {
				if !values.IsObject() {
					return Annotations{}, p.errorf("annotation %s: %q must be an object", name.Str, PropValues)
				}
				desc.Args = make(map[string]facts.Value)
				var verr error
				values.ForEach(func(key, value gjson.Result) bool {
					val, err := p.value(value)
					if err != nil {
						verr = err
						return false
					}
					desc.Args[key.Str] = val
					return true
				})
				if verr != nil {
					return Annotations{}, verr
				}
			}
			out.Values = append(out.Values, desc)
		default:
			return Annotations{}, p.errorf("annotations must be strings or objects")
		}
	}
	return out, nil
}

func (p entryParser) value(v gjson.Result) (facts.Value, error) {
	switch v.Type {
	case gjson.String:
		return facts.Value{Kind: facts.KindString, Str: v.Str}, nil
	case gjson.Number:
		return facts.Value{Kind: facts.KindNumber, Str: v.Raw, Num: v.Num}, nil
	case gjson.True, gjson.False:
		return facts.Value{Kind: facts.KindBool, Bool: v.Bool()}, nil
	case gjson.Null:
		return facts.Value{Kind: facts.KindNull}, nil
	}
	if v.IsArray() {
		out := facts.Value{Kind: facts.KindArray}
		for _, item := range v.Array() {
			val, err := p.value(item)
			if err != nil {
				return facts.Value{}, err
			}
			out.Items = append(out.Items, val)
		}
		return out, nil
	}
	return facts.Value{}, p.errorf("unsupported annotation value %s", v.Raw)
}

func (p entryParser) members(list gjson.Result, key string, named bool) ([]ExpectedMember, error) {
	if !list.IsArray() {
		return nil, p.errorf("%q must be an array", key)
	}
	var out []ExpectedMember
	for j, item := range list.Array() {
		mp := p.at(key + "[" + strconv.Itoa(j) + "]")
		if !item.IsObject() {
			return nil, mp.errorf("member is not an object")
		}
		m := ExpectedMember{}
		var err error
		if named {
			if m.Name, err = mp.requiredString(item, PropName); err != nil {
				return nil, err
			}
			if rt := item.Get(PropReturnType); rt.Exists() {
				if rt.Type != gjson.String {
					return nil, mp.errorf("%q must be a string", PropReturnType)
				}
				m.ReturnType = rt.Str
			}
		}
		params, err := mp.strings(item, PropParameters)
		if err != nil {
			return nil, err
		}
		m.Parameters = params.Values
		if m.Modifiers, err = mp.strings(item, PropModifiers); err != nil {
			return nil, err
		}
		if m.Annotations, err = mp.annotations(item); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (p entryParser) attributes(list gjson.Result) ([]ExpectedAttribute, error) {
	if !list.IsArray() {
		return nil, p.errorf("%q must be an array", PropAttributes)
	}
	var out []ExpectedAttribute
	for j, item := range list.Array() {
		ap := p.at(PropAttributes + "[" + strconv.Itoa(j) + "]")
		if !item.IsObject() {
			return nil, ap.errorf("attribute is not an object")
		}
		a := ExpectedAttribute{}
		var err error
		if a.Name, err = ap.requiredString(item, PropName); err != nil {
			return nil, err
		}
		if t := item.Get(PropType); t.Exists() {
			if t.Type != gjson.String {
				return nil, ap.errorf("%q must be a string", PropType)
			}
			a.Type = t.Str
		}
		if a.Modifiers, err = ap.strings(item, PropModifiers); err != nil {
			return nil, err
		}
		if a.Annotations, err = ap.annotations(item); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
