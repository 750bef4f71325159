package javasrc

import (
	"strconv"
	"strings"

	"structest/internal/facts"

	sitter "github.com/smacker/go-tree-sitter"
)

// modifierOrder is the order in which Java renders modifier tokens. Tokens
// outside of it (default, sealed, non-sealed) are not part of the runtime
// modifier set and are dropped.
var modifierOrder = []string{
	"public", "protected", "private",
	"abstract", "static", "final",
	"transient", "volatile", "synchronized",
	"native", "strictfp", "interface",
}

func canonicalModifiers(mods []string) []string {
	out := make([]string, 0, len(mods))
	for _, m := range modifierOrder {
		if contains(mods, m) {
			out = append(out, m)
		}
	}
	return out
}

func accessOf(mods []string) string {
	for _, m := range []string{"public", "protected", "private"} {
		if contains(mods, m) {
			return m
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (w *walker) annotation(n *sitter.Node) facts.Annotation {
	a := facts.Annotation{Name: strings.Join(strings.Fields(w.text(n.ChildByFieldName("name"))), "")}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return a
	}
	a.Args = make(map[string]facts.Value)
	for i := 0; i < int(args.NamedChildCount()); i++ {
		c := args.NamedChild(i)
		if c.Type() == "element_value_pair" {
			a.Args[w.text(c.ChildByFieldName("key"))] = w.value(c.ChildByFieldName("value"))
			continue
		}
		a.Args["value"] = w.value(c)
	}
	return a
}

// value converts an annotation element value into a typed literal.
// Anything that is not a plain literal is kept as a symbol with its source text.
func (w *walker) value(n *sitter.Node) facts.Value {
	if n == nil {
		return facts.Value{Kind: facts.KindNull}
	}
	text := w.text(n)
	switch n.Type() {
	case "string_literal":
		return facts.Value{Kind: facts.KindString, Str: unquoteString(text)}
	case "character_literal":
		return facts.Value{Kind: facts.KindChar, Str: unquoteChar(text)}
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal",
		"binary_integer_literal", "decimal_floating_point_literal", "hex_floating_point_literal":
		if v, ok := numberValue(text); ok {
			return v
		}
	case "true":
		return facts.Value{Kind: facts.KindBool, Bool: true}
	case "false":
		return facts.Value{Kind: facts.KindBool}
	case "null_literal":
		return facts.Value{Kind: facts.KindNull}
	case "parenthesized_expression":
		return w.value(firstNamed(n))
	case "unary_expression":
		op := w.text(n.ChildByFieldName("operator"))
		operand := w.value(n.ChildByFieldName("operand"))
		if operand.Kind == facts.KindNumber && (op == "-" || op == "+") {
			if op == "-" {
				operand.Num = -operand.Num
				operand.Str = "-" + operand.Str
			}
			return operand
		}
	case "element_value_array_initializer":
		out := facts.Value{Kind: facts.KindArray}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			out.Items = append(out.Items, w.value(n.NamedChild(i)))
		}
		return out
	}
	return facts.Value{Kind: facts.KindSymbol, Str: strings.Join(strings.Fields(text), "")}
}

func unquoteString(text string) string {
	if strings.HasPrefix(text, `"""`) {
		return strings.TrimSuffix(strings.TrimPrefix(text, `"""`), `"""`)
	}
	if s, err := strconv.Unquote(text); err == nil {
		return s
	}
	return strings.Trim(text, `"`)
}

func unquoteChar(text string) string {
	if s, err := strconv.Unquote(text); err == nil {
		return s
	}
	return strings.Trim(text, "'")
}

// numberValue parses a Java numeric literal, keeping its source text.
func numberValue(text string) (facts.Value, bool) {
	clean := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(clean)
	isHex := strings.HasPrefix(lower, "0x")
	if strings.HasSuffix(lower, "l") || (!isHex && (strings.HasSuffix(lower, "f") || strings.HasSuffix(lower, "d"))) {
		clean = clean[:len(clean)-1]
	}
	v := facts.Value{Kind: facts.KindNumber, Str: text}
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		v.Num = float64(i)
		return v, true
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		v.Num = f
		return v, true
	}
	return facts.Value{}, false
}
