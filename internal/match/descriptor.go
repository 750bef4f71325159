// Package match implements the structural matchers of the conformance engine.
//
// Every matcher is a pure function over an actual fact and an expectation and
// reports a plain boolean. None of them panic on malformed input; an
// expectation that cannot be understood simply does not match.
package match

import (
	"strings"
)

// EnumSentinel is the superclass descriptor that stands for the implicit
// java.lang.Enum base. Superclass checks treat it as unconstrained.
const EnumSentinel = "Enum"

// Descriptor is a parsed type descriptor such as "Map<String, List<Integer>>[]".
type Descriptor struct {
	// Base is the unqualified simple name, "?" for wildcards.
	Base string
	// Bound is "extends" or "super" for bounded wildcards; Args then holds the bound.
	Bound string
	Args  []Descriptor
	Dims  int
}

// Generic reports whether the descriptor carries type arguments anywhere.
func (d Descriptor) Generic() bool {
	return len(d.Args) > 0 && d.Bound == ""
}

// String renders the descriptor in canonical form.
func (d Descriptor) String() string {
	var b strings.Builder
	d.write(&b)
	return b.String()
}

func (d Descriptor) write(b *strings.Builder) {
	b.WriteString(d.Base)
	if d.Bound != "" {
		b.WriteString(" " + d.Bound + " ")
		if len(d.Args) == 1 {
			d.Args[0].write(b)
		}
	} else if len(d.Args) > 0 {
		b.WriteByte('<')
		for i, arg := range d.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			arg.write(b)
		}
		b.WriteByte('>')
	}
	for i := 0; i < d.Dims; i++ {
		b.WriteString("[]")
	}
}

// Equal compares two descriptors structurally.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Base != o.Base || d.Bound != o.Bound || d.Dims != o.Dims || len(d.Args) != len(o.Args) {
		return false
	}
	for i := range d.Args {
		if !d.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// ParseDescriptor parses a textual type descriptor. Package qualifiers are
// dropped, "T..." is read as "T[]" and whitespace is insignificant except as a
// separator in wildcard bounds.
func ParseDescriptor(s string) (Descriptor, bool) {
	p := &descParser{src: s}
	d, ok := p.parseType()
	if !ok {
		return Descriptor{}, false
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Descriptor{}, false
	}
	return d, true
}

type descParser struct {
	src string
	pos int
}

func (p *descParser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *descParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *descParser) parseType() (Descriptor, bool) {
	p.skipSpace()
	if p.peek() == '?' {
		p.pos++
		return p.parseWildcard()
	}
	name, ok := p.parseName()
	if !ok {
		return Descriptor{}, false
	}
	d := Descriptor{Base: name}
	p.skipSpace()
	if p.peek() == '<' {
		p.pos++
		args, ok := p.parseArgs()
		if !ok {
			return Descriptor{}, false
		}
		d.Args = args
		// Outer<A>.Inner keeps only the innermost simple name, like getSimpleName.
		if p.peek() == '.' && !strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos++
			return p.parseType()
		}
	}
	d.Dims = p.parseDims()
	return d, true
}

func (p *descParser) parseWildcard() (Descriptor, bool) {
	d := Descriptor{Base: "?"}
	p.skipSpace()
	for _, bound := range []string{"extends", "super"} {
		rest := p.src[p.pos:]
		if strings.HasPrefix(rest, bound) && len(rest) > len(bound) && isSpace(rest[len(bound)]) {
			p.pos += len(bound)
			inner, ok := p.parseType()
			if !ok {
				return Descriptor{}, false
			}
			d.Bound = bound
			d.Args = []Descriptor{inner}
			return d, true
		}
	}
	return d, true
}

func (p *descParser) parseArgs() ([]Descriptor, bool) {
	var args []Descriptor
	for {
		arg, ok := p.parseType()
		if !ok {
			return nil, false
		}
		args = append(args, arg)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return args, true
		default:
			return nil, false
		}
	}
}

func (p *descParser) parseName() (string, bool) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' {
			if strings.HasPrefix(p.src[p.pos:], "...") {
				break
			}
			p.pos++
			continue
		}
		if !isIdentByte(c) {
			break
		}
		p.pos++
	}
	qualified := p.src[start:p.pos]
	if qualified == "" {
		return "", false
	}
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		qualified = qualified[i+1:]
	}
	// Binary names of nested classes use '$'.
	if i := strings.LastIndexByte(qualified, '$'); i >= 0 && i < len(qualified)-1 {
		qualified = qualified[i+1:]
	}
	if qualified == "" {
		return "", false
	}
	return qualified, true
}

func (p *descParser) parseDims() int {
	dims := 0
	for {
		p.skipSpace()
		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "..."):
			p.pos += 3
			dims++
		case strings.HasPrefix(rest, "["):
			open := p.pos
			p.pos++
			p.skipSpace()
			if p.peek() != ']' {
				p.pos = open
				return dims
			}
			p.pos++
			dims++
		default:
			return dims
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
