package facts

import (
	"context"
	"sort"
)

// MemoryProvider serves facts from an in-memory index.
type MemoryProvider struct {
	classes map[ClassID]Class
}

// NewMemoryProvider indexes the given classes by identity. Later entries
// replace earlier ones with the same identity.
func NewMemoryProvider(classes ...Class) *MemoryProvider {
	p := &MemoryProvider{classes: make(map[ClassID]Class, len(classes))}
	for _, c := range classes {
		p.classes[c.ID] = c
	}
	return p
}

// Lookup implements Provider.
func (p *MemoryProvider) Lookup(ctx context.Context, id ClassID) (Class, bool, error) {
	if err := ctx.Err(); err != nil {
		return Class{}, false, err
	}
	c, ok := p.classes[id]
	return c, ok, nil
}

// IDs returns the indexed identities in stable order.
func (p *MemoryProvider) IDs() []ClassID {
	out := make([]ClassID, 0, len(p.classes))
	for id := range p.classes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of indexed classes.
func (p *MemoryProvider) Len() int {
	return len(p.classes)
}
