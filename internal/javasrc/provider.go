package javasrc

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"structest/internal/facts"
	"structest/internal/util"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
)

// DefaultPatterns selects every Java file below the source root.
var DefaultPatterns = []string{"**/*.java"}

// Source is one Java compilation unit.
type Source struct {
	Path    string
	Content []byte
}

// Provider serves class facts parsed from Java sources.
type Provider struct {
	*facts.MemoryProvider
	origin map[facts.ClassID]string
	paths  []string
}

// Discover expands the glob patterns below root into a sorted list of
// slash-separated relative paths. Patterns starting with "!" exclude matches.
func Discover(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	fsys := os.DirFS(root)
	var include, exclude []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "!") {
			exclude = append(exclude, strings.TrimPrefix(p, "!"))
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid source pattern %q", p)
		}
		include = append(include, p)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range include {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", p)
		}
	next:
		for _, m := range matches {
			for _, ex := range exclude {
				if ok, _ := doublestar.Match(ex, m); ok {
					continue next
				}
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Load discovers and parses the Java sources below root.
func Load(ctx context.Context, root string, patterns []string, workers int) (*Provider, error) {
	paths, err := Discover(root, patterns)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no Java sources below %s match %v", root, patterns)
	}
	util.Infof("parsing %d Java sources below %s", len(paths), root)
	return parseAll(ctx, len(paths), workers, func(i int) (Source, error) {
		rel := paths[i]
		data, err := fs.ReadFile(os.DirFS(root), rel)
		if err != nil {
			return Source{}, errors.Wrapf(err, "read %s", rel)
		}
		return Source{Path: filepath.ToSlash(rel), Content: data}, nil
	})
}

// FromSources parses in-memory compilation units.
func FromSources(ctx context.Context, sources []Source, workers int) (*Provider, error) {
	return parseAll(ctx, len(sources), workers, func(i int) (Source, error) {
		return sources[i], nil
	})
}

type parsedUnit struct {
	path    string
	classes []facts.Class
}

func parseAll(ctx context.Context, n, workers int, source func(int) (Source, error)) (*Provider, error) {
	if workers < 1 {
		workers = 1
	}
	p := pool.NewWithResults[parsedUnit]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(workers)
	for i := 0; i < n; i++ {
		p.Go(func(ctx context.Context) (parsedUnit, error) {
			src, err := source(i)
			if err != nil {
				return parsedUnit{}, err
			}
			parser := NewParser()
			defer parser.Close()
			classes, err := parser.Parse(ctx, src.Path, src.Content)
			if err != nil {
				return parsedUnit{}, err
			}
			return parsedUnit{path: src.Path, classes: classes}, nil
		})
	}
	units, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(units, func(i, j int) bool { return units[i].path < units[j].path })

	origin := make(map[facts.ClassID]string)
	paths := make([]string, 0, len(units))
	var all []facts.Class
	for _, u := range units {
		paths = append(paths, u.path)
		for _, c := range u.classes {
			if prev, dup := origin[c.ID]; dup {
				return nil, errors.Errorf("class %s is declared in both %s and %s", c.ID, prev, u.path)
			}
			origin[c.ID] = u.path
			all = append(all, c)
		}
	}
	return &Provider{MemoryProvider: facts.NewMemoryProvider(all...), origin: origin, paths: paths}, nil
}

// Classes returns the parsed classes sorted by identity.
func (p *Provider) Classes(ctx context.Context) ([]facts.Class, error) {
	out := make([]facts.Class, 0, p.Len())
	for _, id := range p.IDs() {
		c, _, err := p.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Origin returns the source path that declared id.
func (p *Provider) Origin(id facts.ClassID) (string, bool) {
	path, ok := p.origin[id]
	return path, ok
}

// Sources returns the parsed source paths in order.
func (p *Provider) Sources() []string {
	return append([]string(nil), p.paths...)
}
