package report

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"structest/internal/conformance"
	"structest/internal/util"
)

// Aggregate merges the summaries of many runs, for example every submission
// of an exercise.
type Aggregate struct {
	Runs    int                 `json:"runs"`
	Fatal   map[string]int      `json:"fatal"`
	Totals  conformance.Summary `json:"totals"`
	Checks  []CheckStats        `json:"checks"`
	Reasons map[string]int      `json:"reasons"`
	Entries []AggregateEntry    `json:"entries"`

	byName map[string]*CheckStats
}

// CheckStats counts how often one check failed across runs.
type CheckStats struct {
	Name   string `json:"name"`
	Runs   int    `json:"runs"`
	Failed int    `json:"failed"`
}

// AggregateEntry is the short form of one run.
type AggregateEntry struct {
	RunID          string              `json:"run_id"`
	Dir            string              `json:"dir"`
	Totals         conformance.Summary `json:"totals"`
	Fatal          string              `json:"fatal,omitempty"`
	UploadLocation string              `json:"upload_location,omitempty"`
	Timestamp      string              `json:"timestamp"`
}

// NewAggregate creates an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		Fatal:   make(map[string]int),
		Reasons: make(map[string]int),
		byName:  make(map[string]*CheckStats),
	}
}

// Add merges one run summary.
func (a *Aggregate) Add(dir string, s Summary) {
	a.Runs++
	entry := AggregateEntry{
		RunID:          s.RunID,
		Dir:            dir,
		Totals:         s.Totals,
		UploadLocation: s.UploadLocation,
		Timestamp:      s.Timestamp,
	}
	if s.Fatal != nil {
		a.Fatal[string(s.Fatal.Class)]++
		entry.Fatal = string(s.Fatal.Class)
	}
	a.Entries = append(a.Entries, entry)
	a.Totals.Total += s.Totals.Total
	a.Totals.Passed += s.Totals.Passed
	a.Totals.Failed += s.Totals.Failed
	for _, o := range s.Outcomes {
		stats, ok := a.byName[o.Name]
		if !ok {
			stats = &CheckStats{Name: o.Name}
			a.byName[o.Name] = stats
		}
		stats.Runs++
		if !o.Passed {
			stats.Failed++
		}
		for _, f := range o.Failures {
			a.Reasons[string(f.Key)]++
		}
	}
}

// Finish orders checks by failure count and entries by timestamp.
func (a *Aggregate) Finish() *Aggregate {
	a.Checks = a.Checks[:0]
	for _, stats := range a.byName {
		a.Checks = append(a.Checks, *stats)
	}
	sort.Slice(a.Checks, func(i, j int) bool {
		if a.Checks[i].Failed != a.Checks[j].Failed {
			return a.Checks[i].Failed > a.Checks[j].Failed
		}
		return a.Checks[i].Name < a.Checks[j].Name
	})
	sort.SliceStable(a.Entries, func(i, j int) bool {
		if a.Entries[i].Timestamp != a.Entries[j].Timestamp {
			return a.Entries[i].Timestamp > a.Entries[j].Timestamp
		}
		return a.Entries[i].RunID < a.Entries[j].RunID
	})
	return a
}

// LoadLocal aggregates every run directory directly below root, and every
// run archive (*.tar.zst) collected there.
func LoadLocal(root string) (*Aggregate, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	agg := NewAggregate()
	for _, entry := range entries {
		if !entry.IsDir() {
			if strings.HasSuffix(entry.Name(), ".tar.zst") {
				path := filepath.Join(root, entry.Name())
				summary, err := readArchivedSummary(path)
				if err != nil {
					util.Warnf("skip run archive %s: %v", path, err)
					continue
				}
				agg.Add(path, summary)
			}
			continue
		}
		dir := filepath.Join(root, entry.Name())
		summary, err := ReadSummary(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			util.Warnf("skip run %s: %v", dir, err)
			continue
		}
		agg.Add(dir, summary)
	}
	return agg.Finish(), nil
}

func readArchivedSummary(path string) (Summary, error) {
	files, err := ReadRunArchive(path)
	if err != nil {
		return Summary{}, err
	}
	data, ok := files[SummaryFileName]
	if !ok {
		return Summary{}, os.ErrNotExist
	}
	return DecodeSummary(data)
}

// WriteAggregate writes the aggregate as ordered JSON to path.
func WriteAggregate(path string, agg *Aggregate) error {
	raw, err := EncodeAggregate(agg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o644)
}

// EncodeAggregate renders the aggregate as compact JSON with sorted keys.
func EncodeAggregate(agg *Aggregate) ([]byte, error) {
	raw, err := encodeOrderedValue(aggregateDoc(agg))
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

func aggregateDoc(a *Aggregate) map[string]any {
	checks := make([]any, 0, len(a.Checks))
	for _, c := range a.Checks {
		checks = append(checks, map[string]any{"name": c.Name, "runs": c.Runs, "failed": c.Failed})
	}
	entries := make([]any, 0, len(a.Entries))
	for _, e := range a.Entries {
		entries = append(entries, map[string]any{
			"run_id":          e.RunID,
			"dir":             e.Dir,
			"totals":          map[string]any{"total": e.Totals.Total, "passed": e.Totals.Passed, "failed": e.Totals.Failed},
			"fatal":           e.Fatal,
			"upload_location": e.UploadLocation,
			"timestamp":       e.Timestamp,
		})
	}
	return map[string]any{
		"runs":    a.Runs,
		"fatal":   a.Fatal,
		"totals":  map[string]any{"total": a.Totals.Total, "passed": a.Totals.Passed, "failed": a.Totals.Failed},
		"checks":  checks,
		"reasons": a.Reasons,
		"entries": entries,
	}
}
