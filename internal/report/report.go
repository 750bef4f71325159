package report

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"structest/internal/conformance"
	"structest/internal/fatal"
	"structest/internal/runinfo"
	"structest/internal/util"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Reporter writes run artifacts to disk.
type Reporter struct {
	OutputDir   string
	UseUUIDPath bool
	runSeq      int
}

// Run describes a report directory.
type Run struct {
	ID  string
	Dir string
}

// Summary captures the persisted result of one structural run.
type Summary struct {
	RunID          string                `json:"run_id"`
	RunDir         string                `json:"run_dir"`
	Oracle         string                `json:"oracle"`
	Sources        []string              `json:"sources"`
	Kinds          []string              `json:"kinds"`
	Totals         conformance.Summary   `json:"totals"`
	Outcomes       []conformance.Outcome `json:"outcomes"`
	Fatal          *FatalSummary         `json:"fatal,omitempty"`
	RunInfo        *runinfo.BasicInfo    `json:"run_info,omitempty"`
	UploadLocation string                `json:"upload_location"`
	ArchiveName    string                `json:"archive_name"`
	ArchiveCodec   string                `json:"archive_codec"`
	Details        map[string]any        `json:"details"`
	Timestamp      string                `json:"timestamp"`
	DurationMillis int64                 `json:"duration_ms"`
}

// FatalSummary records the configuration-level error that aborted a run.
type FatalSummary struct {
	Class    fatal.Class `json:"class"`
	ExitCode int         `json:"exit_code"`
	Message  string      `json:"message"`
}

// FatalFrom converts err into a FatalSummary.
func FatalFrom(err error) *FatalSummary {
	if err == nil {
		return nil
	}
	var fe *fatal.Error
	if errors.As(err, &fe) {
		return &FatalSummary{Class: fe.Class, ExitCode: fe.Class.ExitCode(), Message: fe.Detail()}
	}
	return &FatalSummary{Class: fatal.Internal, ExitCode: fatal.Internal.ExitCode(), Message: err.Error()}
}

// New creates a reporter that writes to outputDir.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// NewRun allocates a new run directory.
func (r *Reporter) NewRun() (Run, error) {
	r.runSeq++
	runID := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		runID = v7.String()
	}
	runDir := fmt.Sprintf("run_%04d_%s", r.runSeq, runID)
	if r.UseUUIDPath {
		runDir = runID
	}
	dir := filepath.Join(r.OutputDir, runDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Run{}, errors.Wrap(err, "create run directory")
	}
	return Run{ID: runID, Dir: dir}, nil
}

const (
	SummaryFileName = "summary.json"
	TextFileName    = "summary.txt"
	RunArchiveName  = "run.tar.zst"
	RunArchiveCodec = "zstd"
)

// WriteSummary writes summary.json into the run directory.
func (r *Reporter) WriteSummary(run Run, summary Summary) error {
	f, err := os.Create(filepath.Join(run.Dir, SummaryFileName))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "summary output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return encodeSummaryStable(enc, summary)
}

// WriteText writes raw text content into the run directory.
func (r *Reporter) WriteText(run Run, name string, content string) error {
	path := filepath.Join(run.Dir, name)
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// FormatText renders a summary as the plain-text test log.
func FormatText(summary Summary) string {
	var b strings.Builder
	for _, o := range summary.Outcomes {
		status := "PASS"
		if !o.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s %s\n", status, o.Name)
		for _, f := range o.Failures {
			fmt.Fprintf(&b, "    %s\n", f.Message)
		}
	}
	if summary.Fatal != nil {
		fmt.Fprintf(&b, "FATAL %s: %s\n", summary.Fatal.Class, summary.Fatal.Message)
	}
	fmt.Fprintf(&b, "%d checks, %d passed, %d failed\n", summary.Totals.Total, summary.Totals.Passed, summary.Totals.Failed)
	return b.String()
}

// ReadSummary loads summary.json from a run directory.
func ReadSummary(dir string) (Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, SummaryFileName))
	if err != nil {
		return Summary{}, err
	}
	return DecodeSummary(data)
}

// DecodeSummary parses summary.json content.
func DecodeSummary(data []byte) (Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, errors.Wrap(err, "decode run summary")
	}
	return s, nil
}

// WriteRunArchive creates a compressed archive of the run directory.
func (r *Reporter) WriteRunArchive(run Run) (name string, codec string, err error) {
	archivePath := filepath.Join(run.Dir, RunArchiveName)
	if removeErr := os.Remove(archivePath); removeErr != nil && !os.IsNotExist(removeErr) {
		return "", "", removeErr
	}
	defer func() {
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()
	file, err := os.Create(archivePath)
	if err != nil {
		return "", "", err
	}
	defer util.CloseWithErr(file, "archive output")

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if closeErr := zw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	tw := tar.NewWriter(zw)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	walkErr := filepath.WalkDir(run.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path == archivePath {
			return nil
		}
		rel, err := filepath.Rel(run.Dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer util.CloseWithErr(src, "archive source")
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		return "", "", walkErr
	}
	return RunArchiveName, RunArchiveCodec, nil
}

// ReadRunArchive lists the entries of a run archive with their contents.
func ReadRunArchive(path string) (map[string][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer util.CloseWithErr(file, "archive input")
	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	out := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		out[header.Name] = data
	}
}

func encodeSummaryStable(enc *json.Encoder, summary Summary) error {
	type summaryAlias Summary
	alias := summaryAlias(summary)
	rawDetails, err := encodeOrderedValue(alias.Details)
	if err != nil {
		return err
	}
	alias.Details = nil
	payload := struct {
		summaryAlias
		Details json.RawMessage `json:"details"`
	}{
		summaryAlias: alias,
		Details:      rawDetails,
	}
	return enc.Encode(payload)
}

func encodeOrderedValue(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	buf := &strings.Builder{}
	if err := writeOrderedJSON(buf, v); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.String()), nil
}

// writeOrderedJSON encodes maps with sorted keys at every depth.
func writeOrderedJSON(w io.Writer, v any) error {
	if v == nil {
		_, err := io.WriteString(w, "null")
		return err
	}
	if raw, ok := v.(json.RawMessage); ok {
		_, err := w.Write(raw)
		return err
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return writeOrderedMap(w, rv)
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			_, err := io.WriteString(w, "null")
			return err
		}
		return writeOrderedSlice(w, rv)
	}
	return writeScalarJSON(w, v)
}

func writeOrderedMap(w io.Writer, rv reflect.Value) error {
	if rv.IsNil() {
		_, err := io.WriteString(w, "null")
		return err
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	if _, err := io.WriteString(w, "{"); err != nil {
		return err
	}
	for i, key := range keys {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if err := writeScalarJSON(w, key); err != nil {
			return err
		}
		if _, err := io.WriteString(w, ":"); err != nil {
			return err
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if err := writeOrderedJSON(w, val.Interface()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}")
	return err
}

func writeOrderedSlice(w io.Writer, rv reflect.Value) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if err := writeOrderedJSON(w, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}

func writeScalarJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	_, err := w.Write(data)
	return err
}
