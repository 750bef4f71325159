package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"structest/internal/conformance"
	"structest/internal/facts"
	"structest/internal/javasrc"
	"structest/internal/report"

	"github.com/stretchr/testify/require"
)

const counterSource = `package de.ex;

public class Counter {
    private int count;

    public Counter(int start) {
        this.count = start;
    }

    public void inc() {
        count++;
    }
}
`

const counterOracle = `[
  {
    "class": {"name": "Counter", "package": "de.ex", "modifiers": ["public"]},
    "constructors": [{"parameters": ["int"], "modifiers": ["%s"]}],
    "methods": [{"name": "inc", "parameters": [], "returnType": "void"}],
    "attributes": [{"name": "count", "type": "int", "modifiers": ["private"]}]
  }
]`

type workspace struct {
	root    string
	src     string
	reports string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{root: root, src: filepath.Join(root, "src"), reports: filepath.Join(root, "reports")}
	require.NoError(t, os.MkdirAll(filepath.Join(ws.src, "de", "ex"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.src, "de", "ex", "Counter.java"), []byte(counterSource), 0o644))
	return ws
}

func (ws workspace) writeOracle(t *testing.T, ctorModifier string) string {
	t.Helper()
	path := filepath.Join(ws.root, "test.json")
	content := strings.Replace(counterOracle, "%s", ctorModifier, 1)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (ws workspace) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--log-file=")
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (ws workspace) onlySummary(t *testing.T) report.Summary {
	t.Helper()
	entries, err := os.ReadDir(ws.reports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	summary, err := report.ReadSummary(filepath.Join(ws.reports, entries[0].Name()))
	require.NoError(t, err)
	return summary
}

func TestCheckPasses(t *testing.T) {
	ws := newWorkspace(t)
	oracle := ws.writeOracle(t, "public")

	code, stdout, stderr := ws.run(t, "check", ws.src, "--oracle", oracle, "--output-dir", ws.reports)
	require.Equal(t, exitOK, code, "stderr: %s", stderr)
	for _, want := range []string{
		"PASS testClass[Counter]",
		"PASS testConstructor[Counter(int)]",
		"PASS testMethod[Counter.inc()]",
		"PASS testAttribute[Counter.count]",
		"4 checks, 4 passed, 0 failed",
	} {
		require.Contains(t, stdout, want)
	}

	summary := ws.onlySummary(t)
	require.Nil(t, summary.Fatal)
	require.Equal(t, []string{"de/ex/Counter.java"}, summary.Sources)
	require.Equal(t, report.RunArchiveName, summary.ArchiveName)
	_, err := os.Stat(filepath.Join(summary.RunDir, report.TextFileName))
	require.NoError(t, err)
}

func TestCheckFailureExitsOne(t *testing.T) {
	ws := newWorkspace(t)
	oracle := ws.writeOracle(t, "private")

	code, stdout, _ := ws.run(t, "check", ws.src, "--oracle", oracle, "--output-dir", ws.reports, "--kind", "constructor", "--no-archive")
	require.Equal(t, exitChecksFailed, code)
	require.Contains(t, stdout, "FAIL testConstructor[Counter(int)]")
	require.Contains(t, stdout, "The access modifiers of the expected constructor of the class 'Counter'")

	summary := ws.onlySummary(t)
	require.Equal(t, 1, summary.Totals.Failed)
	require.Empty(t, summary.ArchiveName)
}

func TestFailureLineNamesSourceFile(t *testing.T) {
	ws := newWorkspace(t)
	provider, err := javasrc.Load(context.Background(), ws.src, []string{"**/*.java"}, 1)
	require.NoError(t, err)

	failed := conformance.Outcome{Name: "testClass[Counter]", Class: facts.ClassID{Package: "de.ex", Name: "Counter"}}
	failed.Failures = []conformance.Failure{{Message: "broken"}}
	require.Equal(t, "FAIL testClass[Counter] (de/ex/Counter.java): broken", failureLine(provider, failed))

	missing := conformance.Outcome{Name: "testClass[Gone]", Class: facts.ClassID{Package: "de.ex", Name: "Gone"}}
	missing.Failures = []conformance.Failure{{Message: "not found"}}
	require.Equal(t, "FAIL testClass[Gone]: not found", failureLine(provider, missing))
}

func TestCheckMissingOracleIsFatal(t *testing.T) {
	ws := newWorkspace(t)

	code, stdout, stderr := ws.run(t, "check", ws.src, "--oracle", filepath.Join(ws.root, "missing.json"), "--output-dir", ws.reports)
	require.Equal(t, 2, code)
	require.Contains(t, stdout, "FATAL ORACLE_MISSING")
	require.Contains(t, stderr, "ORACLE_MISSING")

	summary := ws.onlySummary(t)
	require.NotNil(t, summary.Fatal)
	require.Equal(t, 2, summary.Fatal.ExitCode)
}

func TestCheckWithoutOracleIsConfigError(t *testing.T) {
	ws := newWorkspace(t)
	code, _, stderr := ws.run(t, "check", ws.src, "--output-dir", ws.reports)
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "CONFIG")
	_, err := os.Stat(ws.reports)
	require.True(t, os.IsNotExist(err), "no run directory expected for config errors")
}

func TestCheckWithoutSourcesIsProviderError(t *testing.T) {
	ws := newWorkspace(t)
	oracle := ws.writeOracle(t, "public")
	code, stdout, _ := ws.run(t, "check", filepath.Join(ws.root, "empty"), "--oracle", oracle, "--output-dir", ws.reports)
	require.Equal(t, 10, code)
	require.Contains(t, stdout, "FATAL PROVIDER")
}

func TestSchema(t *testing.T) {
	ws := newWorkspace(t)
	code, stdout, _ := ws.run(t, "schema")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, `"constructors"`)
}

func TestGeneratedOracleGradesReference(t *testing.T) {
	ws := newWorkspace(t)
	generated := filepath.Join(ws.root, "generated.json")

	code, _, stderr := ws.run(t, "oracle", ws.src, "--out", generated)
	require.Equal(t, exitOK, code, "stderr: %s", stderr)

	code, stdout, stderr := ws.run(t, "check", ws.src, "--oracle", generated, "--output-dir", ws.reports, "--no-archive")
	require.Equal(t, exitOK, code, "stdout: %s\nstderr: %s", stdout, stderr)
	require.Contains(t, stdout, "PASS testMethod[Counter.inc()]")
}

func TestReportAggregatesRuns(t *testing.T) {
	ws := newWorkspace(t)
	for _, modifier := range []string{"public", "private"} {
		oracle := ws.writeOracle(t, modifier)
		ws.run(t, "check", ws.src, "--oracle", oracle, "--output-dir", ws.reports, "--no-archive")
	}
	out := filepath.Join(ws.root, "site", "aggregate.json")
	code, stdout, stderr := ws.run(t, "report", ws.reports, "--out", out)
	require.Equal(t, exitOK, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "2 runs, 8 checks, 1 failed")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), `"name":"testConstructor[Counter(int)]"`)

	code, stdout, _ = ws.run(t, "report", ws.reports)
	require.Equal(t, exitOK, code)
	require.Equal(t, string(data), stdout)
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	ws := newWorkspace(t)
	code, _, stderr := ws.run(t, "check", "--bogus")
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr, "unknown flag")
}
