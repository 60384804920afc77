package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLintEmbeddedForms(t *testing.T) {
	stdout, stderr, err := runCLI(t, "lint", "--config", "")
	if err != nil {
		t.Fatalf("lint: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "1 schema source(s) ok") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestLintReportsBrokenDirectory(t *testing.T) {
	dir := t.TempDir()
	doc := `forms:
  broken:
    steps:
      - id: one
        fields: [ghost]
    fields:
      name: {kind: text}
`
	if err := os.WriteFile(filepath.Join(dir, "forms.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	_, stderr, err := runCLI(t, "lint", "--config", "", dir)
	if err == nil {
		t.Fatalf("expected lint failure")
	}
	if !strings.Contains(stderr, dir+": broken -> ") || !strings.Contains(stderr, "ghost") {
		t.Fatalf("unexpected report %q", stderr)
	}
}
