package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const scene = `
type: difference
children:
  - {type: cube, size: [2, 2, 2], center: true}
  - {type: sphere, r: 1, fn: 12}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, noCache, repeat, jobs, verbose = "", false, 1, 1, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(scene), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertCommand(t *testing.T) {
	out, err := run(t, "convert", writeScene(t), "--repeat", "2")
	if err != nil {
		t.Fatalf("convert error = %v\n%s", err, out)
	}
	for _, want := range []string{"3 nodes, depth 2", "run 1:", "run 2:", "in 0s", "active 0", "cache: 1 hits", "operations: 1 run"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConvertSeveralDocuments(t *testing.T) {
	a, b := writeScene(t), writeScene(t)
	out, err := run(t, "convert", a, b, "--jobs", "2")
	if err != nil {
		t.Fatalf("convert error = %v\n%s", err, out)
	}
	ia, ib := strings.Index(out, "scene "+a), strings.Index(out, "scene "+b)
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("reports missing or out of order:\n%s", out)
	}
}

func TestConvertNoCache(t *testing.T) {
	out, err := run(t, "convert", writeScene(t), "--repeat", "2", "--no-cache")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if strings.Contains(out, "in 0s") {
		t.Errorf("--no-cache output reports a cache hit:\n%s", out)
	}
	if !strings.Contains(out, "operations: 2 run") || !strings.Contains(out, "hit rate 0.0%") {
		t.Errorf("--no-cache output should run the operation twice:\n%s", out)
	}
}

func TestConvertErrors(t *testing.T) {
	if _, err := run(t, "convert", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("convert of a missing file succeeded")
	}
	if _, err := run(t, "convert", writeScene(t), "--repeat", "0"); err == nil {
		t.Error("--repeat 0 succeeded")
	}
	if _, err := run(t, "convert", writeScene(t), "--jobs", "0"); err == nil {
		t.Error("--jobs 0 succeeded")
	}
}

func TestEnginesCommand(t *testing.T) {
	out, err := run(t, "engines")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bsp") {
		t.Errorf("engines output = %q, want bsp listed", out)
	}
}
