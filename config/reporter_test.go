package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

func archive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer zr.Close()
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func prepareReport(t *testing.T) (*Report, string) {
	t.Helper()
	conf := ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	return r, conf.Destination
}

func TestReportArtifacts(t *testing.T) {
	r, dest := prepareReport(t)

	log := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(log, []byte("first"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	r.Store("final.log", log)
	r.Store("gone.log", filepath.Join(t.TempDir(), "missing.log"))
	data := []byte("version: 1\n")
	r.StoreData("config/config.yaml", data)
	data[0] = 'X'
	// referenced files are read on close
	if err := os.WriteFile(log, []byte("second"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	files := archive(t, dest)
	if files["final.log"] != "second" {
		t.Errorf("expected current log content, got %q", files["final.log"])
	}
	if files["config/config.yaml"] != "version: 1\n" {
		t.Errorf("expected captured data, got %q", files["config/config.yaml"])
	}
	if _, ok := files["gone.log"]; ok {
		t.Errorf("expected missing file skipped")
	}
	for _, want := range []string{"final.log\t" + log, "config/config.yaml\t(captured)", "gone.log"} {
		if !strings.Contains(files["MANIFEST"], want) {
			t.Errorf("expected %q in manifest\n%s", want, files["MANIFEST"])
		}
	}
}

func TestReportTransforms(t *testing.T) {
	r, dest := prepareReport(t)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.StoreTransform(id, "src/App.jsx", []byte("orig"), []byte("new"), "warn")
		}()
	}
	wg.Wait()
	r.StoreTransform("d", "src/Empty.jsx", []byte("orig"), nil, "")
	if err := r.StorePatch("a", []byte("--- a\n+++ b\n")); err != nil {
		t.Fatalf("StorePatch() error: %v", err)
	}
	if err := r.StorePatch("missing", nil); err == nil {
		t.Errorf("expected error for unknown transform")
	}
	if tr, ok := r.Transform("d"); !ok || tr.Changed() {
		t.Errorf("expected unchanged transform d, got %+v", tr)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	files := archive(t, dest)
	tests := []struct {
		name    string
		present bool
	}{
		{"files/a/App.jsx", true},
		{"files/a/App.jsx.patch", true},
		{"files/b/App.jsx.orig", true},
		{"files/b/App.jsx.patch", false},
		{"files/c/App.jsx.diag.txt", true},
		{"files/d/Empty.jsx.orig", true},
		{"files/d/Empty.jsx", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := files[tt.name]; ok != tt.present {
				t.Errorf("expected present %v, got %v", tt.present, ok)
			}
		})
	}

	lines := strings.Split(strings.TrimSpace(files["TRANSFORMS"]), "\n")
	var ids []string
	for _, l := range lines {
		fields := strings.Split(l, "\t")
		ids = append(ids, fields[0])
		if fields[0] == "d" && fields[2] != "false" {
			t.Errorf("expected d unchanged in index, got %q", l)
		}
	}
	if !slices.Equal(ids, []string{"a", "b", "c", "d"}) {
		t.Errorf("expected sorted index, got %v", ids)
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	r.Store("x", "y")
	r.StoreData("x", nil)
	r.StoreTransform("id", "a.js", nil, nil, "")
	if err := r.StorePatch("id", nil); err != nil {
		t.Errorf("StorePatch on nil report should not error, got: %v", err)
	}
	if _, ok := r.Transform("id"); ok {
		t.Errorf("expected no transform in nil report")
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{artifacts: make(map[string]artifact), transforms: make(map[string]*Transform)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
