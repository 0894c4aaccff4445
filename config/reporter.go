package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"stylemig/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report archive, falling back to temporary file when
// destination can not be created.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	r := &Report{
		artifacts:  make(map[string]artifact),
		transforms: make(map[string]*Transform),
	}
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	r.file = f
	return r, nil
}

// artifact is a run level item: log, panic output or configuration. Files
// are referenced by path and read on Close, data is captured immediately.
type artifact struct {
	path  string
	data  []byte
	stamp time.Time
}

// Transform is what the report keeps about conversion of one source file.
type Transform struct {
	ID          string
	Source      string
	Original    []byte
	Transformed []byte
	Patch       []byte
	Diagnostics string
	Stamp       time.Time
}

// Changed reports whether source was rewritten.
func (t *Transform) Changed() bool {
	return t.Transformed != nil
}

func (t *Transform) files() map[string][]byte {
	base := "files/" + t.ID + "/" + filepath.Base(t.Source)
	out := map[string][]byte{base + ".orig": t.Original}
	if t.Changed() {
		out[base] = t.Transformed
	}
	if len(t.Patch) > 0 {
		out[base+".patch"] = t.Patch
	}
	if t.Diagnostics != "" {
		out[base+".diag.txt"] = []byte(t.Diagnostics)
	}
	return out
}

// Report accumulates debug information of one run. Files are converted in
// parallel so all methods are safe for concurrent use, and nil report
// silently ignores everything.
type Report struct {
	mu         sync.Mutex
	artifacts  map[string]artifact
	transforms map[string]*Transform
	file       *os.File
}

// Close writes the archive.
func (r *Report) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	defer r.file.Close()
	return r.finalize()
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store references file to be read when report is closed.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if p, err := filepath.Abs(path); err == nil {
		path = p
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.artifacts[name]; exists && old.path != path {
		panic(fmt.Sprintf("report artifact %s already refers to %s, now %s", name, old.path, path))
	}
	r.artifacts[name] = artifact{path: path}
}

// StoreData keeps copy of data under requested name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.artifacts[name]; exists {
		panic(fmt.Sprintf("report artifact %s stored twice", name))
	}
	r.artifacts[name] = artifact{data: bytes.Clone(data), stamp: time.Now()}
}

// StoreTransform records conversion of source file under id, storing the
// same id again replaces the record.
func (r *Report) StoreTransform(id, path string, original, transformed []byte, diagnostics string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transforms[id] = &Transform{
		ID:          id,
		Source:      path,
		Original:    original,
		Transformed: transformed,
		Diagnostics: diagnostics,
		Stamp:       time.Now(),
	}
}

// StorePatch attaches unified diff to recorded transform.
func (r *Report) StorePatch(id string, patch []byte) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transforms[id]
	if !ok {
		return fmt.Errorf("no transform %s in report", id)
	}
	t.Patch = patch
	return nil
}

// Transform returns recorded conversion.
func (r *Report) Transform(id string) (*Transform, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transforms[id]
	return t, ok
}

// finalize writes MANIFEST with run artifacts, TRANSFORMS index keyed by
// transform id and every stored item.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)
	now := time.Now()

	names := slices.Sorted(maps.Keys(r.artifacts))
	manifest := new(bytes.Buffer)
	for _, name := range names {
		a := r.artifacts[name]
		stamp, origin := a.stamp, a.path
		if stamp.IsZero() {
			stamp = now
		}
		if origin == "" {
			origin = "(captured)"
		}
		fmt.Fprintf(manifest, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), name, origin)
	}
	if err := saveFile(arc, "MANIFEST", now, manifest); err != nil {
		return err
	}
	for _, name := range names {
		if err := saveArtifact(arc, name, r.artifacts[name]); err != nil {
			return err
		}
	}

	ids := slices.Sorted(maps.Keys(r.transforms))
	index := new(bytes.Buffer)
	for _, id := range ids {
		t := r.transforms[id]
		fmt.Fprintf(index, "%s\t%s\t%s\t%s\n", id, t.Source, strconv.FormatBool(t.Changed()), t.Stamp.UTC().Format(time.UnixDate))
	}
	if err := saveFile(arc, "TRANSFORMS", now, index); err != nil {
		return err
	}
	for _, id := range ids {
		t := r.transforms[id]
		files := t.files()
		for _, name := range slices.Sorted(maps.Keys(files)) {
			if err := saveFile(arc, name, t.Stamp, bytes.NewReader(files[name])); err != nil {
				return err
			}
		}
	}
	return arc.Close()
}

// saveArtifact ignores referenced files that are gone or not regular.
func saveArtifact(arc *zip.Writer, name string, a artifact) error {
	if a.path == "" {
		return saveFile(arc, name, a.stamp, bytes.NewReader(a.data))
	}
	info, err := os.Stat(a.path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(a.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(arc, name, info.ModTime(), f)
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
