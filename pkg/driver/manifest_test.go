package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, contents)
	return path
}

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: beam-analysis
entry: src/main.mda
output: beam
paths:
  - lib
dependencies:
  units:
    path: ../units
  geometry:
    git: https://example.com/geometry.git
    tag: v1.2.0
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if manifest.Name != "beam-analysis" || manifest.Output != "beam" {
		t.Fatalf("unexpected manifest header: %#v", manifest)
	}
	dir := filepath.Dir(path)
	if got, want := manifest.EntryPath(), filepath.Join(dir, "src", "main.mda"); got != want {
		t.Fatalf("EntryPath = %q, want %q", got, want)
	}
	if dirs := manifest.SearchDirs(); len(dirs) != 1 || dirs[0] != filepath.Join(dir, "lib") {
		t.Fatalf("SearchDirs unexpected: %#v", dirs)
	}
	if names := manifest.DependencyNames(); strings.Join(names, ",") != "geometry,units" {
		t.Fatalf("DependencyNames = %v", names)
	}
	geometry := manifest.Dependencies["geometry"]
	if !geometry.IsGit() || geometry.Descriptor() != "v1.2.0" {
		t.Fatalf("geometry dependency not parsed: %#v", geometry)
	}
	if units := manifest.Dependencies["units"]; units.IsGit() || units.Path != "../units" {
		t.Fatalf("units dependency not parsed: %#v", units)
	}
}

func TestLoadManifestRejectsUnknownField(t *testing.T) {
	path := writeManifest(t, `
name: app
version: 1.0.0
`)
	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadManifestSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"bad name": `
name: "two words"
`,
		"mistyped paths": `
name: app
paths: lib
`,
		"mistyped pin": `
name: app
dependencies:
  geometry:
    git: https://example.com/geometry.git
    tag: 3
`,
		"unknown dependency key": `
name: app
dependencies:
  geometry:
    url: https://example.com/geometry.git
`,
	}
	for label, contents := range cases {
		_, err := LoadManifest(writeManifest(t, contents))
		var verr *ValidationError
		if !errors.As(err, &verr) || len(verr.Issues) == 0 {
			t.Fatalf("%s: expected schema validation error, got %v", label, err)
		}
	}
}

func TestLoadManifestValidatesDependencies(t *testing.T) {
	path := writeManifest(t, `
name: app
dependencies:
  unpinned:
    git: https://example.com/a.git
  both:
    git: https://example.com/b.git
    path: ../b
    rev: abc
  neither: {}
  overpinned:
    git: https://example.com/c.git
    tag: v1
    branch: main
`)
	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	msg := verr.Error()
	for _, want := range []string{
		"dependencies.unpinned: git dependencies require rev, tag, or branch",
		"dependencies.both: git and path are mutually exclusive",
		"dependencies.neither: one of git or path is required",
		"dependencies.overpinned: only one of rev, tag, or branch may be set",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in:\n%s", want, msg)
		}
	}
}

func TestLoadManifestEmpty(t *testing.T) {
	if _, err := LoadManifest(writeManifest(t, "")); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty manifest error, got %v", err)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "name: app\n")
	nested := filepath.Join(root, "src", "deep")
	writeFile(t, filepath.Join(nested, "main.json"), `{"body": []}`)

	got, err := FindManifest(filepath.Join(nested, "main.json"))
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if got != filepath.Join(root, ManifestName) {
		t.Fatalf("FindManifest = %q", got)
	}
	if _, err := FindManifest(t.TempDir()); !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}
