package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the project file looked up from the entry directory upwards.
const ManifestName = "madola.yml"

// ErrManifestNotFound is returned by FindManifest when no madola.yml exists
// between the start directory and the filesystem root.
var ErrManifestNotFound = errors.New("madola.yml not found")

// Manifest represents the parsed contents of madola.yml.
type Manifest struct {
	Path         string
	Name         string
	Entry        string
	Output       string
	Paths        []string
	Dependencies map[string]*DependencySpec
}

// DependencySpec describes where an import library comes from. Exactly one of
// Git or Path is set; git dependencies pin a Rev, Tag or Branch.
type DependencySpec struct {
	Git    string
	Tag    string
	Branch string
	Rev    string
	Path   string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses madola.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", absPath, err)
	}
	return ParseManifest(absPath, data)
}

// ParseManifest decodes manifest bytes; path is recorded and used in messages.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if generic == nil {
		return nil, fmt.Errorf("manifest: %s is empty", path)
	}
	if err := validateManifestSchema(path, generic); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", path)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	manifest := raw.toManifest(path)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks from start towards the root looking for madola.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", start, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrManifestNotFound
		}
		dir = parent
	}
}

// Dir is the directory holding the manifest; relative paths resolve against it.
func (m *Manifest) Dir() string {
	if m == nil || m.Path == "" {
		return ""
	}
	return filepath.Dir(m.Path)
}

// EntryPath returns the absolute entry program path, or "" when unset.
func (m *Manifest) EntryPath() string {
	if m == nil || m.Entry == "" {
		return ""
	}
	return m.resolve(m.Entry)
}

// SearchDirs returns the absolute extra search paths listed under `paths`.
func (m *Manifest) SearchDirs() []string {
	if m == nil {
		return nil
	}
	dirs := make([]string, 0, len(m.Paths))
	for _, p := range m.Paths {
		dirs = append(dirs, m.resolve(p))
	}
	return dirs
}

// DependencyNames returns the dependency keys in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Dir(), p)
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	for i, p := range m.Paths {
		if p == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("paths[%d] must be a non-empty string", i))
		}
	}
	for _, name := range m.DependencyNames() {
		dep := m.Dependencies[name]
		if dep == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: descriptor required", name))
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) normalize() {
	d.Git = strings.TrimSpace(d.Git)
	d.Tag = strings.TrimSpace(d.Tag)
	d.Branch = strings.TrimSpace(d.Branch)
	d.Rev = strings.TrimSpace(d.Rev)
	d.Path = strings.TrimSpace(d.Path)
}

func (d *DependencySpec) validate() []string {
	var issues []string
	switch {
	case d.Git == "" && d.Path == "":
		issues = append(issues, "one of git or path is required")
	case d.Git != "" && d.Path != "":
		issues = append(issues, "git and path are mutually exclusive")
	}
	pins := 0
	for _, v := range []string{d.Rev, d.Tag, d.Branch} {
		if v != "" {
			pins++
		}
	}
	if d.Git != "" && pins == 0 {
		issues = append(issues, "git dependencies require rev, tag, or branch")
	}
	if pins > 1 {
		issues = append(issues, "only one of rev, tag, or branch may be set")
	}
	if d.Path != "" && pins > 0 {
		issues = append(issues, "path dependencies cannot pin a revision")
	}
	return issues
}

// IsGit reports whether the dependency is fetched from a repository.
func (d *DependencySpec) IsGit() bool {
	return d != nil && d.Git != ""
}

// Descriptor names the pinned revision: the rev, tag or branch, in that order.
func (d *DependencySpec) Descriptor() string {
	switch {
	case d.Rev != "":
		return d.Rev
	case d.Tag != "":
		return d.Tag
	default:
		return d.Branch
	}
}

type manifestFile struct {
	Name         string                         `yaml:"name"`
	Entry        string                         `yaml:"entry"`
	Output       string                         `yaml:"output"`
	Paths        []string                       `yaml:"paths"`
	Dependencies map[string]*manifestDependency `yaml:"dependencies"`
}

type manifestDependency struct {
	Git    string `yaml:"git"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
	Rev    string `yaml:"rev"`
	Path   string `yaml:"path"`
}

func (f manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:         path,
		Name:         strings.TrimSpace(f.Name),
		Entry:        strings.TrimSpace(f.Entry),
		Output:       strings.TrimSpace(f.Output),
		Dependencies: make(map[string]*DependencySpec, len(f.Dependencies)),
	}
	for _, p := range f.Paths {
		m.Paths = append(m.Paths, strings.TrimSpace(p))
	}
	for name, dep := range f.Dependencies {
		if dep == nil {
			m.Dependencies[name] = nil
			continue
		}
		spec := &DependencySpec{
			Git:    dep.Git,
			Tag:    dep.Tag,
			Branch: dep.Branch,
			Rev:    dep.Rev,
			Path:   dep.Path,
		}
		spec.normalize()
		m.Dependencies[name] = spec
	}
	return m
}
