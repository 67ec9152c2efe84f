package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"madola/interpreter-go/pkg/ast"
	"madola/interpreter-go/pkg/interpreter"
)

// ErrModuleNotFound is wrapped by ResolveModule when no root holds the module.
var ErrModuleNotFound = errors.New("module not found")

// SourceParser turns MADOLA source text into a program tree. The tree-sitter
// adapter in pkg/parser satisfies it when the host links the grammar.
type SourceParser interface {
	ParseProgram(source []byte) (*ast.Program, error)
}

// SearchPath is a module root. A non-empty Namespace restricts the root to
// imports prefixed with it, which is how dependencies are addressed.
type SearchPath struct {
	Path      string
	Namespace string
}

// Loader resolves import names to files under its search paths. Module
// `a.b` maps to `a/b.<ext>`; a bare namespace maps to its `main.<ext>`.
type Loader struct {
	searchPaths []SearchPath
	parser      SourceParser
	logger      *slog.Logger
}

type LoaderOptions struct {
	SearchPaths []SearchPath
	// Parser enables .mda source modules. Without it only serialized trees and
	// starlark modules are importable.
	Parser SourceParser
	Logger *slog.Logger
}

var _ interpreter.ModuleResolver = (*Loader)(nil)

// NewLoader normalizes and de-duplicates the search paths. Earlier paths win
// when a module exists under several roots.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	unique := make([]SearchPath, 0, len(opts.SearchPaths))
	seen := make(map[SearchPath]struct{}, len(opts.SearchPaths))
	for _, sp := range opts.SearchPaths {
		if sp.Path == "" {
			continue
		}
		abs, err := filepath.Abs(sp.Path)
		if err != nil {
			return nil, fmt.Errorf("loader: resolve search path %q: %w", sp.Path, err)
		}
		key := SearchPath{Path: abs, Namespace: sp.Namespace}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	return &Loader{searchPaths: unique, parser: opts.Parser, logger: logger}, nil
}

// SearchPaths returns the normalized roots in lookup order.
func (l *Loader) SearchPaths() []SearchPath {
	return append([]SearchPath(nil), l.searchPaths...)
}

func (l *Loader) extensions() []string {
	exts := []string{".json", ".yaml", ".yml", ".star"}
	if l.parser != nil {
		exts = append([]string{".mda"}, exts...)
	}
	return exts
}

// ResolveModule implements interpreter.ModuleResolver.
func (l *Loader) ResolveModule(ctx context.Context, name string) (*interpreter.ModuleUnit, error) {
	path, err := l.Locate(name)
	if err != nil {
		return nil, err
	}
	l.logger.DebugContext(ctx, "loading module", "module", name, "path", path)
	return l.loadFile(ctx, name, path)
}

// Locate returns the file an import name resolves to.
func (l *Loader) Locate(name string) (string, error) {
	segments, err := moduleSegments(name)
	if err != nil {
		return "", err
	}
	var tried []string
	for _, root := range l.searchPaths {
		rel := segments
		if root.Namespace != "" {
			if segments[0] != root.Namespace {
				continue
			}
			rel = segments[1:]
			if len(rel) == 0 {
				rel = []string{"main"}
			}
		}
		base := filepath.Join(append([]string{root.Path}, rel...)...)
		for _, ext := range l.extensions() {
			candidate := base + ext
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		tried = append(tried, root.Path)
	}
	if len(tried) == 0 {
		return "", fmt.Errorf("loader: %w: %s (no search paths)", ErrModuleNotFound, name)
	}
	return "", fmt.Errorf("loader: %w: %s (searched %s)", ErrModuleNotFound, name, strings.Join(tried, ", "))
}

// LoadProgram reads an entry file in any supported format.
func (l *Loader) LoadProgram(path string) (*ast.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return l.parseProgram(path, source)
}

func (l *Loader) loadFile(ctx context.Context, name, path string) (*interpreter.ModuleUnit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".star") {
		natives, err := loadStarlarkModule(ctx, l.logger, name, path, source)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		return &interpreter.ModuleUnit{Name: name, Path: path, Natives: natives}, nil
	}
	program, err := l.parseProgram(path, source)
	if err != nil {
		return nil, err
	}
	return &interpreter.ModuleUnit{Name: name, Path: path, Program: program}, nil
}

func (l *Loader) parseProgram(path string, source []byte) (*ast.Program, error) {
	if strings.HasSuffix(path, ".mda") {
		if l.parser == nil {
			return nil, fmt.Errorf("loader: %s: no MADOLA parser configured", path)
		}
		program, err := l.parser.ParseProgram(source)
		if err != nil {
			return nil, fmt.Errorf("loader: parse %s: %w", path, err)
		}
		return program, nil
	}
	program, err := ast.DecodeFile(path, source)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return program, nil
}

func moduleSegments(name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("loader: empty module name")
	}
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if seg == "" || seg == ".." || strings.ContainsAny(seg, `/\`) {
			return nil, fmt.Errorf("loader: invalid module name %q", name)
		}
	}
	return segments, nil
}

// Environment carries the process settings that affect module lookup.
type Environment struct {
	// Home is the cache root for fetched dependencies (MADOLA_HOME).
	Home string
	// Path lists extra roots (MADOLA_PATH, os.PathListSeparator separated).
	Path []string
}

// EnvironmentFromOS reads MADOLA_HOME and MADOLA_PATH, defaulting the home to
// ~/.madola.
func EnvironmentFromOS() Environment {
	env := Environment{
		Home: strings.TrimSpace(os.Getenv("MADOLA_HOME")),
		Path: splitPathListEnv(os.Getenv("MADOLA_PATH")),
	}
	if env.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			env.Home = filepath.Join(home, ".madola")
		}
	}
	return env
}

// CollectSearchPaths orders roots as: the entry directory, the manifest's
// `paths`, its dependencies (namespaced by dependency name), then MADOLA_PATH.
// Git dependencies must already be recorded in lock.
func CollectSearchPaths(entryDir string, manifest *Manifest, lock *Lockfile, env Environment) ([]SearchPath, error) {
	var paths []SearchPath
	if entryDir != "" {
		paths = append(paths, SearchPath{Path: entryDir})
	}
	if manifest != nil {
		for _, dir := range manifest.SearchDirs() {
			paths = append(paths, SearchPath{Path: dir})
		}
		for _, name := range manifest.DependencyNames() {
			dir, err := DependencyDir(manifest, lock, env.Home, name)
			if err != nil {
				return nil, err
			}
			paths = append(paths, SearchPath{Path: dir, Namespace: name})
		}
	}
	for _, p := range env.Path {
		paths = append(paths, SearchPath{Path: p})
	}
	return paths, nil
}

// DependencyDir returns where a dependency's modules live: its path for local
// dependencies, or its checkout under the cache for git ones.
func DependencyDir(manifest *Manifest, lock *Lockfile, cacheDir, name string) (string, error) {
	spec := manifest.Dependencies[name]
	if spec == nil {
		return "", fmt.Errorf("loader: unknown dependency %s", name)
	}
	if !spec.IsGit() {
		return manifest.resolve(spec.Path), nil
	}
	pkg := lock.Find(name)
	if pkg == nil || pkg.Source != gitSource(spec) {
		return "", fmt.Errorf("loader: dependency %s is not installed (run `madola deps install`)", name)
	}
	return filepath.Join(cacheDir, "pkg", "src", sanitizeName(name), sanitizePathSegment(pkg.Version)), nil
}

func splitPathListEnv(value string) []string {
	if value == "" {
		return nil
	}
	raw := strings.Split(value, string(os.PathListSeparator))
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
