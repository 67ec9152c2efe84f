package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"madola/interpreter-go/pkg/ast"
)

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(rel)
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "MADOLA CLI",
			Email: "madola@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func TestInstallerGitDependency(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	writeFile(t, filepath.Join(repo, "main.json"), constantsJSON)
	writeFile(t, filepath.Join(repo, "beams.star"), `
def moment(f, l):
    return f * l
`)
	rev := initGitRepo(t, repo)

	appDir := filepath.Join(root, "app")
	manifestPath := filepath.Join(appDir, ManifestName)
	writeFile(t, manifestPath, `
name: app
dependencies:
  structural:
    git: `+repo+`
    rev: `+rev+`
`)
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	cacheDir := filepath.Join(root, "cache")
	installer := NewInstaller(manifest, cacheDir, nil)
	lock := NewLockfile(manifest.Name, "test")
	changed, err := installer.Install(context.Background(), lock)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile change for git dependency")
	}
	pkg := lock.Find("structural")
	if pkg == nil {
		t.Fatalf("missing structural entry: %#v", lock.Packages)
	}
	if pkg.Commit != rev || pkg.Version != rev {
		t.Fatalf("unexpected locked package %#v", pkg)
	}
	cached := filepath.Join(cacheDir, "pkg", "src", "structural", rev)
	if _, err := os.Stat(filepath.Join(cached, "beams.star")); err != nil {
		t.Fatalf("expected cached checkout at %s: %v", cached, err)
	}

	changed, err = installer.Install(context.Background(), lock)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if changed {
		t.Fatalf("expected second install to be a no-op")
	}

	lockPath := filepath.Join(appDir, LockfileName)
	if err := WriteLockfile(lock, lockPath); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	reloaded, err := LoadLockfile(lockPath)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if got := reloaded.Find("structural"); got == nil || *got != *pkg {
		t.Fatalf("lockfile round trip lost entry: %#v", got)
	}

	paths, err := CollectSearchPaths(appDir, manifest, reloaded, Environment{Home: cacheDir})
	if err != nil {
		t.Fatalf("CollectSearchPaths: %v", err)
	}
	loader, err := NewLoader(LoaderOptions{SearchPaths: paths})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	res := runWith(t, loader,
		ast.Import("structural", ast.ImportAs("g", "")),
		ast.Import("structural.beams"),
		ast.Print(ast.ID("g"), ast.Call("moment", ast.Num(2), ast.Num(5))),
	)
	expectLines(t, res, "9.81 10")
}

func TestInstallerBranchDependencyPinsCommit(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	writeFile(t, filepath.Join(repo, "main.json"), constantsJSON)
	rev := initGitRepo(t, repo)

	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appDir, ManifestName), `
name: app
dependencies:
  consts:
    git: `+repo+`
    branch: master
`)
	manifest, err := LoadManifest(filepath.Join(appDir, ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	cacheDir := filepath.Join(root, "cache")
	lock := NewLockfile(manifest.Name, "test")
	if _, err := NewInstaller(manifest, cacheDir, nil).Install(context.Background(), lock); err != nil {
		t.Fatalf("Install: %v", err)
	}
	pkg := lock.Find("consts")
	if pkg == nil || pkg.Commit != rev || pkg.Version != "master@"+rev {
		t.Fatalf("unexpected locked package %#v", pkg)
	}
	if !strings.HasPrefix(pkg.Source, "git+") || !strings.HasSuffix(pkg.Source, "#master") {
		t.Fatalf("unexpected source %q", pkg.Source)
	}

	// a wiped cache is restored at the locked commit
	if err := os.RemoveAll(filepath.Join(cacheDir, "pkg")); err != nil {
		t.Fatalf("remove cache: %v", err)
	}
	changed, err := NewInstaller(manifest, cacheDir, nil).Install(context.Background(), lock)
	if err != nil {
		t.Fatalf("restore Install: %v", err)
	}
	if changed {
		t.Fatalf("restoring a locked commit must not change the lockfile")
	}
	dir, err := DependencyDir(manifest, lock, cacheDir, "consts")
	if err != nil {
		t.Fatalf("DependencyDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "main.json")); err != nil {
		t.Fatalf("expected restored checkout at %s: %v", dir, err)
	}
}

func TestInstallerPathDependencyAndPrune(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "units", "si.json"), constantsJSON)
	writeFile(t, filepath.Join(root, "app", ManifestName), `
name: app
dependencies:
  units:
    path: ../units
`)
	manifest, err := LoadManifest(filepath.Join(root, "app", ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	lock := NewLockfile("app", "test")
	lock.Put(&LockedPackage{Name: "stale", Version: "v0", Source: "path:../stale"})
	changed, err := NewInstaller(manifest, filepath.Join(root, "cache"), nil).Install(context.Background(), lock)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !changed || lock.Find("stale") != nil {
		t.Fatalf("expected stale entry to be pruned: %#v", lock.Packages)
	}
	if pkg := lock.Find("units"); pkg == nil || pkg.Source != "path:../units" || pkg.Commit != "" {
		t.Fatalf("unexpected path entry %#v", pkg)
	}

	writeFile(t, filepath.Join(root, "app", ManifestName), `
name: app
dependencies:
  units:
    path: ../missing
`)
	manifest, err = LoadManifest(filepath.Join(root, "app", ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if _, err := NewInstaller(manifest, filepath.Join(root, "cache"), nil).Install(context.Background(), lock); err == nil {
		t.Fatalf("expected missing path dependency to fail")
	}
}

func TestInstallerRejectsUnknownRevision(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	writeFile(t, filepath.Join(repo, "main.json"), constantsJSON)
	initGitRepo(t, repo)
	writeFile(t, filepath.Join(root, "app", ManifestName), `
name: app
dependencies:
  consts:
    git: `+repo+`
    tag: v9
`)
	manifest, err := LoadManifest(filepath.Join(root, "app", ManifestName))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	_, err = NewInstaller(manifest, filepath.Join(root, "cache"), nil).Install(context.Background(), NewLockfile("app", "test"))
	if err == nil || !strings.Contains(err.Error(), "resolve revision") {
		t.Fatalf("expected unresolved tag error, got %v", err)
	}
}
