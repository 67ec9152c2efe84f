package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Installer resolves manifest dependencies into directories under the cache,
// cloning git dependencies and recording their commits in a lockfile.
type Installer struct {
	manifest *Manifest
	cacheDir string
	logger   *slog.Logger
}

func NewInstaller(manifest *Manifest, cacheDir string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{manifest: manifest, cacheDir: cacheDir, logger: logger}
}

// Install brings every dependency up to the lockfile, filling in entries that
// are missing or whose source changed. It reports whether lock was modified.
func (in *Installer) Install(ctx context.Context, lock *Lockfile) (bool, error) {
	if in.manifest == nil {
		return false, errors.New("install: nil manifest")
	}
	if lock == nil {
		return false, errors.New("install: nil lockfile")
	}
	changed := false
	names := in.manifest.DependencyNames()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		spec := in.manifest.Dependencies[name]
		pkg, err := in.installOne(ctx, name, spec, lock.Find(name))
		if err != nil {
			return changed, fmt.Errorf("dependency %q: %w", name, err)
		}
		if lock.Put(pkg) {
			changed = true
		}
	}
	if lock.Prune(names) {
		changed = true
	}
	return changed, nil
}

func (in *Installer) installOne(ctx context.Context, name string, spec *DependencySpec, locked *LockedPackage) (*LockedPackage, error) {
	if !spec.IsGit() {
		dir := in.manifest.resolve(spec.Path)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("path %s is not a directory", dir)
		}
		return &LockedPackage{Name: sanitizeName(name), Version: "path", Source: "path:" + spec.Path}, nil
	}

	source := gitSource(spec)
	if locked != nil && locked.Source == source && locked.Commit != "" {
		dir := filepath.Join(in.cacheDir, "pkg", "src", sanitizeName(name), sanitizePathSegment(locked.Version))
		if _, err := os.Stat(dir); err == nil {
			in.logger.DebugContext(ctx, "dependency cached", "name", name, "version", locked.Version)
			return locked, nil
		}
		// re-fetch the pinned commit rather than re-resolving a moving branch
		spec = &DependencySpec{Git: spec.Git, Rev: locked.Commit}
		version, commit, err := ensureGitCheckout(ctx, in.checkoutBase(name), spec)
		if err != nil {
			return nil, err
		}
		if commit != locked.Commit {
			return nil, fmt.Errorf("locked commit %s resolved to %s", locked.Commit, commit)
		}
		in.logger.InfoContext(ctx, "dependency restored", "name", name, "commit", commit)
		// keep the descriptor-qualified version recorded in the lockfile
		if version != locked.Version {
			if err := os.Rename(filepath.Join(in.checkoutBase(name), sanitizePathSegment(version)), filepath.Join(in.checkoutBase(name), sanitizePathSegment(locked.Version))); err != nil {
				return nil, err
			}
		}
		return locked, nil
	}

	version, commit, err := ensureGitCheckout(ctx, in.checkoutBase(name), spec)
	if err != nil {
		return nil, err
	}
	in.logger.InfoContext(ctx, "dependency fetched", "name", name, "url", spec.Git, "version", version, "commit", commit)
	return &LockedPackage{
		Name:    sanitizeName(name),
		Version: version,
		Source:  source,
		Commit:  commit,
	}, nil
}

func (in *Installer) checkoutBase(name string) string {
	return filepath.Join(in.cacheDir, "pkg", "src", sanitizeName(name))
}

// gitSource identifies what the manifest asked for, so a changed pin is
// noticed even when the cache still holds an older checkout.
func gitSource(spec *DependencySpec) string {
	return fmt.Sprintf("git+%s#%s", strings.TrimSpace(spec.Git), spec.Descriptor())
}

func ensureGitCheckout(ctx context.Context, baseDir string, spec *DependencySpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}

	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		existing := filepath.Join(baseDir, sanitizePathSegment(rev))
		if _, err := os.Stat(existing); err == nil {
			return rev, rev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:               spec.Git,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevisionFromSpec(spec *DependencySpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/remotes/origin/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git dependencies require rev, tag, or branch")
}
