package packs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/sanitize"
	"github.com/fyrsmithlabs/engramd/internal/store"
)

// InstallStatus is the outcome of an install.
type InstallStatus string

const (
	StatusInstalled      InstallStatus = "installed"
	StatusUpgraded       InstallStatus = "upgraded"
	StatusAlreadyCurrent InstallStatus = "already_current"
)

// InstallResult reports an install.
type InstallResult struct {
	PackID          string        `json:"pack_id"`
	Version         string        `json:"version"`
	PreviousVersion string        `json:"previous_version,omitempty"`
	Status          InstallStatus `json:"status"`
	Path            string        `json:"path"`
	Checksum        string        `json:"checksum,omitempty"`
	Creator         string        `json:"creator,omitempty"`
	Trusted         bool          `json:"trusted"`
}

// Install copies a pack from a local directory or a git URL into the packs
// root. An installed pack with the same version is left untouched; a
// different version is replaced.
func (m *Manager) Install(ctx context.Context, source string) (*InstallResult, error) {
	source = strings.TrimSpace(source)
	srcDir, cleanup, err := m.resolveSource(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	manifest, err := store.ReadManifest(srcDir)
	if err != nil {
		return nil, err
	}
	id := manifest.Datacore.ID
	if err := sanitize.ValidatePackID(id); err != nil {
		return nil, err
	}

	dest, err := sanitize.ValidatePath(filepath.Join(m.packs.Path(), id), m.packs.Path())
	if err != nil {
		return nil, err
	}

	result := &InstallResult{
		PackID:  id,
		Version: manifest.Version,
		Status:  StatusInstalled,
		Path:    dest,
		Creator: manifest.Creator,
		Trusted: m.Trusted(manifest.Creator),
	}

	if existing, err := store.ReadManifest(result.Path); err == nil {
		if existing.Version == manifest.Version {
			result.Status = StatusAlreadyCurrent
			result.Checksum, _ = readRecordedChecksum(result.Path)
			return result, nil
		}
		result.Status = StatusUpgraded
		result.PreviousVersion = existing.Version
	}

	if err := m.replaceDir(srcDir, result.Path); err != nil {
		return nil, err
	}

	sum, err := store.Checksum(result.Path)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(result.Path, ChecksumFile), []byte(sum+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to record checksum: %w", err)
	}
	result.Checksum = sum

	m.logger.Info("pack installed",
		zap.String("pack", id),
		zap.String("version", manifest.Version),
		zap.String("status", string(result.Status)),
		zap.Bool("trusted", result.Trusted))
	return result, nil
}

// resolveSource returns a local directory holding the pack and a cleanup
// function for any temporary clone.
func (m *Manager) resolveSource(ctx context.Context, source string) (string, func(), error) {
	noop := func() {}
	if source == "" {
		return "", noop, sanitize.ErrEmptyPath
	}
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		return source, noop, nil
	}
	if !IsGitURL(source) {
		return "", noop, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	tmp, err := os.MkdirTemp("", "engramd-pack-*")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmp) }
	if err := m.fetch(ctx, source, tmp); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	return tmp, cleanup, nil
}

// IsGitURL reports whether source looks like a clonable git remote.
func IsGitURL(source string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "file://", "git@"} {
		if strings.HasPrefix(source, prefix) {
			return true
		}
	}
	return strings.HasSuffix(source, ".git")
}

// cloneShallow fetches the default branch head of url into dir.
func cloneShallow(ctx context.Context, url, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	return err
}

// replaceDir copies src into a staging directory next to dest and swaps it
// into place.
func (m *Manager) replaceDir(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create packs directory: %w", err)
	}
	staging := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp")
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	if err := copyTree(src, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to copy pack: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to remove previous version: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to move pack into place: %w", err)
	}
	return nil
}

// copyTree copies regular files and directories, skipping .git and the
// recorded checksum of the source.
func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		target := filepath.Join(dest, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type().IsRegular() && rel != ChecksumFile:
			return copyFile(path, target)
		}
		return nil
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readRecordedChecksum(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChecksumFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoChecksum
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// VerifyResult compares the recorded and current checksums of a pack.
type VerifyResult struct {
	PackID   string `json:"pack_id"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Valid    bool   `json:"valid"`
}

// Verify recomputes the checksum of an installed pack and compares it with
// the one recorded at install.
func (m *Manager) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	if err := sanitize.ValidatePackID(id); err != nil {
		return nil, err
	}
	dir := filepath.Join(m.packs.Path(), id)
	if _, err := os.Stat(filepath.Join(dir, store.ManifestFile)); err != nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotInstalled)
	}
	expected, err := readRecordedChecksum(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	actual, err := store.Checksum(dir)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{PackID: id, Expected: expected, Actual: actual, Valid: expected == actual}, nil
}
