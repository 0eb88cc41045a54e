package restore

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/quaynav/quay/internal/archive"
	"github.com/quaynav/quay/internal/logging"
)

// ErrExtraction marks archives that could not be unpacked, either
// because they are corrupt or because an entry escapes the staging
// directory.
var ErrExtraction = errors.New("archive extraction failed")

// Engine restores configured data paths from a backup archive. The
// archive is first unpacked into a hidden staging directory next to
// the backup pool; only when extraction succeeds in full are the live
// paths replaced, so a corrupt archive never leaves data half written.
type Engine struct {
	archives *archive.Store
	sources  []string
	log      *logging.ComponentLogger
}

func NewEngine(archives *archive.Store, sources []string, log *logging.ComponentLogger) *Engine {
	return &Engine{archives: archives, sources: sources, log: log}
}

// Restore unpacks the named archive from the local pool and replaces
// every configured source path found in it. It returns the paths that
// were replaced. Sources absent from the archive are left untouched.
func (e *Engine) Restore(name string) ([]string, error) {
	arch, err := e.archives.Get(name)
	if err != nil {
		return nil, err
	}
	return e.RestorePath(arch.Path)
}

// RestorePath is Restore for an archive outside the pool, such as a
// freshly downloaded remote copy.
func (e *Engine) RestorePath(path string) ([]string, error) {
	staging := filepath.Join(e.archives.Dir(), ".restore-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o700); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extract(path, staging); err != nil {
		return nil, err
	}
	return e.apply(staging, path)
}

// extract unpacks every archive entry below dest, refusing entries that
// resolve outside it.
func extract(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrExtraction, filepath.Base(path), err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == archive.ManifestName || strings.HasSuffix(f.Name, "/") {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: entry %q escapes staging directory", ErrExtraction, f.Name)
		}
		if err := extractEntry(f, target); err != nil {
			return fmt.Errorf("%w: entry %q: %v", ErrExtraction, f.Name, err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// apply swaps every staged top-level entry over the matching configured
// source path.
func (e *Engine) apply(staging, archivePath string) ([]string, error) {
	var restored []string
	for _, src := range e.sources {
		staged := filepath.Join(staging, filepath.Base(src))
		info, err := os.Stat(staged)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("stat staged %s: %w", filepath.Base(src), err)
		}

		if info.IsDir() {
			if err := os.RemoveAll(src); err != nil {
				return restored, fmt.Errorf("clear %s: %w", src, err)
			}
			if err := copyTree(staged, src); err != nil {
				return restored, fmt.Errorf("restore %s: %w", src, err)
			}
		} else {
			if err := copyFile(staged, src, info.Mode().Perm()); err != nil {
				return restored, fmt.Errorf("restore %s: %w", src, err)
			}
		}
		restored = append(restored, src)
		e.log.Info("restored %s from %s", src, filepath.Base(archivePath))
	}

	if len(restored) == 0 {
		e.log.Warn("archive %s contained none of the configured data paths", filepath.Base(archivePath))
	}
	return restored, nil
}

func copyTree(srcDir, destDir string) error {
	return filepath.WalkDir(srcDir, func(p string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(p, target, info.Mode().Perm())
	})
}

func copyFile(src, dest string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
