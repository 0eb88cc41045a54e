package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/quaynav/quay/internal/model"
)

// AppVersion is set at build time and recorded in every archive manifest
var AppVersion = "dev"

// ManifestName is the self-describing metadata entry at the archive root
const ManifestName = "backup-info.json"

// timestampLayout gives second resolution and stays filename-safe
const timestampLayout = "2006-01-02T15-04-05"

// Manifest records an archive's provenance inside the archive itself
type Manifest struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
}

// Build streams the source paths into a single zip archive named
// {prefix}-{timestamp}.zip in the store directory. Missing sources are
// skipped; a name collision or any write error fails the build, and a
// partially written file is removed.
func (s *Store) Build(prefix, description string, sources []string) (model.Archive, error) {
	name := fmt.Sprintf("%s-%s.zip", prefix, time.Now().UTC().Format(timestampLayout))
	path := filepath.Join(s.dir, name)

	if _, err := os.Stat(path); err == nil {
		return model.Archive{}, fmt.Errorf("archive %s already exists", name)
	} else if !os.IsNotExist(err) {
		return model.Archive{}, fmt.Errorf("check archive name: %w", err)
	}

	if err := s.writeArchive(path, prefix, description, sources); err != nil {
		os.Remove(path)
		return model.Archive{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		os.Remove(path)
		return model.Archive{}, fmt.Errorf("stat archive: %w", err)
	}

	return model.Archive{
		Name:       name,
		Path:       path,
		Prefix:     prefix,
		SizeBytes:  info.Size(),
		SizeMB:     roundMB(info.Size()),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}, nil
}

func (s *Store) writeArchive(path, prefix, description string, sources []string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("finalize archive: %w", cerr)
		}
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	for _, src := range sources {
		info, serr := os.Stat(src)
		if os.IsNotExist(serr) {
			// A host with no uploads yet still produces a valid archive
			continue
		}
		if serr != nil {
			return fmt.Errorf("stat source %s: %w", src, serr)
		}

		base := filepath.Base(src)
		if info.IsDir() {
			if err := addDir(zw, src, base); err != nil {
				return err
			}
		} else {
			if err := addFile(zw, src, base, info); err != nil {
				return err
			}
		}
	}

	return addManifest(zw, prefix, description)
}

func addDir(zw *zip.Writer, dir, base string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return fmt.Errorf("walk %s: %w", p, werr)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		entry := base + "/" + filepath.ToSlash(rel)
		return addFile(zw, p, entry, info)
	})
}

func addFile(zw *zip.Writer, src, entry string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", src, err)
	}
	header.Name = entry
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", entry, err)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write entry %s: %w", entry, err)
	}
	return nil
}

func addManifest(zw *zip.Writer, prefix, description string) error {
	manifest := Manifest{
		Timestamp:   time.Now().UTC(),
		Type:        prefix,
		Version:     AppVersion,
		Description: description,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	w, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func roundMB(bytes int64) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

// ValidateName rejects names that are not plain zip file names. Used on
// every operator-supplied archive name before it touches the filesystem.
func ValidateName(name string) error {
	if name == "" || !strings.HasSuffix(name, ".zip") {
		return fmt.Errorf("invalid archive name %q", name)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid archive name %q", name)
	}
	return nil
}
