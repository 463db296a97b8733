package service

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Igor555433/evia-ecosystem/model"
)

// OutputSink receives a run's artifacts by name and finalizes them into a
// single archive. Each run owns exactly one sink; isolation between
// concurrent runs comes from namespacing, not locking.
type OutputSink interface {
	// WriteArtifact persists one named artifact. Names are flat; artifacts
	// are never rewritten once written.
	WriteArtifact(name string, data []byte) error
	// Finalize bundles every artifact written so far into a deflate
	// archive with the given name, excluding the archive itself, entries
	// in lexicographic order. Returns the archive location.
	Finalize(archiveName string) (string, error)
	// Location returns the sink's output location.
	Location() string
}

// DirSink writes artifacts into one directory per run.
type DirSink struct {
	dir string
}

func NewDirSink(root, runID string) (*DirSink, error) {
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) Location() string {
	return s.dir
}

func (s *DirSink) WriteArtifact(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

func (s *DirSink) Finalize(archiveName string) (string, error) {
	// os.ReadDir returns entries sorted by name
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("list run directory: %w", err)
	}

	zipPath := filepath.Join(s.dir, archiveName)
	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("read artifact %s: %w", entry.Name(), err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   entry.Name(),
			Method: zip.Deflate,
		})
		if err != nil {
			return "", fmt.Errorf("add archive entry %s: %w", entry.Name(), err)
		}
		if _, err := w.Write(data); err != nil {
			return "", fmt.Errorf("write archive entry %s: %w", entry.Name(), err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}

	return zipPath, nil
}

// StageArtifactTag converts a stage identifier into a filesystem-safe
// name component ("3.5" becomes "3_5").
func StageArtifactTag(stage string) string {
	return strings.ReplaceAll(stage, ".", "_")
}

// PersistStages writes each stage's rendered document and structured
// metadata as two named artifacts, in execution order.
func PersistStages(sink OutputSink, outputs []model.StageOutput) error {
	for _, out := range outputs {
		tag := StageArtifactTag(out.Stage)
		if err := sink.WriteArtifact("S"+tag+".md", []byte(out.Markdown)); err != nil {
			return err
		}
		meta, err := marshalIndent(out.Data)
		if err != nil {
			return fmt.Errorf("encode stage %s metadata: %w", out.Stage, err)
		}
		if err := sink.WriteArtifact("S"+tag+".json", []byte(meta)); err != nil {
			return err
		}
	}
	return nil
}
