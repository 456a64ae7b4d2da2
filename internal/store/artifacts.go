package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskArtifacts stores rendered conversion artifacts as files under a
// single directory. It satisfies core.ArtifactStore.
type DiskArtifacts struct {
	dir string
}

// NewDiskArtifacts creates the artifact directory if needed.
func NewDiskArtifacts(dir string) (*DiskArtifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &DiskArtifacts{dir: dir}, nil
}

// Write persists an artifact and returns its path.
// The name is reduced to its base to keep writes inside the directory.
func (a *DiskArtifacts) Write(name string, data []byte) (string, error) {
	path := filepath.Join(a.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return path, nil
}

// Path resolves a previously written artifact for download.
func (a *DiskArtifacts) Path(name string) (string, error) {
	path := filepath.Join(a.dir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("artifact %s: %w", name, err)
	}
	return path, nil
}
