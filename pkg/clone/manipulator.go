package clone

import (
	"io"
	"os"
	"path/filepath"
)

// DirectoryManipulator is the write-side capability the clone algorithm
// needs for one destination directory: create a regular file by name, or
// descend into a subdirectory (creating it first).
type DirectoryManipulator interface {
	CreateFile(name string) (io.WriteCloser, error)
	Subdirectory(name string) (DirectoryManipulator, error)
}

// FileSystemManipulator implements DirectoryManipulator directly against a
// real directory on disk.
type FileSystemManipulator struct {
	path string
}

// NewFileSystemManipulator ensures path exists (creating it and any missing
// parents) and returns a manipulator rooted there.
func NewFileSystemManipulator(path string) (*FileSystemManipulator, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &FileSystemManipulator{path: path}, nil
}

// CreateFile creates (or truncates) a regular file named name in the
// manipulator's directory.
func (m *FileSystemManipulator) CreateFile(name string) (io.WriteCloser, error) {
	return os.Create(filepath.Join(m.path, name))
}

// Subdirectory creates a directory named name and returns a manipulator for
// it.
func (m *FileSystemManipulator) Subdirectory(name string) (DirectoryManipulator, error) {
	sub := filepath.Join(m.path, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return nil, err
	}
	return &FileSystemManipulator{path: sub}, nil
}
