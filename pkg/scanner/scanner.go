// Package scanner implements a recursive, synchronous directory scan: walk
// a filesystem root bottom-up, hash every regular file, and build a
// directory-listing/object-store pair whose root digest is a deterministic
// function of the tree's contents.
package scanner

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/listing"
	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/store"
)

const (
	// copyBufferSize is the buffer size used when streaming file content
	// through the hasher.
	copyBufferSize = 32 * 1024
)

// Result is the output of a scan: the object store built while walking the
// tree, and a typed reference to the root directory listing.
type Result struct {
	Repository *store.Repository
	Root       objects.TypedReference
}

// IgnoreMatcher reports whether a slash-separated path relative to the scan
// root should be skipped entirely, as if it didn't exist. It is consulted
// for both files and directories; a matched directory and its entire subtree
// are skipped. A nil matcher disables the feature, which never changes the
// digest of a tree that doesn't use it.
type IgnoreMatcher func(relativePath string) bool

// LoadIgnoreFile reads a .blobtreeignore file at path, one doublestar glob
// pattern per line (blank lines and lines starting with '#' are skipped), and
// returns an IgnoreMatcher for it. If path doesn't exist, it returns a nil
// matcher and no error.
func LoadIgnoreFile(path string) (IgnoreMatcher, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var patterns []string
	for _, line := range splitLines(string(data)) {
		if line == "" || line[0] == '#' {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return func(relativePath string) bool {
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, relativePath); ok {
				return true
			}
		}
		return false
	}, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			line = trimCR(line)
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

// Scan walks root synchronously and returns the resulting repository and
// root reference. logger is used to report per-file hashing errors that are
// recovered by omitting the offending entry rather than failing the whole
// scan.
func Scan(root string, logger *logging.Logger, ignore IgnoreMatcher) (*Result, error) {
	s := &scanner{logger: logger, ignore: ignore, buffer: make([]byte, copyBufferSize)}
	repo, ref, err := s.scanDirectory(root, "")
	if err != nil {
		return nil, err
	}
	return &Result{Repository: repo, Root: ref}, nil
}

type scanner struct {
	logger *logging.Logger
	ignore IgnoreMatcher
	buffer []byte
}

// scanDirectory scans one directory level, recursing into subdirectories.
// relative is the slash-separated path from the scan root, used only for
// ignore-pattern matching and log messages.
func (s *scanner) scanDirectory(path, relative string) (*store.Repository, objects.TypedReference, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, objects.TypedReference{}, err
	}

	repo := store.NewRepository()
	l := listing.New()

	for _, entry := range entries {
		childRelative := entry.Name()
		if relative != "" {
			childRelative = relative + "/" + entry.Name()
		}
		if s.ignore != nil && s.ignore(childRelative) {
			continue
		}

		childPath := filepath.Join(path, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("skipping entry with unreadable metadata", childPath, err)
			continue
		}

		switch {
		case info.Mode().IsRegular():
			ref, err := s.hashFile(childPath, info.Size())
			if err != nil {
				s.logger.Warn("skipping file that could not be hashed", childPath, err)
				continue
			}
			if err := l.Set(entry.Name(), ref); err != nil {
				s.logger.Warn("skipping file with invalid name", childPath, err)
				continue
			}
			repo.Insert(digest.FromDigest(ref.Content), objects.NewFileSystemLocation(childPath, info.Size()))
		case info.IsDir():
			childRepo, childRef, err := s.scanDirectory(childPath, childRelative)
			if err != nil {
				return nil, objects.TypedReference{}, err
			}
			repo.Merge(childRepo)
			if err := l.Set(entry.Name(), childRef); err != nil {
				s.logger.Warn("skipping directory with invalid name", childPath, err)
				continue
			}
		default:
			// Other file types (symlinks, devices, sockets, ...) are ignored.
		}
	}

	serialized, err := l.Marshal()
	if err != nil {
		return nil, objects.TypedReference{}, err
	}
	d, _, err := digest.SumSHA256(bytes.NewReader(serialized))
	if err != nil {
		return nil, objects.TypedReference{}, err
	}
	repo.Insert(digest.FromDigest(d), objects.NewInMemoryLocation(serialized))

	return repo, objects.TypedReference{Type: objects.ContentTypeJSONv1, Content: d}, nil
}

// hashFile computes the SHA-256 digest of a regular file's content,
// verifying that the number of bytes hashed matches the size observed when
// the directory was listed. A file that shrinks or grows between stat and
// read is reported as a per-entry error, consistent with the server's own
// location-size-mismatch handling.
func (s *scanner) hashFile(path string, expectedSize int64) (objects.TypedReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return objects.TypedReference{}, err
	}
	defer f.Close()

	h := digest.NewSHA256Hasher()
	copied, err := io.CopyBuffer(h, f, s.buffer)
	if err != nil {
		return objects.TypedReference{}, err
	}
	if copied != expectedSize {
		return objects.TypedReference{}, fmt.Errorf("hashed size mismatch for %s: expected %d, got %d", path, expectedSize, copied)
	}
	return objects.TypedReference{Type: objects.ContentTypeBlob, Content: h.Sum()}, nil
}
