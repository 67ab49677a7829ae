package common

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"strings"
)

// PathUtils provides path manipulation utilities used across filesystem packages
type PathUtils struct{}

// NewPathUtils creates a new PathUtils instance
func NewPathUtils() *PathUtils {
	return &PathUtils{}
}

// NormalizePath cleans a path and converts it to slash form so it can be
// matched against gitignore rules
func (pu *PathUtils) NormalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// IsSubpath checks if child is strictly below parent
func (pu *PathUtils) IsSubpath(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// GetRelativePath returns the slash-separated path of target relative to base
func (pu *PathUtils) GetRelativePath(base, target string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// FileUtils provides file content utilities used across packages
type FileUtils struct{}

// NewFileUtils creates a new FileUtils instance
func NewFileUtils() *FileUtils {
	return &FileUtils{}
}

// NewHasher returns a hash for the named algorithm
func (fu *FileUtils) NewHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}
}

// CalculateChecksum reads r to the end and returns its digest
func (fu *FileUtils) CalculateChecksum(r io.Reader, algorithm string) ([]byte, error) {
	hasher, err := fu.NewHasher(algorithm)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(hasher, r); err != nil {
		return nil, fmt.Errorf("failed to calculate %s checksum: %w", algorithm, err)
	}

	return hasher.Sum(nil), nil
}
