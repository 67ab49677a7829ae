package types

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// PathEntry is a transient handle on a location in the filesystem namespace.
// Two entries are equal when their cleaned path strings are equal.
type PathEntry struct {
	path string
}

// NewPathEntry returns an entry for p, cleaned with filepath.Clean
func NewPathEntry(p string) PathEntry {
	if p == "" {
		return PathEntry{}
	}
	return PathEntry{path: filepath.Clean(p)}
}

// String returns the full path
func (e PathEntry) String() string {
	return e.path
}

// IsZero reports whether e was never assigned a path
func (e PathEntry) IsZero() bool {
	return e.path == ""
}

// Name returns the final path segment
func (e PathEntry) Name() string {
	if e.path == "" {
		return ""
	}
	return filepath.Base(e.path)
}

// Parent returns the entry one level up
func (e PathEntry) Parent() PathEntry {
	if e.path == "" {
		return PathEntry{}
	}
	return PathEntry{path: filepath.Dir(e.path)}
}

// Join appends elements to the entry's path
func (e PathEntry) Join(elem ...string) PathEntry {
	return NewPathEntry(filepath.Join(append([]string{e.path}, elem...)...))
}

// WithName returns a sibling entry with the final segment replaced
func (e PathEntry) WithName(name string) PathEntry {
	return e.Parent().Join(name)
}

// Ext returns the extension of the final segment, from the last dot to the end.
// A dot at the start of the segment does not begin an extension, so ".bashrc"
// has none.
func (e PathEntry) Ext() string {
	_, ext := SplitExt(e.Name())
	return ext
}

// Stem returns the final segment without its extension
func (e PathEntry) Stem() string {
	stem, _ := SplitExt(e.Name())
	return stem
}

// Equal reports whether both entries name the same normalized path
func (e PathEntry) Equal(other PathEntry) bool {
	return e.path == other.path
}

// SplitExt splits a single path segment into stem and extension
func SplitExt(name string) (stem, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// EntryKind is the result of classifying a child during traversal
type EntryKind int

const (
	KindUnknown EntryKind = iota
	KindFile
	KindDir
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// ConflictCandidate is a filename decomposed into the "(Copy N)" naming grammar:
//
//	name (" (Copy" [" " N] ")")? extension?
//
// HasCopy reports whether the marker is present; CopyCount is zero when the marker
// carries no number.
type ConflictCandidate struct {
	BaseName  string `json:"base_name"`
	HasCopy   bool   `json:"has_copy"`
	CopyCount int    `json:"copy_count,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// String serializes the candidate back into a filename
func (c ConflictCandidate) String() string {
	if !c.HasCopy {
		return c.BaseName + c.Extension
	}
	if c.CopyCount == 0 {
		return c.BaseName + " (Copy)" + c.Extension
	}
	return c.BaseName + " (Copy " + strconv.Itoa(c.CopyCount) + ")" + c.Extension
}

// Diagnostic is the non-fatal report emitted for a traversal fault when the
// walk runs in warn mode
type Diagnostic struct {
	Path string `json:"path"`
	Op   string `json:"op"`
	Err  error  `json:"-"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("unable to %s '%s': %v", d.Op, d.Path, d.Err)
}

// ConflictType classifies an existing destination
type ConflictType string

const (
	ConflictFileExists      ConflictType = "file_exists"
	ConflictDirectoryExists ConflictType = "directory_exists"
)

// ConflictInfo describes a destination that is already occupied
type ConflictInfo struct {
	SourcePath   PathEntry    `json:"source_path"`
	TargetPath   PathEntry    `json:"target_path"`
	ConflictType ConflictType `json:"conflict_type"`
	SourceKind   EntryKind    `json:"source_kind"`
	TargetKind   EntryKind    `json:"target_kind"`
}
