package interfaces

import (
	"context"
	"io"
	"iter"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/options"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"
)

// Accessor is the filesystem-access collaborator every backend MUST provide.
// Optional operations live in separate capability interfaces below and are
// discovered with the Query helpers, never assumed.
type Accessor interface {
	// ListChildren returns the direct children of a directory in the backend's
	// enumeration order. Any handle opened to produce the listing is closed
	// before ListChildren returns.
	ListChildren(entry types.PathEntry) ([]types.PathEntry, error)

	// IsDir reports whether entry is a directory, following links.
	IsDir(entry types.PathEntry) (bool, error)

	// IsFile reports whether entry is a regular file, following links.
	IsFile(entry types.PathEntry) (bool, error)

	// Exists reports whether anything exists at entry. A false result with a
	// non-nil error means existence could not be determined.
	Exists(entry types.PathEntry) (bool, error)

	// Stringify returns the full path representation used for pattern matching.
	Stringify(entry types.PathEntry) string
}

// LinkCapability is implemented by accessors that can inspect symbolic links
// (typically local filesystems only).
type LinkCapability interface {
	// IsLink reports whether entry itself is a symbolic link.
	IsLink(entry types.PathEntry) (bool, error)

	// ReadLink returns the link target. Relative targets are resolved against
	// the link's parent.
	ReadLink(entry types.PathEntry) (types.PathEntry, error)
}

// OpenCapability is implemented by accessors that can stream file contents.
type OpenCapability interface {
	Open(entry types.PathEntry) (io.ReadCloser, error)
}

// QueryLinks returns the link capability of a, if it has one
func QueryLinks(a Accessor) (LinkCapability, bool) {
	lc, ok := a.(LinkCapability)
	return lc, ok
}

// QueryOpen returns the open capability of a, if it has one
func QueryOpen(a Accessor) (OpenCapability, bool) {
	oc, ok := a.(OpenCapability)
	return oc, ok
}

// DiagnosticSink receives the non-fatal reports produced in warn mode
type DiagnosticSink interface {
	Warn(d types.Diagnostic)
}

// Walker defines lazy depth-first traversal
type Walker interface {
	Walk(root types.PathEntry, mode options.WalkMode, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error]
}

// ExistsFunc is the existence predicate consulted by name resolution
type ExistsFunc func(entry types.PathEntry) (bool, error)

// ConflictResolver defines unique-name generation and conflict strategies
type ConflictResolver interface {
	NextAvailableName(candidate types.PathEntry, exists ExistsFunc) (types.PathEntry, error)
	ResolveConflict(ctx context.Context, src, dst types.PathEntry, strategy options.ConflictStrategy) (types.PathEntry, error)
	DetectConflict(ctx context.Context, src, dst types.PathEntry) (*types.ConflictInfo, error)
}
