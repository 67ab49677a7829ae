package backend

import (
	"io"
	"os"
	"syscall"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/go-git/go-billy/v5"
)

// BillyAccessor adapts a go-billy filesystem. billy.Filesystem always carries
// the Symlink interface, so links are always inspectable.
type BillyAccessor struct {
	bfs billy.Filesystem
}

// NewBillyAccessor wraps bfs
func NewBillyAccessor(bfs billy.Filesystem) *BillyAccessor {
	return &BillyAccessor{bfs: bfs}
}

// Unwrap returns the underlying billy filesystem
func (b *BillyAccessor) Unwrap() billy.Filesystem {
	return b.bfs
}

var pathUtils = common.NewPathUtils()

// billy paths are always slash separated
func billyPath(entry types.PathEntry) string {
	return pathUtils.NormalizePath(entry.String())
}

// ListChildren returns the directory's children; billy reads and closes the
// directory inside ReadDir
func (b *BillyAccessor) ListChildren(entry types.PathEntry) ([]types.PathEntry, error) {
	// memfs lists a regular file as an empty directory
	info, err := b.bfs.Stat(billyPath(entry))
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: entry.String(), Err: syscall.ENOTDIR}
	}

	infos, err := b.bfs.ReadDir(billyPath(entry))
	if err != nil {
		return nil, err
	}

	children := make([]types.PathEntry, 0, len(infos))
	for _, info := range infos {
		children = append(children, entry.Join(info.Name()))
	}
	return children, nil
}

// IsDir reports whether entry is a directory. A missing entry is not an error.
func (b *BillyAccessor) IsDir(entry types.PathEntry) (bool, error) {
	info, err := b.bfs.Stat(billyPath(entry))
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// IsFile reports whether entry is a regular file. A missing entry is not an error.
func (b *BillyAccessor) IsFile(entry types.PathEntry) (bool, error) {
	info, err := b.bfs.Stat(billyPath(entry))
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Exists reports whether anything occupies entry; dangling links count
func (b *BillyAccessor) Exists(entry types.PathEntry) (bool, error) {
	_, err := b.bfs.Lstat(billyPath(entry))
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

// Stringify returns the entry's full path
func (b *BillyAccessor) Stringify(entry types.PathEntry) string {
	return entry.String()
}

// Open opens a file for reading
func (b *BillyAccessor) Open(entry types.PathEntry) (io.ReadCloser, error) {
	return b.bfs.Open(billyPath(entry))
}

// IsLink reports whether entry itself is a symbolic link
func (b *BillyAccessor) IsLink(entry types.PathEntry) (bool, error) {
	info, err := b.bfs.Lstat(billyPath(entry))
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// ReadLink returns the link target resolved against the link's parent
func (b *BillyAccessor) ReadLink(entry types.PathEntry) (types.PathEntry, error) {
	target, err := b.bfs.Readlink(billyPath(entry))
	if err != nil {
		return types.PathEntry{}, err
	}
	return resolveLinkTarget(entry, target), nil
}

var (
	_ interfaces.Accessor       = (*BillyAccessor)(nil)
	_ interfaces.OpenCapability = (*BillyAccessor)(nil)
	_ interfaces.LinkCapability = (*BillyAccessor)(nil)
)
