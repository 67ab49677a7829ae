package backend

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/spf13/afero"
)

// AferoAccessor adapts an afero.Fs to the accessor contract
type AferoAccessor struct {
	fs afero.Fs
}

// aferoLinkAccessor adds link inspection for filesystems that support it
// (afero.OsFs, afero.BasePathFs over OsFs, ...)
type aferoLinkAccessor struct {
	*AferoAccessor
	lstater afero.Lstater
	reader  afero.LinkReader
}

// NewAferoAccessor wraps fsys. The result implements interfaces.LinkCapability
// only when fsys can both lstat and read links; use interfaces.QueryLinks to find out.
func NewAferoAccessor(fsys afero.Fs) interfaces.Accessor {
	base := &AferoAccessor{fs: fsys}

	lstater, canLstat := fsys.(afero.Lstater)
	reader, canRead := fsys.(afero.LinkReader)
	if canLstat && canRead {
		return &aferoLinkAccessor{AferoAccessor: base, lstater: lstater, reader: reader}
	}
	return base
}

// Fs returns the wrapped filesystem
func (a *AferoAccessor) Fs() afero.Fs {
	return a.fs
}

// ListChildren reads every name in the directory and closes it before returning
func (a *AferoAccessor) ListChildren(entry types.PathEntry) (children []types.PathEntry, err error) {
	dir, err := a.fs.Open(entry.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := dir.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close directory %s: %w", entry, cerr)
		}
	}()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	children = make([]types.PathEntry, 0, len(names))
	for _, name := range names {
		children = append(children, entry.Join(name))
	}
	return children, nil
}

// IsDir reports whether entry is a directory. A missing entry is not an error.
func (a *AferoAccessor) IsDir(entry types.PathEntry) (bool, error) {
	info, err := a.fs.Stat(entry.String())
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// IsFile reports whether entry is a regular file. A missing entry is not an error.
func (a *AferoAccessor) IsFile(entry types.PathEntry) (bool, error) {
	info, err := a.fs.Stat(entry.String())
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Exists reports whether anything occupies entry; dangling links count
func (a *AferoAccessor) Exists(entry types.PathEntry) (bool, error) {
	var err error
	if lstater, ok := a.fs.(afero.Lstater); ok {
		_, _, err = lstater.LstatIfPossible(entry.String())
	} else {
		_, err = a.fs.Stat(entry.String())
	}

	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

// Stringify returns the entry's full path
func (a *AferoAccessor) Stringify(entry types.PathEntry) string {
	return entry.String()
}

// Open opens a file for reading
func (a *AferoAccessor) Open(entry types.PathEntry) (io.ReadCloser, error) {
	return a.fs.Open(entry.String())
}

// IsLink reports whether entry itself is a symbolic link
func (a *aferoLinkAccessor) IsLink(entry types.PathEntry) (bool, error) {
	info, lstatCalled, err := a.lstater.LstatIfPossible(entry.String())
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !lstatCalled {
		return false, nil
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// ReadLink returns the link target resolved against the link's parent
func (a *aferoLinkAccessor) ReadLink(entry types.PathEntry) (types.PathEntry, error) {
	target, err := a.reader.ReadlinkIfPossible(entry.String())
	if err != nil {
		return types.PathEntry{}, err
	}
	return resolveLinkTarget(entry, target), nil
}

func resolveLinkTarget(link types.PathEntry, target string) types.PathEntry {
	if filepath.IsAbs(target) {
		return types.NewPathEntry(target)
	}
	return link.Parent().Join(target)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

var (
	_ interfaces.Accessor       = (*AferoAccessor)(nil)
	_ interfaces.OpenCapability = (*AferoAccessor)(nil)
	_ interfaces.LinkCapability = (*aferoLinkAccessor)(nil)
)
