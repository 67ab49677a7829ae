// Package backend provides the filesystem accessors consumed by traversal and
// name resolution: afero (os and in-memory) and go-billy (os and in-memory).
package backend

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/config"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/afero"
)

// Backend kinds accepted by New
const (
	KindOS          = "os"
	KindMemory      = "memory"
	KindBillyOS     = "billy-os"
	KindBillyMemory = "billy-memory"
)

// New builds an accessor by kind. root scopes the os-backed kinds; "" and "/"
// leave paths unscoped.
func New(kind, root string) (interfaces.Accessor, error) {
	scoped := root != "" && root != "/"

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindOS, "":
		var fsys afero.Fs = afero.NewOsFs()
		if scoped {
			fsys = afero.NewBasePathFs(fsys, root)
		}
		return NewAferoAccessor(fsys), nil
	case KindMemory:
		return NewAferoAccessor(afero.NewMemMapFs()), nil
	case KindBillyOS:
		if !scoped {
			root = "/"
		}
		return NewBillyAccessor(osfs.New(root)), nil
	case KindBillyMemory:
		return NewBillyAccessor(memfs.New()), nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedBackend, kind)
	}
}

// FromConfig builds the accessor named by the backend section
func FromConfig(cfg config.BackendConfig) (interfaces.Accessor, error) {
	return New(cfg.Kind, cfg.Root)
}
