package filesystem

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/path-helpers/pathfs"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/config"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/backend"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/options"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/services"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/rs/zerolog"
)

// FileSystem ties path entries to an accessor. It exposes listing, matching,
// traversal, conflict-free naming and content hashing over one backend.
type FileSystem struct {
	accessor         interfaces.Accessor
	walker           *Walker
	conflictResolver *services.ConflictResolverService

	fileUtils       *common.FileUtils
	validationUtils *common.ValidationUtils
	errorUtils      *common.ErrorUtils

	logger zerolog.Logger
	sink   interfaces.DiagnosticSink
}

// Option customizes a FileSystem
type Option func(*FileSystem)

// WithLogger sets the logger shared by the walker and the services
func WithLogger(logger zerolog.Logger) Option {
	return func(fs *FileSystem) { fs.logger = logger }
}

// WithDiagnosticSink routes warn-mode traversal diagnostics to sink
func WithDiagnosticSink(sink interfaces.DiagnosticSink) Option {
	return func(fs *FileSystem) { fs.sink = sink }
}

// New creates a filesystem manager over accessor
func New(accessor interfaces.Accessor, opts ...Option) (*FileSystem, error) {
	if accessor == nil {
		return nil, fmt.Errorf("accessor cannot be nil")
	}

	fs := &FileSystem{
		accessor:        accessor,
		fileUtils:       common.NewFileUtils(),
		validationUtils: common.NewValidationUtils(),
		logger:          internal.GetLogger(),
	}
	for _, opt := range opts {
		opt(fs)
	}

	walkerOpts := []WalkerOption{WithWalkerLogger(fs.logger)}
	if fs.sink != nil {
		walkerOpts = append(walkerOpts, WithWalkerSink(fs.sink))
	}
	fs.walker = NewWalker(accessor, walkerOpts...)
	fs.conflictResolver = services.NewConflictResolverService(accessor, fs.logger)
	fs.errorUtils = common.NewErrorUtils(fs.logger)

	return fs, nil
}

// NewFromConfig builds the backend and logger named by cfg
func NewFromConfig(cfg *config.Config, opts ...Option) (*FileSystem, error) {
	if cfg == nil {
		cfg = &config.AppConfig
	}

	accessor, err := backend.FromConfig(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	opts = append([]Option{WithLogger(internal.GetLeveledLogger(cfg.Log.Level))}, opts...)
	return New(accessor, opts...)
}

// Accessor returns the backing accessor
func (fs *FileSystem) Accessor() interfaces.Accessor {
	return fs.accessor
}

// Walker returns the traversal engine
func (fs *FileSystem) Walker() *Walker {
	return fs.walker
}

// ConflictResolver returns the conflict resolution service
func (fs *FileSystem) ConflictResolver() *services.ConflictResolverService {
	return fs.conflictResolver
}

// Traversal

// Walk iterates over files and directories below root
func (fs *FileSystem) Walk(root types.PathEntry, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return fs.walker.WalkAll(root, policy)
}

// WalkDirs iterates over directories below root
func (fs *FileSystem) WalkDirs(root types.PathEntry, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return fs.walker.WalkDirs(root, policy)
}

// WalkFiles iterates over regular files below root
func (fs *FileSystem) WalkFiles(root types.PathEntry, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return fs.walker.WalkFiles(root, policy)
}

// Policy builds a traversal policy from the walk section of the configuration,
// loading the configured ignore file relative to root
func (fs *FileSystem) Policy(root types.PathEntry, cfg config.WalkConfig) (options.TraversalPolicy, error) {
	var lines []string
	if cfg.IgnoreFile != "" {
		ignoreFile := types.NewPathEntry(cfg.IgnoreFile)
		if !filepath.IsAbs(cfg.IgnoreFile) {
			ignoreFile = root.Join(cfg.IgnoreFile)
		}

		var err error
		lines, err = fs.LoadIgnoreFile(ignoreFile)
		if err != nil {
			return options.TraversalPolicy{}, err
		}
	}
	return options.PolicyFromConfig(cfg, lines...)
}

// Listing and matching

// ListDir lists the children of entry whose names match pattern. An entry
// that is not a directory lists its parent instead.
func (fs *FileSystem) ListDir(entry types.PathEntry, pattern string) ([]types.PathEntry, error) {
	if err := fs.validationUtils.ValidatePath(entry.String()); err != nil {
		return nil, err
	}
	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("%w: name pattern %q: %v", common.ErrInvalidPolicy, pattern, err)
		}
	}

	dir := entry
	isDir, err := fs.accessor.IsDir(entry)
	if err != nil {
		return nil, fs.errorUtils.WrapError(err, "failed to stat %s", entry)
	}
	if !isDir {
		dir = entry.Parent()
	}

	children, err := fs.accessor.ListChildren(dir)
	if err != nil {
		return nil, fs.errorUtils.HandleOperationError(err, common.OpList, dir.String(), false)
	}

	if pattern == "" {
		return children, nil
	}
	matched := children[:0]
	for _, child := range children {
		if ok, _ := filepath.Match(pattern, child.Name()); ok {
			matched = append(matched, child)
		}
	}
	return matched, nil
}

// Dirs lists the subdirectories of entry whose names match pattern
func (fs *FileSystem) Dirs(entry types.PathEntry, pattern string) ([]types.PathEntry, error) {
	return fs.listFiltered(entry, pattern, fs.accessor.IsDir)
}

// Files lists the regular files in entry whose names match pattern
func (fs *FileSystem) Files(entry types.PathEntry, pattern string) ([]types.PathEntry, error) {
	return fs.listFiltered(entry, pattern, fs.accessor.IsFile)
}

func (fs *FileSystem) listFiltered(entry types.PathEntry, pattern string, keep func(types.PathEntry) (bool, error)) ([]types.PathEntry, error) {
	children, err := fs.ListDir(entry, pattern)
	if err != nil {
		return nil, err
	}

	out := make([]types.PathEntry, 0, len(children))
	for _, child := range children {
		ok, err := keep(child)
		if err != nil {
			return nil, fs.errorUtils.WrapError(err, "failed to stat %s", child)
		}
		if ok {
			out = append(out, child)
		}
	}
	return out, nil
}

// Fnmatch reports whether the final segment of entry matches pattern
func (fs *FileSystem) Fnmatch(entry types.PathEntry, pattern string) (bool, error) {
	ok, err := filepath.Match(pattern, entry.Name())
	if err != nil {
		return false, fmt.Errorf("%w: name pattern %q: %v", common.ErrInvalidPolicy, pattern, err)
	}
	return ok, nil
}

// Naming

// NoConflict returns entry if nothing occupies it, otherwise the first free
// "(Copy N)" sibling
func (fs *FileSystem) NoConflict(entry types.PathEntry) (types.PathEntry, error) {
	if err := fs.validationUtils.ValidatePath(entry.String()); err != nil {
		return types.PathEntry{}, err
	}
	return fs.conflictResolver.NextAvailableName(entry, fs.accessor.Exists)
}

// Content

// ReadHash digests the file at entry with algorithm (md5, sha1, sha256, sha512)
func (fs *FileSystem) ReadHash(entry types.PathEntry, algorithm string) (sum []byte, err error) {
	if err := fs.validationUtils.ValidatePath(entry.String()); err != nil {
		return nil, err
	}
	if err := fs.validationUtils.ValidateRequiredString(algorithm, "algorithm"); err != nil {
		return nil, err
	}

	opener, ok := interfaces.QueryOpen(fs.accessor)
	if !ok {
		return nil, fmt.Errorf("%w: open", common.ErrUnsupported)
	}
	if _, err := fs.fileUtils.NewHasher(algorithm); err != nil {
		return nil, err
	}

	rc, err := opener.Open(entry)
	if err != nil {
		return nil, fs.errorUtils.HandleOperationError(err, "open", entry.String(), true)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", entry, cerr)
		}
	}()

	return fs.fileUtils.CalculateChecksum(rc, algorithm)
}

// ReadHexHash is ReadHash rendered as lowercase hex
func (fs *FileSystem) ReadHexHash(entry types.PathEntry, algorithm string) (string, error) {
	sum, err := fs.ReadHash(entry, algorithm)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// ReadMD5 returns the md5 digest of the file at entry
func (fs *FileSystem) ReadMD5(entry types.PathEntry) ([]byte, error) {
	return fs.ReadHash(entry, "md5")
}

// LoadIgnoreFile reads gitignore-style lines from entry. A missing file yields
// no lines and no error.
func (fs *FileSystem) LoadIgnoreFile(entry types.PathEntry) (lines []string, err error) {
	if err := fs.validationUtils.ValidatePath(entry.String()); err != nil {
		return nil, err
	}

	exists, err := fs.accessor.Exists(entry)
	if err != nil {
		return nil, fs.errorUtils.WrapError(err, "failed to stat %s", entry)
	}
	if !exists {
		fs.logger.Debug().Str("path", entry.String()).Msg("No ignore file")
		return nil, nil
	}

	opener, ok := interfaces.QueryOpen(fs.accessor)
	if !ok {
		return nil, fmt.Errorf("%w: open", common.ErrUnsupported)
	}
	rc, err := opener.Open(entry)
	if err != nil {
		return nil, fs.errorUtils.WrapError(err, "failed to open %s", entry)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", entry, cerr)
		}
	}()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fs.errorUtils.LogAndWrapError(err, zerolog.WarnLevel, "failed to read %s", entry)
	}

	fs.logger.Debug().
		Str("path", entry.String()).
		Int("lines", len(lines)).
		Msg("Loaded ignore file")
	return lines, nil
}

// DefaultIgnoreFile returns the conventional ignore file inside dir
func DefaultIgnoreFile(dir types.PathEntry) types.PathEntry {
	return dir.Join(internal.DefaultIgnoreFileName)
}

// IsTraversalFault reports whether err came from a strict-mode walk
func IsTraversalFault(err error) bool {
	var fault *common.TraversalFault
	return errors.As(err, &fault)
}
