package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/options"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/rs/zerolog"
)

var (
	// copyMarker matches a well-formed " (Copy)" or " (Copy N)" suffix on a stem
	copyMarker = regexp.MustCompile(`^(.*) \(Copy(?: ([1-9][0-9]*))?\)$`)
	// looseCopyMarker matches any " (Copy ...)" suffix, well-formed or not
	looseCopyMarker = regexp.MustCompile(`^(.*) \(Copy (.*)\)$`)

	errNilExists = errors.New("exists predicate is required")
)

// ParseCandidate splits a final path segment into the copy-naming grammar.
// A stem ending in " (Copy X)" where X is not a positive decimal without
// leading zeros fails with common.ErrMalformedCandidateName.
func ParseCandidate(name string) (types.ConflictCandidate, error) {
	stem, ext := types.SplitExt(name)

	if m := copyMarker.FindStringSubmatch(stem); m != nil {
		c := types.ConflictCandidate{BaseName: m[1], HasCopy: true, Extension: ext}
		if m[2] != "" {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return types.ConflictCandidate{}, fmt.Errorf("%w: %q: copy count out of range", common.ErrMalformedCandidateName, name)
			}
			c.CopyCount = n
		}
		return c, nil
	}

	if m := looseCopyMarker.FindStringSubmatch(stem); m != nil {
		return types.ConflictCandidate{}, fmt.Errorf("%w: %q: invalid copy count %q", common.ErrMalformedCandidateName, name, m[2])
	}

	return types.ConflictCandidate{BaseName: stem, Extension: ext}, nil
}

// FormatCandidate serializes c. Formatting is closed under parsing: any
// candidate produced by ParseCandidate formats back to a name that parses to it.
func FormatCandidate(c types.ConflictCandidate) string {
	return c.String()
}

// nextCandidate advances the copy marker by one step
func nextCandidate(c types.ConflictCandidate) (types.ConflictCandidate, error) {
	switch {
	case !c.HasCopy:
		c.HasCopy = true
		c.CopyCount = 0
	case c.CopyCount == 0:
		c.CopyCount = 1
	case c.CopyCount == math.MaxInt:
		return types.ConflictCandidate{}, fmt.Errorf("%w: copy count %d cannot be incremented", common.ErrMalformedCandidateName, c.CopyCount)
	default:
		c.CopyCount++
	}
	return c, nil
}

// NextAvailableName returns candidate if exists reports it free, otherwise the
// first free name in its copy sequence. A free candidate is never parsed, so
// a malformed name that does not conflict is returned unchanged.
func NextAvailableName(candidate types.PathEntry, exists interfaces.ExistsFunc) (types.PathEntry, error) {
	if candidate.IsZero() {
		return types.PathEntry{}, common.ErrPathEmpty
	}
	if exists == nil {
		return types.PathEntry{}, errNilExists
	}

	current := candidate
	for {
		taken, err := exists(current)
		if err != nil {
			return types.PathEntry{}, fmt.Errorf("failed to check %s: %w", current, err)
		}
		if !taken {
			return current, nil
		}

		parsed, err := ParseCandidate(current.Name())
		if err != nil {
			return types.PathEntry{}, err
		}
		next, err := nextCandidate(parsed)
		if err != nil {
			return types.PathEntry{}, err
		}
		current = current.WithName(FormatCandidate(next))
	}
}

// ConflictResolverService handles destination conflicts with various strategies.
// Existence is always answered by its accessor.
type ConflictResolverService struct {
	accessor interfaces.Accessor
	logger   zerolog.Logger
}

// NewConflictResolverService creates a new conflict resolver service
func NewConflictResolverService(accessor interfaces.Accessor, logger zerolog.Logger) *ConflictResolverService {
	return &ConflictResolverService{
		accessor: accessor,
		logger:   logger,
	}
}

// NextAvailableName resolves candidate against exists
func (cr *ConflictResolverService) NextAvailableName(candidate types.PathEntry, exists interfaces.ExistsFunc) (types.PathEntry, error) {
	return NextAvailableName(candidate, exists)
}

// ResolveConflict resolves a destination conflict using the specified strategy.
// Skip returns the zero entry.
func (cr *ConflictResolverService) ResolveConflict(ctx context.Context, src, dst types.PathEntry, strategy options.ConflictStrategy) (types.PathEntry, error) {
	return cr.resolve(ctx, src, dst, strategy, cr.accessor.Exists)
}

func (cr *ConflictResolverService) resolve(ctx context.Context, src, dst types.PathEntry, strategy options.ConflictStrategy, exists interfaces.ExistsFunc) (types.PathEntry, error) {
	if err := ctx.Err(); err != nil {
		return types.PathEntry{}, err
	}

	switch strategy {
	case options.ConflictOverwrite:
		return dst, nil
	case options.ConflictSkip:
		return types.PathEntry{}, nil
	case options.ConflictRename:
		resolved, err := NextAvailableName(dst, exists)
		if err != nil {
			return types.PathEntry{}, err
		}
		cr.logger.Debug().
			Str("source", src.String()).
			Str("destination", dst.String()).
			Str("resolved", resolved.String()).
			Msg("Resolved conflict by rename")
		return resolved, nil
	default:
		return types.PathEntry{}, fmt.Errorf("unknown conflict strategy: %s", strategy)
	}
}

// DetectConflict returns nil when dst is free, otherwise a description of both sides
func (cr *ConflictResolverService) DetectConflict(ctx context.Context, src, dst types.PathEntry) (*types.ConflictInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exists, err := cr.accessor.Exists(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to stat destination %s: %w", dst, err)
	}
	if !exists {
		return nil, nil
	}

	srcKind, err := cr.kind(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source %s: %w", src, err)
	}
	dstKind, err := cr.kind(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to stat destination %s: %w", dst, err)
	}

	// Mixed file/directory conflicts count as file conflicts
	conflictType := types.ConflictFileExists
	if srcKind == types.KindDir && dstKind == types.KindDir {
		conflictType = types.ConflictDirectoryExists
	}

	return &types.ConflictInfo{
		SourcePath:   src,
		TargetPath:   dst,
		ConflictType: conflictType,
		SourceKind:   srcKind,
		TargetKind:   dstKind,
	}, nil
}

func (cr *ConflictResolverService) kind(entry types.PathEntry) (types.EntryKind, error) {
	isDir, err := cr.accessor.IsDir(entry)
	if err != nil {
		return types.KindUnknown, err
	}
	if isDir {
		return types.KindDir, nil
	}
	isFile, err := cr.accessor.IsFile(entry)
	if err != nil {
		return types.KindUnknown, err
	}
	if isFile {
		return types.KindFile, nil
	}
	return types.KindUnknown, nil
}

// GenerateUniqueFilename returns the first free name in path's copy sequence
func (cr *ConflictResolverService) GenerateUniqueFilename(path string) (string, error) {
	resolved, err := NextAvailableName(types.NewPathEntry(path), cr.accessor.Exists)
	if err != nil {
		return "", err
	}
	return resolved.String(), nil
}

// GetConflictResolutionOptions returns available resolution options for a conflict
func (cr *ConflictResolverService) GetConflictResolutionOptions(conflict *types.ConflictInfo) []options.ConflictStrategy {
	if conflict == nil {
		return nil
	}
	switch conflict.ConflictType {
	case types.ConflictFileExists:
		return []options.ConflictStrategy{
			options.ConflictOverwrite,
			options.ConflictSkip,
			options.ConflictRename,
		}
	case types.ConflictDirectoryExists:
		return []options.ConflictStrategy{
			options.ConflictSkip,
			options.ConflictRename,
		}
	default:
		return []options.ConflictStrategy{
			options.ConflictSkip,
		}
	}
}

// BatchResolveConflicts resolves multiple conflicts. Renamed destinations are
// reserved as they are handed out, so no two conflicts receive the same name.
// The result maps source paths to resolved destinations; skipped sources are absent.
func (cr *ConflictResolverService) BatchResolveConflicts(ctx context.Context, conflicts []types.ConflictInfo, strategy options.ConflictStrategy) (map[string]types.PathEntry, error) {
	resolutions := make(map[string]types.PathEntry, len(conflicts))
	reservations := NewNameReservations(cr.accessor.Exists)

	for _, conflict := range conflicts {
		select {
		case <-ctx.Done():
			return resolutions, ctx.Err()
		default:
		}

		resolved, err := cr.resolve(ctx, conflict.SourcePath, conflict.TargetPath, strategy, reservations.Exists)
		if err != nil {
			return resolutions, fmt.Errorf("failed to resolve conflict for %s: %w", conflict.SourcePath, err)
		}

		if !resolved.IsZero() {
			reservations.Reserve(resolved)
			resolutions[conflict.SourcePath.String()] = resolved
		}
	}

	cr.logger.Debug().
		Int("conflicts", len(conflicts)).
		Int("resolved", len(resolutions)).
		Int("reserved", reservations.Len()).
		Msg("Batch conflict resolution completed")

	return resolutions, nil
}

// ValidateResolution validates that a conflict resolution is valid
func (cr *ConflictResolverService) ValidateResolution(src, resolved types.PathEntry, strategy options.ConflictStrategy) error {
	switch strategy {
	case options.ConflictOverwrite:
		if src.Equal(resolved) {
			return fmt.Errorf("overwrite resolution must use destination path")
		}
	case options.ConflictSkip:
		if !resolved.IsZero() {
			return fmt.Errorf("skip resolution must return empty path")
		}
	case options.ConflictRename:
		if src.Equal(resolved) {
			return fmt.Errorf("rename resolution must generate different path")
		}
		if !src.Parent().Equal(resolved.Parent()) {
			return fmt.Errorf("rename resolution must be in same directory")
		}
	}

	return nil
}

// Ensure ConflictResolverService implements the interface
var _ interfaces.ConflictResolver = (*ConflictResolverService)(nil)
