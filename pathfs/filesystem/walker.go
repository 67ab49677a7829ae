package filesystem

import (
	"fmt"
	"iter"
	"path/filepath"

	internal "github.com/ZanzyTHEbar/path-helpers/pathfs"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/options"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Walker performs lazy depth-first traversal over an accessor.
// It holds no per-walk state; every call to Walk starts a fresh traversal.
type Walker struct {
	accessor  interfaces.Accessor
	links     interfaces.LinkCapability
	sink      interfaces.DiagnosticSink
	logger    zerolog.Logger
	pathUtils *common.PathUtils
}

// WalkerOption customizes a Walker
type WalkerOption func(*Walker)

// WithWalkerLogger sets the logger used for debug output and the default sink
func WithWalkerLogger(logger zerolog.Logger) WalkerOption {
	return func(w *Walker) { w.logger = logger }
}

// WithWalkerSink routes warn-mode diagnostics to sink
func WithWalkerSink(sink interfaces.DiagnosticSink) WalkerOption {
	return func(w *Walker) { w.sink = sink }
}

// NewWalker creates a walker over accessor. Without WithWalkerSink,
// diagnostics are logged as warnings.
func NewWalker(accessor interfaces.Accessor, opts ...WalkerOption) *Walker {
	w := &Walker{
		accessor:  accessor,
		logger:    internal.GetLogger(),
		pathUtils: common.NewPathUtils(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sink == nil {
		w.sink = NewLogSink(w.logger)
	}
	if links, ok := interfaces.QueryLinks(accessor); ok {
		w.links = links
	}
	return w
}

// Walk yields the descendants of root in depth-first pre-order. The root itself
// is not yielded. Under ErrorStrict a fault is yielded once as a non-nil error
// and the sequence ends. An invalid policy is yielded as an error before the
// accessor is touched.
func (w *Walker) Walk(root types.PathEntry, mode options.WalkMode, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return func(yield func(types.PathEntry, error) bool) {
		if err := policy.Validate(); err != nil {
			yield(types.PathEntry{}, err)
			return
		}
		if mode < options.WalkAll || mode > options.WalkFilesOnly {
			yield(types.PathEntry{}, fmt.Errorf("%w: unknown walk mode %s", common.ErrInvalidPolicy, mode))
			return
		}

		t := &traversal{
			Walker:  w,
			root:    root,
			rootStr: w.accessor.Stringify(root),
			mode:    mode,
			policy:  policy.Prepared(),
			active:  make(map[string]struct{}),
			logger: w.logger.With().
				Str("walk_id", uuid.NewString()).
				Str("root", root.String()).
				Stringer("mode", mode).
				Logger(),
		}
		t.run(yield)
	}
}

// WalkAll yields files and directories
func (w *Walker) WalkAll(root types.PathEntry, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return w.Walk(root, options.WalkAll, policy)
}

// WalkDirs yields directories only
func (w *Walker) WalkDirs(root types.PathEntry, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return w.Walk(root, options.WalkDirsOnly, policy)
}

// WalkFiles yields regular files only
func (w *Walker) WalkFiles(root types.PathEntry, policy options.TraversalPolicy) iter.Seq2[types.PathEntry, error] {
	return w.Walk(root, options.WalkFilesOnly, policy)
}

// frame is one pending directory on the work-list
type frame struct {
	dir      types.PathEntry
	identity string // resolved location, used to detect link cycles
	children []types.PathEntry
	next     int
}

// traversal is the state of a single Walk invocation
type traversal struct {
	*Walker
	root    types.PathEntry
	rootStr string
	mode    options.WalkMode
	policy  options.TraversalPolicy
	active  map[string]struct{}
	logger  zerolog.Logger

	yielded int
	listed  int
	faults  int
}

func (t *traversal) run(yield func(types.PathEntry, error) bool) {
	t.logger.Debug().Msg("Starting walk")
	defer func() {
		t.logger.Debug().
			Int("yielded", t.yielded).
			Int("listed", t.listed).
			Int("faults", t.faults).
			Msg("Walk finished")
	}()

	if t.policy.Excluded(t.rootStr) {
		return
	}

	rootFrame, err := t.open(t.root, absolute(t.rootStr))
	if err != nil {
		yield(types.PathEntry{}, err)
		return
	}
	if rootFrame == nil {
		return
	}

	stack := []*frame{rootFrame}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.children) {
			delete(t.active, top.identity)
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.children[top.next]
		top.next++

		if t.policy.Excluded(t.accessor.Stringify(child)) {
			continue
		}
		rel := t.relative(child)
		if t.policy.Ignored(rel, false) {
			continue
		}

		identity := joinIdentity(top.identity, child)
		kind, descend, identity, err := t.classify(child, identity, top.identity)
		if err != nil {
			yield(types.PathEntry{}, err)
			return
		}
		if kind == types.KindDir && t.policy.Ignored(rel, true) {
			continue
		}

		if t.wants(kind) && t.policy.MatchName(child.Name()) {
			t.yielded++
			if !yield(child, nil) {
				return
			}
		}

		if !descend {
			continue
		}
		next, err := t.open(child, identity)
		if err != nil {
			yield(types.PathEntry{}, err)
			return
		}
		if next != nil {
			stack = append(stack, next)
		}
	}
}

// open lists dir into a new frame. A nil frame with a nil error means the
// fault was absorbed by the policy and the subtree counts as empty.
func (t *traversal) open(dir types.PathEntry, identity string) (*frame, error) {
	children, err := t.accessor.ListChildren(dir)
	if err != nil {
		return nil, t.fault(common.OpList, dir, err)
	}
	t.listed++
	t.active[identity] = struct{}{}
	return &frame{dir: dir, identity: identity, children: children}, nil
}

// classify decides the kind of child and whether to descend into it. Faults
// absorbed by the policy leave the child as KindUnknown and never descended.
func (t *traversal) classify(child types.PathEntry, identity, parentIdentity string) (types.EntryKind, bool, string, error) {
	isDir, err := t.accessor.IsDir(child)
	if err != nil {
		return types.KindUnknown, false, identity, t.fault(common.OpStat, child, err)
	}

	if !isDir {
		if t.mode != options.WalkFilesOnly {
			return types.KindFile, false, identity, nil
		}
		isFile, err := t.accessor.IsFile(child)
		if err != nil {
			return types.KindUnknown, false, identity, t.fault(common.OpStat, child, err)
		}
		if isFile {
			return types.KindFile, false, identity, nil
		}
		return types.KindUnknown, false, identity, nil
	}

	if t.links == nil {
		return types.KindDir, true, identity, nil
	}

	isLink, err := t.links.IsLink(child)
	if err != nil {
		return types.KindUnknown, false, identity, t.fault(common.OpStat, child, err)
	}
	if !isLink {
		return types.KindDir, true, identity, nil
	}
	if !t.policy.FollowSymlinks {
		return types.KindDir, false, identity, nil
	}

	target, err := t.links.ReadLink(child)
	if err != nil {
		return types.KindUnknown, false, identity, t.fault(common.OpReadLink, child, err)
	}
	resolved := absolute(t.accessor.Stringify(target))
	if t.cycles(resolved, parentIdentity) {
		t.logger.Debug().
			Str("path", child.String()).
			Str("target", resolved).
			Msg("Not following link back into an ancestor")
		return types.KindDir, false, resolved, nil
	}
	return types.KindDir, true, resolved, nil
}

// cycles reports whether descending into target would revisit a directory
// that is already on the work-list
func (t *traversal) cycles(target, parentIdentity string) bool {
	if _, onStack := t.active[target]; onStack {
		return true
	}
	return t.pathUtils.IsSubpath(target, parentIdentity)
}

// fault applies the error mode. It returns a non-nil error only under strict.
func (t *traversal) fault(op string, entry types.PathEntry, err error) error {
	t.faults++
	fault := common.NewTraversalFault(op, t.accessor.Stringify(entry), err)

	switch t.policy.ErrorMode {
	case options.ErrorWarn:
		t.sink.Warn(types.Diagnostic{Path: fault.Path, Op: op, Err: err})
		return nil
	case options.ErrorIgnore:
		t.logger.Debug().Err(fault).Msg("Ignoring traversal fault")
		return nil
	default:
		return fault
	}
}

func (t *traversal) wants(kind types.EntryKind) bool {
	switch t.mode {
	case options.WalkDirsOnly:
		return kind == types.KindDir
	case options.WalkFilesOnly:
		return kind == types.KindFile
	default:
		return true
	}
}

// relative returns child's slash path below the walk root, or "" when no
// gitignore rules are configured
func (t *traversal) relative(child types.PathEntry) string {
	if len(t.policy.IgnoreLines) == 0 {
		return ""
	}
	rel, err := t.pathUtils.GetRelativePath(t.rootStr, t.accessor.Stringify(child))
	if err != nil {
		return ""
	}
	return rel
}

// absolute anchors relative walks so link targets compare against the chain
func absolute(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func joinIdentity(parentIdentity string, child types.PathEntry) string {
	return types.NewPathEntry(parentIdentity).Join(child.Name()).String()
}
