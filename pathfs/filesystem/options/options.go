package options

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/config"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"

	ignore "github.com/sabhiram/go-gitignore"
)

// ConflictStrategy defines how to handle an occupied destination
type ConflictStrategy string

const (
	ConflictOverwrite ConflictStrategy = "overwrite"
	ConflictSkip      ConflictStrategy = "skip"
	ConflictRename    ConflictStrategy = "rename"
)

// ErrorMode governs what a traversal does with accessor faults
type ErrorMode string

const (
	ErrorStrict ErrorMode = "strict" // propagate the fault and stop
	ErrorWarn   ErrorMode = "warn"   // emit a diagnostic, treat the subtree as empty
	ErrorIgnore ErrorMode = "ignore" // treat the subtree as empty silently
)

// ParseErrorMode converts a configuration string into an ErrorMode
func ParseErrorMode(s string) (ErrorMode, error) {
	switch mode := ErrorMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ErrorStrict, ErrorWarn, ErrorIgnore:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: unknown error mode %q", common.ErrInvalidPolicy, s)
	}
}

// WalkMode selects which entry types a traversal yields
type WalkMode int

const (
	WalkAll WalkMode = iota
	WalkDirsOnly
	WalkFilesOnly
)

func (m WalkMode) String() string {
	switch m {
	case WalkAll:
		return "all"
	case WalkDirsOnly:
		return "dirs"
	case WalkFilesOnly:
		return "files"
	default:
		return fmt.Sprintf("WalkMode(%d)", int(m))
	}
}

// TraversalPolicy configures one walk. Build it with NewTraversalPolicy; the
// zero value is rejected because its error mode is empty.
type TraversalPolicy struct {
	ErrorMode       ErrorMode        // Fault handling
	NamePattern     string           // Glob on the final segment; filters output only
	ExcludePatterns []*regexp.Regexp // Matched against the full path; prunes subtrees
	IgnoreLines     []string         // gitignore rules relative to the walk root; prunes subtrees
	FollowSymlinks  bool             // Descend into links that point at directories

	ignorer *ignore.GitIgnore
}

// PolicyOption customizes a policy under construction
type PolicyOption func(*policySpec)

type policySpec struct {
	namePattern    string
	exclude        []string
	compiled       []*regexp.Regexp
	ignoreLines    []string
	followSymlinks bool
}

// WithNamePattern filters yielded entries by a glob on their name
func WithNamePattern(pattern string) PolicyOption {
	return func(s *policySpec) { s.namePattern = pattern }
}

// WithExcludePatterns adds regular expressions searched for in each full path
func WithExcludePatterns(patterns ...string) PolicyOption {
	return func(s *policySpec) { s.exclude = append(s.exclude, patterns...) }
}

// WithExcludeRegexps adds already compiled exclusion expressions
func WithExcludeRegexps(res ...*regexp.Regexp) PolicyOption {
	return func(s *policySpec) { s.compiled = append(s.compiled, res...) }
}

// WithIgnoreLines adds gitignore-syntax rules evaluated relative to the walk root
func WithIgnoreLines(lines ...string) PolicyOption {
	return func(s *policySpec) { s.ignoreLines = append(s.ignoreLines, lines...) }
}

// WithFollowSymlinks enables descending into directory links
func WithFollowSymlinks(follow bool) PolicyOption {
	return func(s *policySpec) { s.followSymlinks = follow }
}

// NewTraversalPolicy validates errorMode and compiles every pattern.
// All failures wrap common.ErrInvalidPolicy.
func NewTraversalPolicy(errorMode string, opts ...PolicyOption) (TraversalPolicy, error) {
	mode, err := ParseErrorMode(errorMode)
	if err != nil {
		return TraversalPolicy{}, err
	}

	spec := &policySpec{}
	for _, opt := range opts {
		opt(spec)
	}

	policy := TraversalPolicy{
		ErrorMode:      mode,
		NamePattern:    spec.namePattern,
		IgnoreLines:    spec.ignoreLines,
		FollowSymlinks: spec.followSymlinks,
	}

	for _, raw := range spec.exclude {
		re, err := regexp.Compile(raw)
		if err != nil {
			return TraversalPolicy{}, fmt.Errorf("%w: exclude pattern %q: %v", common.ErrInvalidPolicy, raw, err)
		}
		policy.ExcludePatterns = append(policy.ExcludePatterns, re)
	}
	for _, re := range spec.compiled {
		if re != nil {
			policy.ExcludePatterns = append(policy.ExcludePatterns, re)
		}
	}

	if len(policy.IgnoreLines) > 0 {
		policy.ignorer = ignore.CompileIgnoreLines(policy.IgnoreLines...)
	}

	if err := policy.Validate(); err != nil {
		return TraversalPolicy{}, err
	}

	return policy, nil
}

// DefaultTraversalPolicy returns a strict policy without filters
func DefaultTraversalPolicy() TraversalPolicy {
	return TraversalPolicy{ErrorMode: ErrorStrict}
}

// PolicyFromConfig builds a policy from the walk section of the configuration.
// ignoreLines are usually the contents of cfg.IgnoreFile, read by the caller.
func PolicyFromConfig(cfg config.WalkConfig, ignoreLines ...string) (TraversalPolicy, error) {
	opts := []PolicyOption{
		WithNamePattern(cfg.NamePattern),
		WithExcludePatterns(cfg.ExcludePatterns...),
		WithFollowSymlinks(cfg.FollowSymlinks),
	}
	if len(ignoreLines) > 0 {
		opts = append(opts, WithIgnoreLines(ignoreLines...))
	}
	return NewTraversalPolicy(cfg.ErrorMode, opts...)
}

// Validate re-checks a policy, including hand-built ones
func (p TraversalPolicy) Validate() error {
	switch p.ErrorMode {
	case ErrorStrict, ErrorWarn, ErrorIgnore:
	default:
		return fmt.Errorf("%w: unknown error mode %q", common.ErrInvalidPolicy, string(p.ErrorMode))
	}

	if p.NamePattern != "" {
		if _, err := filepath.Match(p.NamePattern, ""); err != nil {
			return fmt.Errorf("%w: name pattern %q: %v", common.ErrInvalidPolicy, p.NamePattern, err)
		}
	}

	for _, re := range p.ExcludePatterns {
		if re == nil {
			return fmt.Errorf("%w: nil exclude pattern", common.ErrInvalidPolicy)
		}
	}

	return nil
}

// Prepared returns a copy of p with its gitignore rules compiled
func (p TraversalPolicy) Prepared() TraversalPolicy {
	if p.ignorer == nil && len(p.IgnoreLines) > 0 {
		p.ignorer = ignore.CompileIgnoreLines(p.IgnoreLines...)
	}
	return p
}

// MatchName reports whether a final path segment passes the name pattern
func (p TraversalPolicy) MatchName(name string) bool {
	if p.NamePattern == "" {
		return true
	}
	ok, err := filepath.Match(p.NamePattern, name)
	return err == nil && ok
}

// Excluded reports whether any exclude pattern occurs in the full path
func (p TraversalPolicy) Excluded(fullPath string) bool {
	for _, re := range p.ExcludePatterns {
		if re.MatchString(fullPath) {
			return true
		}
	}
	return false
}

// Ignored reports whether the gitignore rules match a root-relative path.
// Directories are matched with a trailing slash so "build/" style rules apply.
func (p TraversalPolicy) Ignored(relPath string, isDir bool) bool {
	ig := p.ignorer
	if ig == nil {
		if len(p.IgnoreLines) == 0 {
			return false
		}
		// Hand-built policy; compile on demand
		ig = ignore.CompileIgnoreLines(p.IgnoreLines...)
	}

	if relPath == "" || relPath == "." {
		return false
	}
	if isDir {
		relPath += "/"
	}
	return ig.MatchesPath(relPath)
}
