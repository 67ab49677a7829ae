package options

import (
	"regexp"
	"testing"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/config"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorMode(t *testing.T) {
	for _, in := range []string{"strict", "warn", "ignore", " WARN "} {
		_, err := ParseErrorMode(in)
		assert.NoError(t, err, in)
	}

	_, err := ParseErrorMode("loose")
	assert.ErrorIs(t, err, common.ErrInvalidPolicy)

	_, err = ParseErrorMode("")
	assert.ErrorIs(t, err, common.ErrInvalidPolicy)
}

func TestNewTraversalPolicy(t *testing.T) {
	t.Run("unknown error mode fails at construction", func(t *testing.T) {
		_, err := NewTraversalPolicy("loose")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidPolicy)
	})

	t.Run("bad exclude regex is an invalid policy", func(t *testing.T) {
		_, err := NewTraversalPolicy("strict", WithExcludePatterns("(unclosed"))
		assert.ErrorIs(t, err, common.ErrInvalidPolicy)
	})

	t.Run("bad glob is an invalid policy", func(t *testing.T) {
		_, err := NewTraversalPolicy("strict", WithNamePattern("[a-"))
		assert.ErrorIs(t, err, common.ErrInvalidPolicy)
	})

	t.Run("options are applied", func(t *testing.T) {
		policy, err := NewTraversalPolicy("warn",
			WithNamePattern("*.go"),
			WithExcludePatterns(`/vendor(/|$)`),
			WithExcludeRegexps(regexp.MustCompile(`\.git$`)),
			WithIgnoreLines("*.log"),
			WithFollowSymlinks(true),
		)
		require.NoError(t, err)

		assert.Equal(t, ErrorWarn, policy.ErrorMode)
		assert.Equal(t, "*.go", policy.NamePattern)
		assert.Len(t, policy.ExcludePatterns, 2)
		assert.True(t, policy.FollowSymlinks)
		assert.Equal(t, []string{"*.log"}, policy.IgnoreLines)
	})
}

func TestTraversalPolicyValidate(t *testing.T) {
	assert.ErrorIs(t, TraversalPolicy{}.Validate(), common.ErrInvalidPolicy)
	assert.ErrorIs(t, TraversalPolicy{ErrorMode: "loose"}.Validate(), common.ErrInvalidPolicy)
	assert.ErrorIs(t, TraversalPolicy{ErrorMode: ErrorStrict, ExcludePatterns: []*regexp.Regexp{nil}}.Validate(), common.ErrInvalidPolicy)
	assert.NoError(t, DefaultTraversalPolicy().Validate())
}

func TestMatchName(t *testing.T) {
	policy := DefaultTraversalPolicy()
	assert.True(t, policy.MatchName("anything"))

	policy.NamePattern = "*.txt"
	assert.True(t, policy.MatchName("b.txt"))
	assert.False(t, policy.MatchName("b.txt.bak"))
	assert.False(t, policy.MatchName("c"))
}

func TestExcluded(t *testing.T) {
	policy, err := NewTraversalPolicy("strict", WithExcludePatterns(`/node_modules(/|$)`, `\.tmp$`))
	require.NoError(t, err)

	assert.True(t, policy.Excluded("/src/node_modules"))
	assert.True(t, policy.Excluded("/src/node_modules/pkg/index.js"))
	assert.True(t, policy.Excluded("/src/scratch.tmp"))
	assert.False(t, policy.Excluded("/src/main.go"))
	assert.False(t, DefaultTraversalPolicy().Excluded("/anything"))
}

func TestIgnored(t *testing.T) {
	policy, err := NewTraversalPolicy("strict", WithIgnoreLines("*.log", "build/", "!keep.log"))
	require.NoError(t, err)

	assert.True(t, policy.Ignored("debug.log", false))
	assert.True(t, policy.Ignored("nested/trace.log", false))
	assert.False(t, policy.Ignored("keep.log", false))
	assert.True(t, policy.Ignored("build", true))
	assert.False(t, policy.Ignored("build", false))
	assert.False(t, policy.Ignored("src/main.go", false))
	assert.False(t, policy.Ignored(".", true))

	handBuilt := TraversalPolicy{ErrorMode: ErrorStrict, IgnoreLines: []string{"*.log"}}
	assert.True(t, handBuilt.Ignored("x.log", false))
	assert.True(t, handBuilt.Prepared().Ignored("x.log", false))
	assert.False(t, DefaultTraversalPolicy().Ignored("x.log", false))
}

func TestPolicyFromConfig(t *testing.T) {
	policy, err := PolicyFromConfig(config.WalkConfig{
		ErrorMode:       "ignore",
		NamePattern:     "*.md",
		ExcludePatterns: []string{"drafts"},
		FollowSymlinks:  true,
	}, "*.bak")
	require.NoError(t, err)

	assert.Equal(t, ErrorIgnore, policy.ErrorMode)
	assert.Equal(t, "*.md", policy.NamePattern)
	assert.True(t, policy.Excluded("/notes/drafts/a.md"))
	assert.True(t, policy.Ignored("a.bak", false))
	assert.True(t, policy.FollowSymlinks)

	_, err = PolicyFromConfig(config.WalkConfig{ErrorMode: "loose"})
	assert.ErrorIs(t, err, common.ErrInvalidPolicy)
}

func TestWalkModeString(t *testing.T) {
	assert.Equal(t, "all", WalkAll.String())
	assert.Equal(t, "dirs", WalkDirsOnly.String())
	assert.Equal(t, "files", WalkFilesOnly.String())
	assert.Equal(t, "WalkMode(7)", WalkMode(7).String())
}
