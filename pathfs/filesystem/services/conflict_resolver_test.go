package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/backend"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/common"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/options"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// existing returns a predicate that reports the listed paths as taken
func existing(paths ...string) func(types.PathEntry) (bool, error) {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[types.NewPathEntry(p).String()] = true
	}
	return func(e types.PathEntry) (bool, error) {
		return set[e.String()], nil
	}
}

func TestNextAvailableName(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		taken     []string
		want      string
	}{
		{"free candidate is returned as is", "/d/report.txt", nil, "/d/report.txt"},
		{"first copy", "/d/report.txt", []string{"/d/report.txt"}, "/d/report (Copy).txt"},
		{"numbered after bare copy", "/d/report.txt",
			[]string{"/d/report.txt", "/d/report (Copy).txt"}, "/d/report (Copy 1).txt"},
		{"advances past a run", "/d/report.txt",
			[]string{"/d/report.txt", "/d/report (Copy).txt", "/d/report (Copy 1).txt", "/d/report (Copy 2).txt"},
			"/d/report (Copy 3).txt"},
		{"starts from an existing marker", "/d/report (Copy 7).txt",
			[]string{"/d/report (Copy 7).txt"}, "/d/report (Copy 8).txt"},
		{"no extension", "/d/notes", []string{"/d/notes"}, "/d/notes (Copy)"},
		{"multi-dot name uses the last dot", "/d/archive.tar.gz",
			[]string{"/d/archive.tar.gz"}, "/d/archive.tar (Copy).gz"},
		{"dotfile has no extension", "/d/.bashrc", []string{"/d/.bashrc"}, "/d/.bashrc (Copy)"},
		{"dotfile with extension", "/d/.config.yaml",
			[]string{"/d/.config.yaml"}, "/d/.config (Copy).yaml"},
		{"relative candidate", "report.txt", []string{"report.txt"}, "report (Copy).txt"},
		{"marker-like text inside the base", "/d/a (Copy) b.txt",
			[]string{"/d/a (Copy) b.txt"}, "/d/a (Copy) b (Copy).txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextAvailableName(types.NewPathEntry(tt.candidate), existing(tt.taken...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNextAvailableNameIsIdempotent(t *testing.T) {
	exists := existing("/d/report.txt", "/d/report (Copy).txt")

	first, err := NextAvailableName(types.NewPathEntry("/d/report.txt"), exists)
	require.NoError(t, err)
	second, err := NextAvailableName(first, exists)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNextAvailableNameMalformed(t *testing.T) {
	for _, name := range []string{
		"/d/report (Copy x).txt",
		"/d/report (Copy 0).txt",
		"/d/report (Copy 01).txt",
		"/d/report (Copy ).txt",
		"/d/report (Copy -1).txt",
		"/d/report (Copy 99999999999999999999999).txt",
		"/d/report (Copy " + strconv.Itoa(math.MaxInt) + ").txt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NextAvailableName(types.NewPathEntry(name), existing(name))
			assert.ErrorIs(t, err, common.ErrMalformedCandidateName)

			got, err := NextAvailableName(types.NewPathEntry(name), existing())
			require.NoError(t, err, "a free candidate is never parsed")
			assert.Equal(t, name, got.String())
		})
	}
}

func TestNextAvailableNameErrors(t *testing.T) {
	_, err := NextAvailableName(types.PathEntry{}, existing())
	assert.ErrorIs(t, err, common.ErrPathEmpty)

	_, err = NextAvailableName(types.NewPathEntry("/d/x"), nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = NextAvailableName(types.NewPathEntry("/d/x"), func(types.PathEntry) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want types.ConflictCandidate
	}{
		{"report.txt", types.ConflictCandidate{BaseName: "report", Extension: ".txt"}},
		{"report (Copy).txt", types.ConflictCandidate{BaseName: "report", HasCopy: true, Extension: ".txt"}},
		{"report (Copy 12).txt", types.ConflictCandidate{BaseName: "report", HasCopy: true, CopyCount: 12, Extension: ".txt"}},
		{"Makefile", types.ConflictCandidate{BaseName: "Makefile"}},
		{".bashrc (Copy 2)", types.ConflictCandidate{BaseName: ".bashrc", HasCopy: true, CopyCount: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCandidate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, FormatCandidate(got), "formatting restores the name")
		})
	}
}

func TestFormatCandidateRoundTrip(t *testing.T) {
	for _, c := range []types.ConflictCandidate{
		{BaseName: "a"},
		{BaseName: "a", Extension: ".b"},
		{BaseName: "a", HasCopy: true},
		{BaseName: "a.tar", HasCopy: true, CopyCount: 3, Extension: ".gz"},
		{BaseName: "x (Copy) y", HasCopy: true, CopyCount: 1, Extension: ".md"},
		{BaseName: ".hidden", HasCopy: true, CopyCount: 9},
	} {
		parsed, err := ParseCandidate(FormatCandidate(c))
		require.NoError(t, err, c.String())
		assert.Equal(t, c, parsed)
	}
}

func newMemResolver(t *testing.T) (*ConflictResolverService, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/dst/sub", 0o755))
	require.NoError(t, fsys.MkdirAll("/src/sub", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "/src/report.txt", []byte("new"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/dst/report.txt", []byte("old"), 0o644))
	return NewConflictResolverService(backend.NewAferoAccessor(fsys), zerolog.Nop()), fsys
}

func TestResolveConflict(t *testing.T) {
	cr, fsys := newMemResolver(t)
	ctx := context.Background()
	src := types.NewPathEntry("/src/report.txt")
	dst := types.NewPathEntry("/dst/report.txt")

	got, err := cr.ResolveConflict(ctx, src, dst, options.ConflictOverwrite)
	require.NoError(t, err)
	assert.Equal(t, dst, got)
	assert.NoError(t, cr.ValidateResolution(src, got, options.ConflictOverwrite))

	got, err = cr.ResolveConflict(ctx, src, dst, options.ConflictSkip)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.NoError(t, cr.ValidateResolution(src, got, options.ConflictSkip))

	got, err = cr.ResolveConflict(ctx, src, dst, options.ConflictRename)
	require.NoError(t, err)
	assert.Equal(t, "/dst/report (Copy).txt", got.String())
	assert.NoError(t, cr.ValidateResolution(dst, got, options.ConflictRename))

	require.NoError(t, afero.WriteFile(fsys, "/dst/report (Copy).txt", nil, 0o644))
	unique, err := cr.GenerateUniqueFilename("/dst/report.txt")
	require.NoError(t, err)
	assert.Equal(t, "/dst/report (Copy 1).txt", unique)

	_, err = cr.ResolveConflict(ctx, src, dst, options.ConflictStrategy("prompt"))
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = cr.ResolveConflict(cancelled, src, dst, options.ConflictRename)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectConflict(t *testing.T) {
	cr, _ := newMemResolver(t)
	ctx := context.Background()

	info, err := cr.DetectConflict(ctx, types.NewPathEntry("/src/report.txt"), types.NewPathEntry("/dst/free.txt"))
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = cr.DetectConflict(ctx, types.NewPathEntry("/src/report.txt"), types.NewPathEntry("/dst/report.txt"))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, types.ConflictFileExists, info.ConflictType)
	assert.Equal(t, types.KindFile, info.SourceKind)
	assert.Equal(t, types.KindFile, info.TargetKind)
	assert.ElementsMatch(t,
		[]options.ConflictStrategy{options.ConflictOverwrite, options.ConflictSkip, options.ConflictRename},
		cr.GetConflictResolutionOptions(info))

	info, err = cr.DetectConflict(ctx, types.NewPathEntry("/src/sub"), types.NewPathEntry("/dst/sub"))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, types.ConflictDirectoryExists, info.ConflictType)
	assert.NotContains(t, cr.GetConflictResolutionOptions(info), options.ConflictOverwrite)

	info, err = cr.DetectConflict(ctx, types.NewPathEntry("/src/sub"), types.NewPathEntry("/dst/report.txt"))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, types.ConflictFileExists, info.ConflictType, "mixed kinds count as a file conflict")
}

func TestBatchResolveConflictsNeverRepeatsNames(t *testing.T) {
	cr, _ := newMemResolver(t)
	dst := types.NewPathEntry("/dst/report.txt")

	conflicts := []types.ConflictInfo{
		{SourcePath: types.NewPathEntry("/src/one/report.txt"), TargetPath: dst},
		{SourcePath: types.NewPathEntry("/src/two/report.txt"), TargetPath: dst},
		{SourcePath: types.NewPathEntry("/src/three/report.txt"), TargetPath: dst},
	}

	resolutions, err := cr.BatchResolveConflicts(context.Background(), conflicts, options.ConflictRename)
	require.NoError(t, err)
	require.Len(t, resolutions, 3)

	var got []string
	for _, r := range resolutions {
		got = append(got, r.String())
	}
	assert.ElementsMatch(t, []string{
		"/dst/report (Copy).txt",
		"/dst/report (Copy 1).txt",
		"/dst/report (Copy 2).txt",
	}, got)

	skipped, err := cr.BatchResolveConflicts(context.Background(), conflicts, options.ConflictSkip)
	require.NoError(t, err)
	assert.Empty(t, skipped)
}

func TestValidateResolutionRejects(t *testing.T) {
	cr, _ := newMemResolver(t)
	a := types.NewPathEntry("/d/a.txt")

	assert.Error(t, cr.ValidateResolution(a, a, options.ConflictOverwrite))
	assert.Error(t, cr.ValidateResolution(a, a, options.ConflictSkip))
	assert.Error(t, cr.ValidateResolution(a, a, options.ConflictRename))
	assert.Error(t, cr.ValidateResolution(a, types.NewPathEntry("/e/a (Copy).txt"), options.ConflictRename))
}

func BenchmarkNextAvailableName(b *testing.B) {
	taken := []string{"/d/report.txt", "/d/report (Copy).txt"}
	for i := 1; i < 50; i++ {
		taken = append(taken, "/d/report (Copy "+strconv.Itoa(i)+").txt")
	}
	exists := existing(taken...)
	candidate := types.NewPathEntry("/d/report.txt")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NextAvailableName(candidate, exists)
	}
}
