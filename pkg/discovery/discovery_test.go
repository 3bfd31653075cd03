package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, cfg discovery.Config) []discovery.Candidate {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out []discovery.Candidate
	for c := range discovery.Find(ctx, cfg, nil) {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func TestFindEmitsSimpleCopyCandidate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo Copy.txt"), []byte("hello"), 0o644))

	got := collect(t, discovery.Config{Roots: []string{dir}})
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(dir, "foo Copy.txt"), got[0].Path)
	assert.Equal(t, filepath.Join(dir, "foo.txt"), got[0].PresumedOriginal)
}

func TestFindEmitsOrphanCandidateWithoutOriginal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b Copy.txt"), []byte("x"), 0o644))

	got := collect(t, discovery.Config{Roots: []string{dir}})
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(dir, "b.txt"), got[0].PresumedOriginal)
}

func TestFindSkipsCloudPlaceholder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".foo Copy.txt.icloud"), []byte("stub"), 0o644))

	got := collect(t, discovery.Config{Roots: []string{dir}})
	assert.Empty(t, got)
}

func TestFindDoesNotDescendIntoBundles(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "x Copy.pages")
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "inner Copy.txt"), 0o755))

	got := collect(t, discovery.Config{Roots: []string{dir}})
	require.Len(t, got, 1)
	assert.Equal(t, bundle, got[0].Path)
}

func TestFindRecursesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "doc Copy.txt"), []byte("x"), 0o644))

	got := collect(t, discovery.Config{Roots: []string{dir}})
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(sub, "doc Copy.txt"), got[0].Path)
}

func TestFindIgnoresPlainFilesWithoutConflictPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo 1.txt"), []byte("x"), 0o644))

	got := collect(t, discovery.Config{Roots: []string{dir}})
	assert.Empty(t, got)
}

func TestFindRespectsIgnoreHidden(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".hidden")
	require.NoError(t, os.MkdirAll(hidden, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "doc Copy.txt"), []byte("x"), 0o644))

	got := collect(t, discovery.Config{Roots: []string{dir}, IgnoreHidden: true})
	assert.Empty(t, got)

	got = collect(t, discovery.Config{Roots: []string{dir}, IgnoreHidden: false})
	require.Len(t, got, 1)
}

func TestFindCancellationStopsEarly(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		name := filepath.Join(dir, "file"+string(rune('a'+i))+" Copy.txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := discovery.Find(ctx, discovery.Config{Roots: []string{dir}}, nil)
	first := <-ch
	cancel()
	assert.NotEmpty(t, first.Path)
	// Draining must terminate promptly once cancelled.
	for range ch {
	}
}
