package hash_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestPathRegularFilesEqualContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("hello"), 0o644))

	da, err := hash.DigestPath(a, fskind.Regular, nil)
	require.NoError(t, err)
	db, err := hash.DigestPath(b, fskind.Regular, nil)
	require.NoError(t, err)

	assert.True(t, da.Equal(db))
	assert.Len(t, da.Hex(), hash.Size*2)
}

func TestDigestPathRegularFilesDifferentContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("y"), 0o644))

	da, err := hash.DigestPath(a, fskind.Regular, nil)
	require.NoError(t, err)
	db, err := hash.DigestPath(b, fskind.Regular, nil)
	require.NoError(t, err)

	assert.False(t, da.Equal(db))
}

func TestDigestPathLargeFileStreams(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "big.bin")
	content := make([]byte, 1024*1024+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(p, content, 0o644))

	d, err := hash.DigestPath(p, fskind.Regular, nil)
	require.NoError(t, err)
	assert.False(t, d.IsZero())
}

func TestDigestBundleIndependentOfTraversalOrder(t *testing.T) {
	dir := t.TempDir()
	bundleA := filepath.Join(dir, "x.pages")
	bundleB := filepath.Join(dir, "y.pages")
	buildBundle(t, bundleA)
	buildBundle(t, bundleB)

	da, err := hash.DigestPath(bundleA, fskind.Bundle, nil)
	require.NoError(t, err)
	db, err := hash.DigestPath(bundleB, fskind.Bundle, nil)
	require.NoError(t, err)

	assert.True(t, da.Equal(db))
}

func TestDigestBundleDetectsContentDifference(t *testing.T) {
	dir := t.TempDir()
	bundleA := filepath.Join(dir, "x.pages")
	bundleB := filepath.Join(dir, "y.pages")
	buildBundle(t, bundleA)
	buildBundle(t, bundleB)
	require.NoError(t, os.WriteFile(filepath.Join(bundleB, "data", "content.xml"), []byte("different"), 0o644))

	da, err := hash.DigestPath(bundleA, fskind.Bundle, nil)
	require.NoError(t, err)
	db, err := hash.DigestPath(bundleB, fskind.Bundle, nil)
	require.NoError(t, err)

	assert.False(t, da.Equal(db))
}

func TestEqualHelper(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0o644))

	eq, err := hash.Equal(a, b, fskind.Regular, nil)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestDigestPathMissingFile(t *testing.T) {
	_, err := hash.DigestPath(filepath.Join(t.TempDir(), "missing.txt"), fskind.Regular, nil)
	assert.Error(t, err)
}

func buildBundle(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Index.xml"), []byte("<index/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "content.xml"), []byte("<content/>"), 0o644))
}
