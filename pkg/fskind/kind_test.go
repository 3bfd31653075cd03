package fskind_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRegularFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "foo.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, fskind.Regular, fskind.Classify(p, info, nil))
}

func TestClassifyBundleDirectory(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.pages")
	require.NoError(t, os.Mkdir(p, 0o755))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, fskind.Bundle, fskind.Classify(p, info, nil))
}

func TestClassifyPlainDirectoryIsOther(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(p, 0o755))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, fskind.Other, fskind.Classify(p, info, nil))
}

func TestClassifyCloudPlaceholder(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".foo.txt.icloud")
	require.NoError(t, os.WriteFile(p, []byte("stub"), 0o644))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, fskind.CloudPlaceholder, fskind.Classify(p, info, nil))
}

func TestIsCloudPlaceholder(t *testing.T) {
	assert.True(t, fskind.IsCloudPlaceholder(".foo.icloud"))
	assert.False(t, fskind.IsCloudPlaceholder("foo.icloud"))
	assert.False(t, fskind.IsCloudPlaceholder(".foo.txt"))
}

func TestClassifyCustomBundleExtensions(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.custom")
	require.NoError(t, os.Mkdir(p, 0o755))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, fskind.Other, fskind.Classify(p, info, nil))
	assert.Equal(t, fskind.Bundle, fskind.Classify(p, info, []string{".custom"}))
}
