package queue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileKnownDigest(t *testing.T) {
	path := writeTempFile(t, "hello.txt", "hello world")

	digest, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
}

func TestHashFileSameContentSameDigest(t *testing.T) {
	a := writeTempFile(t, "a.bin", "identical payload")
	b := writeTempFile(t, "b.bin", "identical payload")
	c := writeTempFile(t, "c.bin", "different payload")

	digestA, err := HashFile(a)
	require.NoError(t, err)
	digestB, err := HashFile(b)
	require.NoError(t, err)
	digestC, err := HashFile(c)
	require.NoError(t, err)

	assert.Equal(t, digestA, digestB)
	assert.NotEqual(t, digestA, digestC)
}

func TestHashFileMissingFile(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}
