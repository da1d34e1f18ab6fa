package ingest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherSum(t *testing.T) {
	h := Hasher{}

	sum, err := h.Sum(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", sum)
}

func TestHasherChunkSizeInvariance(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 10_000)

	reference, err := Hasher{}.Sum(bytes.NewReader(data))
	require.NoError(t, err)

	for _, chunkSize := range []int{1, 7, 64, 4096, len(data), len(data) * 2} {
		sum, err := Hasher{ChunkSize: chunkSize}.Sum(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, reference, sum, "chunk size %d", chunkSize)
	}
}

func TestHasherEmptyInput(t *testing.T) {
	sum, err := Hasher{}.Sum(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", sum)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk gone")
}

func TestHasherReadFailureAborts(t *testing.T) {
	_, err := Hasher{}.Sum(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read chunk")
}

func TestHasherSumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	sum, err := Hasher{}.SumFile(path)
	require.NoError(t, err)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", sum)

	_, err = Hasher{}.SumFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
