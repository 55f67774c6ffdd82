package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressSmallPayloadUntouched(t *testing.T) {
	data := []byte(`{"method":"ping"}`)
	out, compressed, err := Compress(data)
	require.NoError(t, err)
	assert.False(t, compressed)
	assert.Equal(t, data, out)
}

func TestCompressLargePayload(t *testing.T) {
	data := bytes.Repeat([]byte(`{"key":"value"},`), 512)

	out, compressed, err := Compress(data)
	require.NoError(t, err)
	require.True(t, compressed)
	assert.Less(t, len(out), len(data))

	restored, err := Decompress(out)
	require.NoError(t, err)
	assert.Equal(t, data, restored)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress([]byte("not gzip"))
	assert.Error(t, err)
}
