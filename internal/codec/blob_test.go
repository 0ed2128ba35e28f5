package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameBlob(dict, doc []byte) []byte {
	payload := make([]byte, 8, 8+len(dict)+len(doc))
	binary.LittleEndian.PutUint64(payload, uint64(len(dict)))
	payload = append(payload, dict...)
	return append(payload, doc...)
}

func TestSplitProjectBlob(t *testing.T) {
	dict := []byte("compression dictionary")
	doc := []byte(`<project/>`)

	gotDict, gotDoc, err := SplitProjectBlob(frameBlob(dict, doc))
	require.NoError(t, err)
	assert.Equal(t, dict, gotDict)
	assert.Equal(t, doc, gotDoc)
}

func TestSplitProjectBlob_EmptyDictAndDoc(t *testing.T) {
	gotDict, gotDoc, err := SplitProjectBlob(frameBlob(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, gotDict)
	assert.Empty(t, gotDoc)
}

func TestSplitProjectBlob_ShorterThanHeader(t *testing.T) {
	_, _, err := SplitProjectBlob([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrBlobTooShort)
}

func TestSplitProjectBlob_DictLengthOverflow(t *testing.T) {
	payload := frameBlob([]byte("dict"), nil)
	binary.LittleEndian.PutUint64(payload, 5) // one byte more than remains

	_, _, err := SplitProjectBlob(payload)
	require.ErrorIs(t, err, ErrBlobDictOverflow)
}
