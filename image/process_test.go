package image

import (
	"bytes"
	stdimage "image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestCompressSmallImageUnchanged(t *testing.T) {
	data := encodeTestJPEG(t, 100, 80)

	out, err := Compress(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestCompressDownscalesLargeImage(t *testing.T) {
	data := encodeTestJPEG(t, 2048, 1536)

	out, err := Compress(data)
	require.NoError(t, err)

	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 768, cfg.Height)
}

// Stored images are served with a JPEG content type, so PNG uploads must
// come out of Compress as JPEG even when no downscale is needed.
func TestCompressReencodesPNGAsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 100, 80))))

	out, err := Compress(buf.Bytes())
	require.NoError(t, err)

	_, format, err := stdimage.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCompressRejectsNonImage(t *testing.T) {
	_, err := Compress([]byte("definitely not a jpeg"))
	assert.Error(t, err)
}

func TestGetOrientationDefaultsWithoutExif(t *testing.T) {
	assert.Equal(t, 1, GetOrientation(encodeTestJPEG(t, 10, 10)))
}

func TestExtractMetadataWithoutExif(t *testing.T) {
	data := encodeTestJPEG(t, 120, 90)

	meta := ExtractMetadata(data)
	assert.Equal(t, 120, meta.Width)
	assert.Equal(t, 90, meta.Height)
	assert.Equal(t, 1, meta.Orientation)
	assert.Nil(t, meta.CapturedAt)
	assert.False(t, meta.HasGPS)
}
