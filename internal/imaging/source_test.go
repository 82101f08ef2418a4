package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "test.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestDataURIEncodesFile(t *testing.T) {
	path := writeTestPNG(t, 8, 8)
	source := NewFileSource(0)

	uri, err := source.DataURI(context.Background(), path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	payload := strings.TrimPrefix(uri, "data:image/png;base64,")
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, 8, img.Bounds().Dx())
}

func TestDataURICaches(t *testing.T) {
	path := writeTestPNG(t, 4, 4)
	source := NewFileSource(0)

	first, err := source.DataURI(context.Background(), path)
	require.NoError(t, err)

	// The source must serve from cache even after the file disappears.
	require.NoError(t, os.Remove(path))
	second, err := source.DataURI(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	source.Invalidate(path)
	_, err = source.DataURI(context.Background(), path)
	require.Error(t, err)
}

func TestDataURIDownscalesOversizedImage(t *testing.T) {
	path := writeTestPNG(t, 200, 100)
	source := NewFileSource(50)

	uri, err := source.DataURI(context.Background(), path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

	payload := strings.TrimPrefix(uri, "data:image/jpeg;base64,")
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	require.Equal(t, 50, img.Bounds().Dx())
	require.Equal(t, 25, img.Bounds().Dy())
}

func TestDataURISmallImagePassesThrough(t *testing.T) {
	path := writeTestPNG(t, 30, 20)
	source := NewFileSource(50)

	uri, err := source.DataURI(context.Background(), path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestDataURIRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewFileSource(0)
	_, err := source.DataURI(ctx, "anything.png")
	require.ErrorIs(t, err, context.Canceled)
}
