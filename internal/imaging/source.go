// Package imaging supplies encoded image blobs to the engine: file
// contents become base64 data URIs, cached per image after the first
// computation.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"sync"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"
)

// FileSource resolves image ids as filesystem paths.
type FileSource struct {
	// MaxEdge caps the longer image dimension before encoding;
	// oversized images are downscaled. Zero disables scaling.
	MaxEdge int

	mu    sync.Mutex
	cache map[string]string
}

// NewFileSource returns a source with an empty cache.
func NewFileSource(maxEdge int) *FileSource {
	return &FileSource{MaxEdge: maxEdge, cache: make(map[string]string)}
}

// DataURI returns the base64 data URI for the image at path imageID.
func (s *FileSource) DataURI(ctx context.Context, imageID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	cached, ok := s.cache[imageID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(imageID) // #nosec G304 -- Image path is user-provided
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mime := http.DetectContentType(data)
	if data, mime, err = s.fitToMaxEdge(data, mime); err != nil {
		return "", err
	}

	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	s.mu.Lock()
	s.cache[imageID] = uri
	s.mu.Unlock()
	return uri, nil
}

// Invalidate evicts one image from the cache.
func (s *FileSource) Invalidate(imageID string) {
	s.mu.Lock()
	delete(s.cache, imageID)
	s.mu.Unlock()
}

// fitToMaxEdge re-encodes images whose longer edge exceeds MaxEdge.
// Undecodable or already-small images pass through untouched.
func (s *FileSource) fitToMaxEdge(data []byte, mime string) ([]byte, string, error) {
	if s.MaxEdge <= 0 {
		return data, mime, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mime, nil
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= s.MaxEdge {
		return data, mime, nil
	}

	scale := float64(s.MaxEdge) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, "", fmt.Errorf("encode scaled image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
