// Package cover turns image files into the data URIs stored as collection
// covers.
package cover

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// MaxSize is the largest accepted cover file, in bytes.
const MaxSize = 5 << 20

// FromFile reads an image file and returns it as a data URI.
// Errors for files that are too large or not images wrap types.ErrValidation.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening cover: %w", err)
	}
	defer f.Close()

	return FromReader(f)
}

// FromReader reads at most MaxSize bytes from r and returns them as a data
// URI. The media type is sniffed from the content; the file name plays no
// part.
func FromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("reading cover: %w", err)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%w: the cover image must not exceed 5MB", types.ErrValidation)
	}
	return Encode(data)
}

// Encode returns data as a base64 data URI. Only image content is accepted.
func Encode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: the cover file is empty", types.ErrValidation)
	}
	mediaType := http.DetectContentType(data)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: the cover must be an image, got %s", types.ErrValidation, mediaType)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// MediaType returns the media type of a data URI, or "" if uri is not one.
func MediaType(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	mediaType, _, ok := strings.Cut(rest, ";")
	if !ok {
		mediaType, _, _ = strings.Cut(rest, ",")
	}
	return mediaType
}
