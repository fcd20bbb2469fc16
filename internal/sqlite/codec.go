package sqlite

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// EncodeImage converts a database image into text that can be stored in a
// string key-value store. It is standard base64 over the raw bytes, which is
// the same text a byte-per-character base64 pipeline produces.
func EncodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// DecodeImage reverses EncodeImage. Surrounding whitespace is ignored.
// Errors wrap types.ErrPersistence.
func DecodeImage(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty database image", types.ErrPersistence)
	}
	image, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding database image: %v", types.ErrPersistence, err)
	}
	return image, nil
}
